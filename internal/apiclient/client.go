// Package apiclient talks to the Eden Core REST backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/xid"
)

const maxResponseBytes = 8 << 20

type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// Credentials identify the purchaser to the backend. Telegram init data takes
// precedence over the development id.
type Credentials struct {
	InitData      string
	DevTelegramID string
}

func (c Credentials) headers() map[string]string {
	if c.InitData != "" {
		return map[string]string{"X-Telegram-Init-Data": c.InitData}
	}
	if c.DevTelegramID != "" {
		return map[string]string{"X-Dev-Telegram-Id": c.DevTelegramID}
	}
	return nil
}

// Identity is a stable string for the credential in use.
func (c Credentials) Identity() string {
	if c.InitData != "" {
		return "tg:" + c.InitData
	}
	if c.DevTelegramID != "" {
		return "dev:" + c.DevTelegramID
	}
	return "anonymous"
}

type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	logger  *zap.Logger
}

func New(baseURL string, creds Credentials, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		logger:  logger,
	}
}

func (c *Client) Credentials() Credentials {
	return c.creds
}

func (c *Client) GetConsolidation(ctx context.Context) ([]domain.ConsolidatedItem, error) {
	var items []domain.ConsolidatedItem
	if err := c.do(ctx, http.MethodGet, "/purchases/consolidation", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ConsolidatedItem{}
	}
	return items, nil
}

func (c *Client) SubmitBatch(ctx context.Context, batch domain.BatchCreate) (*domain.BatchResponse, error) {
	var resp domain.BatchResponse
	if err := c.do(ctx, http.MethodPost, "/purchases/", batch, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method string, endpoint string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return err
	}
	requestID := xid.New("req")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range c.creds.headers() {
		req.Header.Set(k, v)
	}

	startedAt := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(startedAt)),
	)

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Detail: errorDetail(res.StatusCode, raw)}
	}
	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorDetail extracts a message from FastAPI's {"detail": ...} body; the
// detail may be a string or a list of validation errors.
func errorDetail(status int, raw []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallback
	}
	if len(body.Detail) > 0 {
		var text string
		if err := json.Unmarshal(body.Detail, &text); err == nil {
			if text != "" {
				return text
			}
			return fallback
		}
		if string(body.Detail) != "null" {
			return string(body.Detail)
		}
	}
	if body.Error != "" {
		return body.Error
	}
	return fallback
}

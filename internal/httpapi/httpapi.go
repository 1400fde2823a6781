package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/store"
)

const maxBodyBytes = 1 << 20

type API struct {
	repo          store.Repository
	auth          *TelegramAuth
	allowedOrigin string
	authLimiter   *attemptLimiter
	logger        *zap.Logger
	now           func() time.Time
}

func New(repo store.Repository, auth *TelegramAuth, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		repo:          repo,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		authLimiter:   newAttemptLimiter(20, time.Minute),
		logger:        logger,
		now:           time.Now,
	}
}

// attemptLimiter counts failed authentications per client in a sliding window.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) recent(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	history := l.entries[key]
	kept := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, key)
		return nil
	}
	l.entries[key] = kept
	return kept
}

func (l *attemptLimiter) Blocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(key, time.Now())) >= l.max
}

func (l *attemptLimiter) Fail(key string) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = append(l.recent(key, now), now)
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/purchases/consolidation", a.requireAuth(a.handleConsolidation))
	mux.HandleFunc("/api/purchases/", a.requireAuth(a.handleBatches))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if a.authLimiter.Blocked(key) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many failed authentication attempts"))
			return
		}

		actor, err := a.auth.Authenticate(r)
		if err != nil {
			a.authLimiter.Fail(key)
			status := http.StatusUnauthorized
			if errors.Is(err, ErrNotPurchaser) {
				status = http.StatusForbidden
			}
			writeError(w, status, err)
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": a.now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleConsolidation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	lines, err := a.repo.ListDemand(r.Context())
	if err != nil {
		a.writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.Consolidate(lines))
}

func (a *API) handleBatches(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/purchases/" {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.BatchCreate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.MarketLocation) == "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("market_location is required"))
		return
	}

	actor, _ := ActorFromContext(r.Context())
	resp, err := a.repo.RecordBatch(r.Context(), actor.TelegramID, req, a.now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidBatch):
			writeError(w, http.StatusUnprocessableEntity, err)
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		default:
			a.writeServerError(w, err)
		}
		return
	}

	a.logger.Info("batch recorded",
		zap.String("batch_id", resp.ID),
		zap.String("purchaser_id", actor.TelegramID),
		zap.String("market_location", req.MarketLocation),
		zap.Int("items", len(resp.Items)),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+headerInitData+", "+headerDevID+", X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Duration("duration", time.Since(startedAt)),
		)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeServerError(w http.ResponseWriter, err error) {
	a.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err)
}

// writeError uses the {"detail": ...} body the purchasing backend returns.
// 5xx details are replaced with a generic message.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"detail": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

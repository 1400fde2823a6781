package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"edencore/marketrun/internal/domain"
)

const (
	headerInitData = "X-Telegram-Init-Data"
	headerDevID    = "X-Dev-Telegram-Id"

	sourceTelegram = "telegram"
	sourceDev      = "dev"

	initDataMaxAge = 24 * time.Hour
)

var (
	ErrMissingIdentity = errors.New("missing telegram identity")
	ErrInvalidInitData = errors.New("invalid telegram init data")
	ErrNotPurchaser    = errors.New("user is not a purchaser")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// TelegramAuth resolves the caller from Telegram Mini App init data or, when
// allowed, from the development id header. With a bot token configured the
// init data signature and age are checked.
type TelegramAuth struct {
	botToken   string
	allowDev   bool
	purchasers map[string]bool
	now        func() time.Time
}

func NewTelegramAuth(botToken string, allowDev bool, purchaserIDs []string) *TelegramAuth {
	purchasers := make(map[string]bool, len(purchaserIDs))
	for _, id := range purchaserIDs {
		if id = strings.TrimSpace(id); id != "" {
			purchasers[id] = true
		}
	}
	return &TelegramAuth{
		botToken:   strings.TrimSpace(botToken),
		allowDev:   allowDev,
		purchasers: purchasers,
		now:        time.Now,
	}
}

func (a *TelegramAuth) Authenticate(r *http.Request) (domain.Actor, error) {
	var actor domain.Actor
	if raw := strings.TrimSpace(r.Header.Get(headerInitData)); raw != "" {
		id, err := a.parseInitData(raw)
		if err != nil {
			return domain.Actor{}, err
		}
		actor = domain.Actor{TelegramID: id, Source: sourceTelegram}
	} else if dev := strings.TrimSpace(r.Header.Get(headerDevID)); dev != "" && a.allowDev {
		if _, err := strconv.ParseInt(dev, 10, 64); err != nil {
			return domain.Actor{}, ErrInvalidInitData
		}
		actor = domain.Actor{TelegramID: dev, Source: sourceDev}
	} else {
		return domain.Actor{}, ErrMissingIdentity
	}

	if len(a.purchasers) > 0 && !a.purchasers[actor.TelegramID] {
		return domain.Actor{}, ErrNotPurchaser
	}
	return actor, nil
}

func (a *TelegramAuth) parseInitData(raw string) (string, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "", ErrInvalidInitData
	}
	if a.botToken != "" {
		if err := a.verify(values); err != nil {
			return "", err
		}
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return "", ErrInvalidInitData
	}
	return strconv.FormatInt(user.ID, 10), nil
}

// verify checks the init data hash as described for Telegram Web Apps: the
// sorted key=value pairs, minus hash, signed with HMAC-SHA256 keyed by
// HMAC-SHA256("WebAppData", botToken).
func (a *TelegramAuth) verify(values url.Values) error {
	got := values.Get("hash")
	if got == "" {
		return ErrInvalidInitData
	}
	if !hmac.Equal([]byte(got), []byte(signInitData(values, a.botToken))) {
		return ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return ErrInvalidInitData
	}
	if a.now().Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return ErrInvalidInitData
	}
	return nil
}

func signInitData(values url.Values, botToken string) string {
	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

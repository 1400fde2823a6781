package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, headerInitData) || !strings.Contains(got, headerDevID) {
		t.Fatalf("expected identity headers allowed for CORS, got %q", got)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/purchases/", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight without identity, got %d", res.Code)
	}
}

func TestFailedAuthRateLimitReturns429(t *testing.T) {
	api, _ := newTestAPI(t)

	for i := 0; i < 21; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/purchases/consolidation", nil)
		req.Header.Set(headerDevID, "not-a-number")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 20 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 20 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 21 expected 429, got %d", res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/purchases/consolidation", nil)
	req.Header.Set(headerDevID, "1001")
	req.RemoteAddr = "10.0.0.9:5000"
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("other clients must not be limited, got %d", res.Code)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	veryLong := strings.Repeat("a", maxBodyBytes+1024)
	body := fmt.Sprintf(`{"market_location":"%s","items":[]}`, veryLong)

	rec := postBatch(t, api, body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", rec.Code)
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:5000": "127.0.0.1",
		"[::1]:8080":     "::1",
		"":               "unknown",
		"host-only":      "host-only",
	}
	for addr, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		if got := clientKey(req); got != want {
			t.Fatalf("clientKey(%q) = %q, want %q", addr, got, want)
		}
	}
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"edencore/marketrun/internal/apiclient"
	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/marketrun"
	"edencore/marketrun/internal/store/memory"
)

// newTestAPI builds an API over the seeded in-memory store that accepts the
// development id header from any caller.
func newTestAPI(t *testing.T) (*API, *memory.Store) {
	t.Helper()

	repo := memory.NewSeeded()
	api := New(repo, NewTelegramAuth("", true, nil), "*", nil)
	api.now = func() time.Time { return time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC) }
	return api, repo
}

func TestHandleHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestConsolidationRequiresIdentity(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/purchases/consolidation", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["detail"] == "" {
		t.Fatalf("expected detail in error body, got %v", body)
	}
}

func TestConsolidationGroupsSeededDemand(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/purchases/consolidation", nil)
	req.Header.Set(headerDevID, "1001")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var items []domain.ConsolidatedItem
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("expected 6 products, got %d", len(items))
	}
	if items[0].CategoryName["en"] != "Vegetables" || items[len(items)-1].ProductID != "prod-beef" {
		t.Fatalf("unexpected ordering: first %s, last %s", items[0].ProductID, items[len(items)-1].ProductID)
	}
	for _, item := range items {
		if item.ProductID == "prod-tomato" && !item.TotalQuantityNeeded.Equal(decimal.NewFromInt(20)) {
			t.Fatalf("expected tomato total 20, got %s", item.TotalQuantityNeeded)
		}
	}
}

func postBatch(t *testing.T, api *API, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/purchases/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerDevID, "1001")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateBatch(t *testing.T) {
	api, repo := newTestAPI(t)

	rec := postBatch(t, api, `{"market_location":"Chorsu","items":[{"product_id":"prod-onion","total_quantity_bought":15,"total_cost_uzs":67500}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.BatchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PurchaserID != "1001" || resp.Status != "finalized" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !resp.Items[0].UnitPriceCalculated.Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("expected unit price 4500, got %s", resp.Items[0].UnitPriceCalculated)
	}
	if len(repo.Batches()) != 1 {
		t.Fatalf("expected batch stored")
	}
}

func TestCreateBatchErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"market_location":`, http.StatusBadRequest},
		{"unknown field", `{"market_location":"Chorsu","items":[],"note":"x"}`, http.StatusBadRequest},
		{"unknown item field", `{"market_location":"Chorsu","items":[{"product_id":"prod-onion","total_quantity_bought":1,"total_cost_uzs":10,"discount":5}]}`, http.StatusBadRequest},
		{"cost out of range", `{"market_location":"Chorsu","items":[{"product_id":"prod-onion","total_quantity_bought":1,"total_cost_uzs":1e20000000}]}`, http.StatusUnprocessableEntity},
		{"missing location", `{"market_location":" ","items":[]}`, http.StatusUnprocessableEntity},
		{"no items", `{"market_location":"Chorsu","items":[]}`, http.StatusUnprocessableEntity},
		{"zero cost", `{"market_location":"Chorsu","items":[{"product_id":"prod-onion","total_quantity_bought":1,"total_cost_uzs":0}]}`, http.StatusUnprocessableEntity},
		{"unknown product", `{"market_location":"Chorsu","items":[{"product_id":"prod-durian","total_quantity_bought":1,"total_cost_uzs":10}]}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api, _ := newTestAPI(t)
			rec := postBatch(t, api, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (body: %s)", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBatchRouteRejectsOtherMethodsAndPaths(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/purchases/", nil)
	req.Header.Set(headerDevID, "1001")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/purchases/123", nil)
	req.Header.Set(headerDevID, "1001")
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// TestMarketRunAgainstStubBackend drives the engine through the real client
// against this handler: load, edit, finalize, and see the bought product drop
// out of the refreshed list.
func TestMarketRunAgainstStubBackend(t *testing.T) {
	api, repo := newTestAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	client := apiclient.New(srv.URL+"/api", apiclient.Credentials{DevTelegramID: "1001"}, 5*time.Second, nil)
	engine := marketrun.NewEngine(client, marketrun.Options{MarketLocation: "Chorsu"})
	ctx := context.Background()

	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := engine.UpdateStoreQuantity("prod-tomato", "Chilonzor", "10"); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if err := engine.SetUnitPrice("prod-tomato", "13500"); err != nil {
		t.Fatalf("set unit price: %v", err)
	}
	if err := engine.ToggleBought("prod-tomato", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	resp, err := engine.Finalize(ctx)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(resp.Items) != 1 || !resp.Items[0].TotalCostUZS.Equal(decimal.NewFromInt(243000)) {
		t.Fatalf("unexpected batch response %+v", resp)
	}
	if got := repo.Batches()[0].Items[0].TotalQuantityBought; !got.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("expected 18 bought, got %s", got)
	}
	if _, ok := engine.Item("prod-tomato"); ok {
		t.Fatalf("expected purchased product gone after refresh")
	}
	if len(engine.Items()) != 5 {
		t.Fatalf("expected 5 remaining products, got %d", len(engine.Items()))
	}
}

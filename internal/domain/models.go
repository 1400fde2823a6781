package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"edencore/marketrun/internal/i18n"
)

type ItemStatus string

const (
	StatusPending ItemStatus = "pending"
	StatusBought  ItemStatus = "bought"
)

const (
	maxAmountIntegerDigits = 15
	maxAmountScale         = 9
)

// AmountInRange reports whether d has at most 15 integer digits and at most
// 9 fractional digits. Amounts outside that range are refused before any
// arithmetic runs on them.
func AmountInRange(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if exp < -maxAmountScale || exp > maxAmountIntegerDigits {
		return false
	}
	return d.NumDigits()+exp <= maxAmountIntegerDigits
}

type StoreQuantity struct {
	StoreName string          `json:"store_name"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type ConsolidatedItem struct {
	ProductID           string           `json:"product_id"`
	ProductName         i18n.Text        `json:"product_name"`
	Unit                i18n.Text        `json:"unit"`
	CategoryName        i18n.Text        `json:"category_name"`
	PriceReference      *decimal.Decimal `json:"price_reference,omitempty"`
	TotalQuantityNeeded decimal.Decimal  `json:"total_quantity_needed"`
	Breakdown           []StoreQuantity  `json:"breakdown"`
}

// MarketItem is the purchaser's working copy of a consolidated item.
type MarketItem struct {
	ConsolidatedItem
	Status           ItemStatus       `json:"status"`
	PurchasePrice    *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseQuantity decimal.Decimal  `json:"purchase_quantity"`
}

// Clone returns a copy that shares no mutable state with m.
func (m MarketItem) Clone() MarketItem {
	out := m
	out.Breakdown = CloneBreakdown(m.Breakdown)
	out.ProductName = m.ProductName.Clone()
	out.Unit = m.Unit.Clone()
	out.CategoryName = m.CategoryName.Clone()
	if m.PriceReference != nil {
		ref := *m.PriceReference
		out.PriceReference = &ref
	}
	if m.PurchasePrice != nil {
		price := *m.PurchasePrice
		out.PurchasePrice = &price
	}
	return out
}

func CloneBreakdown(rows []StoreQuantity) []StoreQuantity {
	if rows == nil {
		return nil
	}
	out := make([]StoreQuantity, len(rows))
	copy(out, rows)
	return out
}

type BatchItemInput struct {
	ProductID           string
	TotalQuantityBought decimal.Decimal
	TotalCostUZS        decimal.Decimal
}

// MarshalJSON writes amounts as JSON numbers rather than decimal's default quoted strings.
func (b BatchItemInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductID           string          `json:"product_id"`
		TotalQuantityBought json.RawMessage `json:"total_quantity_bought"`
		TotalCostUZS        json.RawMessage `json:"total_cost_uzs"`
	}{
		ProductID:           b.ProductID,
		TotalQuantityBought: json.RawMessage(b.TotalQuantityBought.String()),
		TotalCostUZS:        json.RawMessage(b.TotalCostUZS.String()),
	})
}

// UnmarshalJSON rejects unknown fields, since an outer decoder's
// DisallowUnknownFields does not reach a custom unmarshaler.
func (b *BatchItemInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID           string          `json:"product_id"`
		TotalQuantityBought decimal.Decimal `json:"total_quantity_bought"`
		TotalCostUZS        decimal.Decimal `json:"total_cost_uzs"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	b.ProductID = raw.ProductID
	b.TotalQuantityBought = raw.TotalQuantityBought
	b.TotalCostUZS = raw.TotalCostUZS
	return nil
}

type BatchCreate struct {
	MarketLocation string           `json:"market_location"`
	Items          []BatchItemInput `json:"items"`
}

type BatchItemResponse struct {
	ID                  string          `json:"id"`
	ProductID           string          `json:"product_id"`
	TotalQuantityBought decimal.Decimal `json:"total_quantity_bought"`
	TotalCostUZS        decimal.Decimal `json:"total_cost_uzs"`
	UnitPriceCalculated decimal.Decimal `json:"unit_price_calculated"`
}

type BatchResponse struct {
	ID           string              `json:"id"`
	PurchaserID  string              `json:"purchaser_id"`
	PurchaseDate time.Time           `json:"purchase_date"`
	Status       string              `json:"status"`
	Items        []BatchItemResponse `json:"items"`
}

// DemandLine is one store's pending request for a product, as held by the stub backend.
type DemandLine struct {
	ProductID         string           `json:"product_id" yaml:"product_id"`
	ProductName       i18n.Text        `json:"product_name" yaml:"product_name"`
	Unit              i18n.Text        `json:"unit" yaml:"unit"`
	CategoryName      i18n.Text        `json:"category_name" yaml:"category_name"`
	CategorySortOrder int              `json:"category_sort_order" yaml:"category_sort_order"`
	PriceReference    *decimal.Decimal `json:"price_reference,omitempty" yaml:"price_reference,omitempty"`
	StoreName         string           `json:"store_name" yaml:"store_name"`
	Quantity          decimal.Decimal  `json:"quantity" yaml:"quantity"`
}

type Actor struct {
	TelegramID string
	Source     string
}

package marketrun

import (
	"strings"

	"github.com/shopspring/decimal"

	"edencore/marketrun/internal/domain"
)

// SetTotalPrice records the typed total cost. When it parses positive and the
// item has a positive quantity, the unit price buffer is overwritten with
// round(total / quantity).
func (e *Engine) SetTotalPrice(productID string, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.index[productID]
	if !ok {
		return ErrUnknownItem
	}
	e.priceInputs[productID] = text

	total, ok := parsePositive(text)
	qty := e.items[idx].PurchaseQuantity
	if ok && qty.IsPositive() {
		e.unitPriceInputs[productID] = formatWhole(total.Div(qty))
	}
	return nil
}

// SetUnitPrice records the typed unit price. When it parses positive and the
// item has a positive quantity, the total cost buffer is overwritten with
// round(unit * quantity).
func (e *Engine) SetUnitPrice(productID string, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.index[productID]
	if !ok {
		return ErrUnknownItem
	}
	e.unitPriceInputs[productID] = text

	unit, ok := parsePositive(text)
	qty := e.items[idx].PurchaseQuantity
	if ok && qty.IsPositive() {
		e.priceInputs[productID] = formatWhole(unit.Mul(qty))
	}
	return nil
}

// UpdateStoreQuantity replaces one store's row in the breakdown and makes the
// row sum the item's purchase quantity. A positive unit price carries over and
// the total cost is recomputed for the new quantity.
func (e *Engine) UpdateStoreQuantity(productID string, storeName string, text string) error {
	qty, ok := parseAmount(text)
	if !ok || qty.IsNegative() {
		return ErrInvalidQuantity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.index[productID]
	if !ok {
		return ErrUnknownItem
	}
	item := &e.items[idx]

	matched := false
	for i := range item.Breakdown {
		if item.Breakdown[i].StoreName == storeName {
			item.Breakdown[i].Quantity = qty
			matched = true
		}
	}
	if !matched {
		return ErrUnknownStore
	}

	total := decimal.Zero
	for _, row := range item.Breakdown {
		total = total.Add(row.Quantity)
	}
	item.PurchaseQuantity = total
	e.version++

	if unit, ok := parsePositive(e.unitPriceInputs[productID]); ok {
		e.priceInputs[productID] = formatWhole(unit.Mul(total))
	}
	return nil
}

// parseAmount accepts plain decimals and a single comma as decimal separator.
// Values outside domain.AmountInRange count as unparsable.
func parseAmount(text string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !domain.AmountInRange(d) {
		return decimal.Zero, false
	}
	return d, true
}

func parsePositive(text string) (decimal.Decimal, bool) {
	d, ok := parseAmount(text)
	if !ok || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func formatWhole(d decimal.Decimal) string {
	return d.Round(0).String()
}

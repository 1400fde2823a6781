package store

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/i18n"
)

const uncategorized = "Uncategorized"

// Consolidate groups pending demand per product. Products are ordered by
// category sort order, then English product name; each product's breakdown
// keeps the order stores first appear in, with repeated stores summed.
func Consolidate(lines []domain.DemandLine) []domain.ConsolidatedItem {
	sorted := slices.Clone(lines)
	slices.SortStableFunc(sorted, func(a, b domain.DemandLine) int {
		if a.CategorySortOrder != b.CategorySortOrder {
			return cmp.Compare(a.CategorySortOrder, b.CategorySortOrder)
		}
		return cmp.Compare(a.ProductName[i18n.English], b.ProductName[i18n.English])
	})

	items := make([]domain.ConsolidatedItem, 0)
	pos := make(map[string]int)
	for _, line := range sorted {
		if !line.Quantity.IsPositive() {
			continue
		}
		idx, ok := pos[line.ProductID]
		if !ok {
			idx = len(items)
			pos[line.ProductID] = idx
			var ref *decimal.Decimal
			if line.PriceReference != nil {
				v := *line.PriceReference
				ref = &v
			}
			category := line.CategoryName.Clone()
			if len(category) == 0 {
				category = i18n.Text{i18n.English: uncategorized}
			}
			items = append(items, domain.ConsolidatedItem{
				ProductID:           line.ProductID,
				ProductName:         line.ProductName.Clone(),
				Unit:                line.Unit.Clone(),
				CategoryName:        category,
				PriceReference:      ref,
				TotalQuantityNeeded: decimal.Zero,
			})
		}

		item := &items[idx]
		item.TotalQuantityNeeded = item.TotalQuantityNeeded.Add(line.Quantity)
		merged := false
		for i := range item.Breakdown {
			if item.Breakdown[i].StoreName == line.StoreName {
				item.Breakdown[i].Quantity = item.Breakdown[i].Quantity.Add(line.Quantity)
				merged = true
				break
			}
		}
		if !merged {
			item.Breakdown = append(item.Breakdown, domain.StoreQuantity{StoreName: line.StoreName, Quantity: line.Quantity})
		}
	}
	return items
}

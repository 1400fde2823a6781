package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/i18n"
)

func demand(id string, name string, order int, storeName string, qty string) domain.DemandLine {
	return domain.DemandLine{
		ProductID:         id,
		ProductName:       i18n.Text{i18n.English: name},
		CategoryName:      i18n.Text{i18n.English: "cat"},
		CategorySortOrder: order,
		StoreName:         storeName,
		Quantity:          decimal.RequireFromString(qty),
	}
}

func TestConsolidateOrdersProductsAndMergesStores(t *testing.T) {
	lines := []domain.DemandLine{
		demand("p-onion", "Onion", 2, "Sergeli", "3"),
		demand("p-apple", "Apple", 2, "Chilonzor", "1"),
		demand("p-beef", "Beef", 1, "Yunusobod", "2"),
		demand("p-onion", "Onion", 2, "Chilonzor", "1.5"),
		demand("p-onion", "Onion", 2, "Sergeli", "2"),
		demand("p-apple", "Apple", 2, "Chilonzor", "0"),
	}

	items := Consolidate(lines)

	var ids []string
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	if diff := cmp.Diff([]string{"p-beef", "p-apple", "p-onion"}, ids); diff != "" {
		t.Fatalf("product order mismatch (-want +got):\n%s", diff)
	}

	onion := items[2]
	if !onion.TotalQuantityNeeded.Equal(decimal.RequireFromString("6.5")) {
		t.Fatalf("expected onion total 6.5, got %s", onion.TotalQuantityNeeded)
	}
	if len(onion.Breakdown) != 2 || onion.Breakdown[0].StoreName != "Sergeli" || !onion.Breakdown[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected merged Sergeli row first, got %+v", onion.Breakdown)
	}
	if len(items[1].Breakdown) != 1 {
		t.Fatalf("zero-quantity lines must be skipped, got %+v", items[1].Breakdown)
	}
}

func TestConsolidateDoesNotAliasInput(t *testing.T) {
	lines := []domain.DemandLine{demand("p-a", "A", 1, "S", "1")}
	items := Consolidate(lines)
	items[0].ProductName[i18n.English] = "changed"
	if lines[0].ProductName[i18n.English] != "A" {
		t.Fatalf("consolidated item shares names with demand line")
	}
	if got := Consolidate(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestConsolidateFallsBackToUncategorized(t *testing.T) {
	line := demand("p-salt", "Salt", 0, "Sergeli", "1")
	line.CategoryName = nil

	items := Consolidate([]domain.DemandLine{line})

	if len(items) != 1 || items[0].CategoryName[i18n.English] != "Uncategorized" {
		t.Fatalf("expected Uncategorized category, got %+v", items)
	}
}

package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/i18n"
	"edencore/marketrun/internal/store"
	"edencore/marketrun/internal/xid"
)

const batchStatusFinalized = "finalized"

type Store struct {
	mu      sync.RWMutex
	demand  []domain.DemandLine
	batches []domain.BatchResponse
}

type fixture struct {
	Demand []domain.DemandLine `yaml:"demand"`
}

func New(lines []domain.DemandLine) *Store {
	demand := make([]domain.DemandLine, len(lines))
	for i, line := range lines {
		demand[i] = cloneDemandLine(line)
	}
	return &Store{demand: demand}
}

// LoadFixture builds a store from a YAML file with a top-level "demand" list.
func LoadFixture(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	for i, line := range fx.Demand {
		if line.ProductID == "" || line.StoreName == "" {
			return nil, fmt.Errorf("fixture demand[%d]: product_id and store_name are required", i)
		}
	}
	return New(fx.Demand), nil
}

func NewSeeded() *Store {
	text := func(en, ru, uz, cn string) i18n.Text {
		return i18n.Text{i18n.English: en, i18n.Russian: ru, i18n.Uzbek: uz, i18n.Chinese: cn}
	}
	kg := text("kg", "кг", "kg", "公斤")
	piece := text("pcs", "шт", "dona", "个")
	vegetables := text("Vegetables", "Овощи", "Sabzavotlar", "蔬菜")
	fruits := text("Fruits", "Фрукты", "Mevalar", "水果")
	meat := text("Meat", "Мясо", "Go'sht", "肉类")
	ref := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	line := func(id string, name i18n.Text, unit i18n.Text, category i18n.Text, order int, price *decimal.Decimal, storeName string, qty string) domain.DemandLine {
		return domain.DemandLine{
			ProductID:         id,
			ProductName:       name,
			Unit:              unit,
			CategoryName:      category,
			CategorySortOrder: order,
			PriceReference:    price,
			StoreName:         storeName,
			Quantity:          decimal.RequireFromString(qty),
		}
	}

	tomato := text("Tomato", "Помидор", "Pomidor", "番茄")
	potato := text("Potato", "Картофель", "Kartoshka", "土豆")
	onion := text("Onion", "Лук", "Piyoz", "洋葱")
	apple := text("Apple", "Яблоко", "Olma", "苹果")
	lemon := text("Lemon", "Лимон", "Limon", "柠檬")
	beef := text("Beef", "Говядина", "Mol go'shti", "牛肉")

	return New([]domain.DemandLine{
		line("prod-tomato", tomato, kg, vegetables, 1, ref(14000), "Chilonzor", "12"),
		line("prod-tomato", tomato, kg, vegetables, 1, ref(14000), "Yunusobod", "8"),
		line("prod-potato", potato, kg, vegetables, 1, ref(6000), "Sergeli", "25"),
		line("prod-potato", potato, kg, vegetables, 1, ref(6000), "Chilonzor", "10"),
		line("prod-onion", onion, kg, vegetables, 1, ref(4500), "Yunusobod", "15"),
		line("prod-apple", apple, kg, fruits, 2, ref(18000), "Sergeli", "6.5"),
		line("prod-lemon", lemon, piece, fruits, 2, nil, "Chilonzor", "30"),
		line("prod-beef", beef, kg, meat, 3, ref(95000), "Yunusobod", "4"),
		line("prod-beef", beef, kg, meat, 3, ref(95000), "Sergeli", "2.5"),
	})
}

func (s *Store) ListDemand(_ context.Context) ([]domain.DemandLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DemandLine, len(s.demand))
	for i, line := range s.demand {
		out[i] = cloneDemandLine(line)
	}
	return out, nil
}

// RecordBatch validates every line before changing anything. Purchased
// products leave the pending demand.
func (s *Store) RecordBatch(_ context.Context, purchaserID string, batch domain.BatchCreate, at time.Time) (*domain.BatchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(batch.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", store.ErrInvalidBatch)
	}

	pending := make(map[string]bool, len(s.demand))
	for _, line := range s.demand {
		pending[line.ProductID] = true
	}

	seen := make(map[string]bool, len(batch.Items))
	items := make([]domain.BatchItemResponse, 0, len(batch.Items))
	for _, item := range batch.Items {
		if !item.TotalQuantityBought.IsPositive() || !item.TotalCostUZS.IsPositive() {
			return nil, fmt.Errorf("%w: product %s needs positive quantity and cost", store.ErrInvalidBatch, item.ProductID)
		}
		if !domain.AmountInRange(item.TotalQuantityBought) || !domain.AmountInRange(item.TotalCostUZS) {
			return nil, fmt.Errorf("%w: product %s amount out of range", store.ErrInvalidBatch, item.ProductID)
		}
		if seen[item.ProductID] {
			return nil, fmt.Errorf("%w: product %s listed twice", store.ErrInvalidBatch, item.ProductID)
		}
		if !pending[item.ProductID] {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
		seen[item.ProductID] = true
		items = append(items, domain.BatchItemResponse{
			ID:                  xid.New("pbi"),
			ProductID:           item.ProductID,
			TotalQuantityBought: item.TotalQuantityBought,
			TotalCostUZS:        item.TotalCostUZS,
			UnitPriceCalculated: item.TotalCostUZS.Div(item.TotalQuantityBought).Round(2),
		})
	}

	s.demand = slices.DeleteFunc(s.demand, func(line domain.DemandLine) bool {
		return seen[line.ProductID]
	})

	resp := domain.BatchResponse{
		ID:           xid.New("batch"),
		PurchaserID:  purchaserID,
		PurchaseDate: at.UTC(),
		Status:       batchStatusFinalized,
		Items:        items,
	}
	s.batches = append(s.batches, resp)

	out := cloneBatch(resp)
	return &out, nil
}

// Batches returns every recorded batch, oldest first.
func (s *Store) Batches() []domain.BatchResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BatchResponse, len(s.batches))
	for i, b := range s.batches {
		out[i] = cloneBatch(b)
	}
	return out
}

func cloneDemandLine(src domain.DemandLine) domain.DemandLine {
	dst := src
	dst.ProductName = src.ProductName.Clone()
	dst.Unit = src.Unit.Clone()
	dst.CategoryName = src.CategoryName.Clone()
	if src.PriceReference != nil {
		v := *src.PriceReference
		dst.PriceReference = &v
	}
	return dst
}

func cloneBatch(src domain.BatchResponse) domain.BatchResponse {
	dst := src
	dst.Items = slices.Clone(src.Items)
	return dst
}

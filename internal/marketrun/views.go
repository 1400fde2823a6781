package marketrun

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/i18n"
)

const defaultStallName = "General"

type CategorySection struct {
	Name  string
	Items []domain.MarketItem
}

type StoreLine struct {
	Item     domain.MarketItem
	Quantity decimal.Decimal
}

type StoreSection struct {
	StoreName string
	Lines     []StoreLine
}

type StallSection struct {
	Name  string
	Items []domain.MarketItem
}

type Progress struct {
	Total    int
	Bought   int
	SpentUZS decimal.Decimal
}

type viewCache struct {
	valid        bool
	version      uint64
	lang         i18n.Language
	shopping     []CategorySection
	distribution []StoreSection
	stalls       []StallSection
}

// GroupByCategory keeps categories in the order they first appear.
func GroupByCategory(items []domain.MarketItem, lang i18n.Language) []CategorySection {
	var sections []CategorySection
	pos := make(map[string]int)
	for _, item := range items {
		name := i18n.Translate(item.CategoryName, lang)
		idx, ok := pos[name]
		if !ok {
			idx = len(sections)
			pos[name] = idx
			sections = append(sections, CategorySection{Name: name})
		}
		sections[idx].Items = append(sections[idx].Items, item.Clone())
	}
	return sections
}

// GroupByStore inverts every breakdown into per-store lines, stores sorted by name.
func GroupByStore(items []domain.MarketItem) []StoreSection {
	byStore := make(map[string][]StoreLine)
	for _, item := range items {
		for _, row := range item.Breakdown {
			byStore[row.StoreName] = append(byStore[row.StoreName], StoreLine{Item: item.Clone(), Quantity: row.Quantity})
		}
	}
	names := make([]string, 0, len(byStore))
	for name := range byStore {
		names = append(names, name)
	}
	sort.Strings(names)

	sections := make([]StoreSection, 0, len(names))
	for _, name := range names {
		sections = append(sections, StoreSection{StoreName: name, Lines: byStore[name]})
	}
	return sections
}

// GroupByStall uses the English category name as the stall, sorted.
func GroupByStall(items []domain.MarketItem) []StallSection {
	byStall := make(map[string][]domain.MarketItem)
	for _, item := range items {
		name := item.CategoryName[i18n.English]
		if name == "" {
			name = defaultStallName
		}
		byStall[name] = append(byStall[name], item.Clone())
	}
	names := make([]string, 0, len(byStall))
	for name := range byStall {
		names = append(names, name)
	}
	sort.Strings(names)

	sections := make([]StallSection, 0, len(names))
	for _, name := range names {
		sections = append(sections, StallSection{Name: name, Items: byStall[name]})
	}
	return sections
}

type nameSource struct {
	names  []string
	owners []int
}

func (s nameSource) String(i int) string { return s.names[i] }
func (s nameSource) Len() int            { return len(s.names) }

// Search fuzzy-matches query against product names in every language. Each
// item appears once, at the rank of its best-matching name.
func Search(items []domain.MarketItem, query string) []domain.MarketItem {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]domain.MarketItem, len(items))
		for i, item := range items {
			out[i] = item.Clone()
		}
		return out
	}

	var src nameSource
	for i, item := range items {
		for _, lang := range i18n.Supported() {
			if name := item.ProductName[lang]; name != "" {
				src.names = append(src.names, name)
				src.owners = append(src.owners, i)
			}
		}
	}

	seen := make(map[int]bool)
	var out []domain.MarketItem
	for _, match := range fuzzy.FindFrom(query, src) {
		owner := src.owners[match.Index]
		if seen[owner] {
			continue
		}
		seen[owner] = true
		out = append(out, items[owner].Clone())
	}
	return out
}

// ShoppingSections, DistributionSections and StallSections are rebuilt only
// after the item list or language changes. The returned slices are shared and
// must not be modified.
func (e *Engine) ShoppingSections() []CategorySection {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshViewsLocked()
	return e.views.shopping
}

func (e *Engine) DistributionSections() []StoreSection {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshViewsLocked()
	return e.views.distribution
}

func (e *Engine) StallSections() []StallSection {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshViewsLocked()
	return e.views.stalls
}

func (e *Engine) refreshViewsLocked() {
	if e.views.valid && e.views.version == e.version && e.views.lang == e.lang {
		return
	}
	e.views = viewCache{
		valid:        true,
		version:      e.version,
		lang:         e.lang,
		shopping:     GroupByCategory(e.items, e.lang),
		distribution: GroupByStore(e.items),
		stalls:       GroupByStall(e.items),
	}
}

func (e *Engine) Search(query string) []domain.MarketItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Search(e.items, query)
}

// Resolve finds a product by id or by any of its names, ignoring case.
func (e *Engine) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.index[ref]; ok {
		return ref, true
	}
	for _, item := range e.items {
		for _, name := range item.ProductName {
			if name != "" && strings.EqualFold(name, ref) {
				return item.ProductID, true
			}
		}
	}
	return "", false
}

// Progress counts bought items and sums their total cost, resolved the same
// way Finalize resolves it.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := Progress{Total: len(e.items), SpentUZS: decimal.Zero}
	for _, item := range e.items {
		if item.Status != domain.StatusBought {
			continue
		}
		p.Bought++
		if price, ok := e.totalPriceLocked(item); ok {
			p.SpentUZS = p.SpentUZS.Add(price)
		}
	}
	return p
}

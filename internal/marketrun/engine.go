// Package marketrun holds the purchaser's working model of a market run:
// the consolidated shopping list, per-item bought flags, price and quantity
// reconciliation, and batch finalization.
package marketrun

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/i18n"
	"edencore/marketrun/internal/notify"
)

var (
	ErrUnknownItem      = errors.New("unknown product")
	ErrUnknownStore     = errors.New("unknown store for product")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrNoItemsBought    = errors.New("no items marked as bought")
	ErrSubmitInProgress = errors.New("batch submission already in progress")
)

type Source interface {
	GetConsolidation(ctx context.Context) ([]domain.ConsolidatedItem, error)
	SubmitBatch(ctx context.Context, batch domain.BatchCreate) (*domain.BatchResponse, error)
}

// Haptics receives tactile cues on devices that support them.
type Haptics interface {
	ImpactOccurred(style string)
}

type Options struct {
	Notifier       notify.Notifier
	Haptics        Haptics
	Language       i18n.Language
	MarketLocation string
	Logger         *zap.Logger
}

const fetchKey = "consolidation"

type Engine struct {
	source   Source
	notifier notify.Notifier
	haptics  Haptics
	logger   *zap.Logger
	fetches  singleflight.Group

	mu              sync.Mutex
	lang            i18n.Language
	marketLocation  string
	items           []domain.MarketItem
	index           map[string]int
	priceInputs     map[string]string
	unitPriceInputs map[string]string
	version         uint64
	generation      uint64
	settled         uint64
	failureNotified uint64
	inflight        int
	submitting      bool
	views           viewCache
}

func NewEngine(source Source, opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if !opts.Language.Valid() {
		opts.Language = i18n.DefaultLanguage
	}

	return &Engine{
		source:          source,
		notifier:        opts.Notifier,
		haptics:         opts.Haptics,
		logger:          opts.Logger,
		lang:            opts.Language,
		marketLocation:  opts.MarketLocation,
		index:           make(map[string]int),
		priceInputs:     make(map[string]string),
		unitPriceInputs: make(map[string]string),
	}
}

type fetchResult struct {
	generation uint64
	items      []domain.ConsolidatedItem
	err        error
}

// Load fetches the consolidated list and replaces the working model with it.
// Concurrent calls share one request, which runs detached from any single
// caller's context and is applied even if every caller has stopped waiting.
// A response older than the last one applied is discarded. On failure the
// current model is left untouched.
func (e *Engine) Load(ctx context.Context) error {
	return e.load(ctx, false)
}

func (e *Engine) load(ctx context.Context, fresh bool) error {
	if fresh {
		e.fetches.Forget(fetchKey)
	}
	shared := context.WithoutCancel(ctx)
	ch := e.fetches.DoChan(fetchKey, func() (any, error) {
		e.mu.Lock()
		e.generation++
		gen := e.generation
		e.inflight++
		e.mu.Unlock()

		items, err := e.source.GetConsolidation(shared)

		e.mu.Lock()
		e.inflight--
		e.mu.Unlock()
		return nil, e.settle(fetchResult{generation: gen, items: items, err: err})
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("load consolidation: %w", ctx.Err())
	}
}

func (e *Engine) settle(res fetchResult) error {
	e.mu.Lock()
	if res.err != nil {
		report := res.generation > e.failureNotified
		if report {
			e.failureNotified = res.generation
		}
		lang := e.lang
		e.mu.Unlock()

		if report {
			e.logger.Warn("consolidation fetch failed", zap.Uint64("generation", res.generation), zap.Error(res.err))
			e.notify(notify.Notice{Kind: notify.KindError, Key: i18n.KeyFailedLoadItems, Text: i18n.UI(lang, i18n.KeyFailedLoadItems)})
		}
		return fmt.Errorf("load consolidation: %w", res.err)
	}
	defer e.mu.Unlock()

	if res.generation <= e.settled {
		return nil
	}
	e.settled = res.generation
	e.replaceLocked(res.items)
	e.logger.Debug("consolidation loaded", zap.Uint64("generation", res.generation), zap.Int("items", len(e.items)))
	return nil
}

func (e *Engine) replaceLocked(src []domain.ConsolidatedItem) {
	items := make([]domain.MarketItem, 0, len(src))
	index := make(map[string]int, len(src))
	for _, ci := range src {
		if _, dup := index[ci.ProductID]; dup {
			e.logger.Warn("duplicate product in consolidation", zap.String("product_id", ci.ProductID))
			continue
		}
		item := domain.MarketItem{
			ConsolidatedItem: ci,
			Status:           domain.StatusPending,
			PurchaseQuantity: ci.TotalQuantityNeeded,
		}
		index[ci.ProductID] = len(items)
		items = append(items, item.Clone())
	}

	e.items = items
	e.index = index
	e.priceInputs = make(map[string]string)
	e.unitPriceInputs = make(map[string]string)
	e.version++
}

// ToggleBought marks an item bought or pending. Prices and quantities are not touched.
func (e *Engine) ToggleBought(productID string, bought bool) error {
	e.mu.Lock()
	idx, ok := e.index[productID]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownItem
	}
	status := domain.StatusPending
	if bought {
		status = domain.StatusBought
	}
	e.items[idx].Status = status
	e.version++
	e.mu.Unlock()

	if e.haptics != nil {
		e.haptics.ImpactOccurred("light")
	}
	return nil
}

func (e *Engine) Items() []domain.MarketItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.MarketItem, len(e.items))
	for i, item := range e.items {
		out[i] = item.Clone()
	}
	return out
}

func (e *Engine) Item(productID string) (domain.MarketItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.index[productID]
	if !ok {
		return domain.MarketItem{}, false
	}
	return e.items[idx].Clone(), true
}

func (e *Engine) PriceInputs() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyInputs(e.priceInputs)
}

func (e *Engine) UnitPriceInputs() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyInputs(e.unitPriceInputs)
}

func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight > 0
}

func (e *Engine) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

func (e *Engine) Language() i18n.Language {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lang
}

func (e *Engine) SetLanguage(lang i18n.Language) {
	if !lang.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lang = lang
}

func (e *Engine) MarketLocation() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marketLocation
}

func (e *Engine) SetMarketLocation(location string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marketLocation = location
}

func (e *Engine) notify(n notify.Notice) {
	e.notifier.Notify(n)
}

func copyInputs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

package marketrun

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"edencore/marketrun/internal/domain"
	"edencore/marketrun/internal/i18n"
	"edencore/marketrun/internal/notify"
)

const unknownLocation = "Unknown"

type ValidationError struct {
	ProductID   string
	ProductName string
	Field       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s for %s", e.Field, e.ProductName)
}

// Finalize validates every bought item and submits them as one batch. Any
// invalid item aborts the whole batch before a request is made. On success
// the input buffers are cleared and the list is fetched again; on a submit
// failure the local state is kept for a retry.
func (e *Engine) Finalize(ctx context.Context) (*domain.BatchResponse, error) {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	batch, notice, err := e.buildBatchLocked()
	if err != nil {
		e.mu.Unlock()
		e.notify(notice)
		return nil, err
	}
	e.submitting = true
	lang := e.lang
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
	}()

	resp, err := e.source.SubmitBatch(ctx, batch)
	if err != nil {
		e.logger.Error("batch submission failed", zap.Int("items", len(batch.Items)), zap.Error(err))
		e.notify(notify.Notice{Kind: notify.KindError, Key: i18n.KeyBatchError, Text: i18n.UI(lang, i18n.KeyBatchError)})
		return nil, fmt.Errorf("submit batch: %w", err)
	}

	e.logger.Info("batch finalized",
		zap.String("batch_id", resp.ID),
		zap.String("market_location", batch.MarketLocation),
		zap.Int("items", len(batch.Items)),
	)
	e.notify(notify.Notice{Kind: notify.KindSuccess, Key: i18n.KeyBatchFinalized, Text: i18n.UI(lang, i18n.KeyBatchFinalized)})

	e.mu.Lock()
	e.priceInputs = make(map[string]string)
	e.unitPriceInputs = make(map[string]string)
	e.mu.Unlock()

	if err := e.load(ctx, true); err != nil {
		e.logger.Warn("reload after batch failed", zap.Error(err))
	}
	return resp, nil
}

func (e *Engine) buildBatchLocked() (domain.BatchCreate, notify.Notice, error) {
	var bought []int
	for i, item := range e.items {
		if item.Status == domain.StatusBought {
			bought = append(bought, i)
		}
	}
	if len(bought) == 0 {
		return domain.BatchCreate{}, notify.Notice{
			Kind: notify.KindInfo,
			Key:  i18n.KeyNoItemsBought,
			Text: i18n.UI(e.lang, i18n.KeyNoItemsBought),
		}, ErrNoItemsBought
	}

	inputs := make([]domain.BatchItemInput, 0, len(bought))
	for _, idx := range bought {
		item := e.items[idx]
		name := i18n.Translate(item.ProductName, e.lang)

		price, ok := e.totalPriceLocked(item)
		if !ok {
			return domain.BatchCreate{}, e.invalidNotice(i18n.KeyEnterValidCost, item.ProductID, name),
				&ValidationError{ProductID: item.ProductID, ProductName: name, Field: "total_cost"}
		}
		if !item.PurchaseQuantity.IsPositive() {
			return domain.BatchCreate{}, e.invalidNotice(i18n.KeyEnterValidQty, item.ProductID, name),
				&ValidationError{ProductID: item.ProductID, ProductName: name, Field: "quantity"}
		}

		inputs = append(inputs, domain.BatchItemInput{
			ProductID:           item.ProductID,
			TotalQuantityBought: item.PurchaseQuantity,
			TotalCostUZS:        price,
		})
	}

	for i, idx := range bought {
		committed := inputs[i].TotalCostUZS
		e.items[idx].PurchasePrice = &committed
	}
	e.version++

	location := strings.TrimSpace(e.marketLocation)
	if location == "" {
		location = unknownLocation
	}
	return domain.BatchCreate{MarketLocation: location, Items: inputs}, notify.Notice{}, nil
}

// totalPriceLocked resolves an item's total cost: the typed buffer when it is
// not blank, otherwise the price committed by an earlier finalize attempt.
func (e *Engine) totalPriceLocked(item domain.MarketItem) (decimal.Decimal, bool) {
	priceText := e.priceInputs[item.ProductID]
	if strings.TrimSpace(priceText) == "" && item.PurchasePrice != nil {
		priceText = item.PurchasePrice.String()
	}
	return parsePositive(priceText)
}

func (e *Engine) invalidNotice(key i18n.Key, productID string, name string) notify.Notice {
	return notify.Notice{
		Kind:      notify.KindError,
		Key:       key,
		Text:      i18n.UI(e.lang, key) + " " + name,
		ProductID: productID,
	}
}

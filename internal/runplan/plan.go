// Package runplan reads YAML run plans and replays them against a market-run
// engine, so a whole purchasing session can be scripted from the CLI.
package runplan

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyPlan = errors.New("run plan has no items")

type Plan struct {
	MarketLocation string `yaml:"market_location"`
	Items          []Item `yaml:"items"`
}

type Item struct {
	Product   string      `yaml:"product"`
	Bought    *bool       `yaml:"bought"`
	Total     *string     `yaml:"total"`
	UnitPrice *string     `yaml:"unit_price"`
	Stores    []StoreEdit `yaml:"stores"`
}

type StoreEdit struct {
	Store    string `yaml:"store"`
	Quantity string `yaml:"quantity"`
}

// Engine is the part of marketrun.Engine a plan drives.
type Engine interface {
	Resolve(ref string) (string, bool)
	UpdateStoreQuantity(productID string, storeName string, text string) error
	SetUnitPrice(productID string, text string) error
	SetTotalPrice(productID string, text string) error
	ToggleBought(productID string, bought bool) error
	SetMarketLocation(location string)
}

func Parse(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var plan Plan
	if err := dec.Decode(&plan); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPlan
		}
		return nil, fmt.Errorf("decode run plan: %w", err)
	}
	if err := plan.validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run plan: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (p *Plan) validate() error {
	if len(p.Items) == 0 {
		return ErrEmptyPlan
	}
	for i, item := range p.Items {
		if strings.TrimSpace(item.Product) == "" {
			return fmt.Errorf("items[%d]: product is required", i)
		}
		for j, edit := range item.Stores {
			if strings.TrimSpace(edit.Store) == "" {
				return fmt.Errorf("items[%d].stores[%d]: store is required", i, j)
			}
		}
	}
	return nil
}

// Apply replays the plan. For each item the store quantities go first, then
// the unit price, then the total, then the bought flag, so a total given in
// the plan wins over one derived from the unit price.
func (p *Plan) Apply(engine Engine) error {
	if loc := strings.TrimSpace(p.MarketLocation); loc != "" {
		engine.SetMarketLocation(loc)
	}
	for i, item := range p.Items {
		id, ok := engine.Resolve(item.Product)
		if !ok {
			return fmt.Errorf("items[%d]: product %q not in the consolidated list", i, item.Product)
		}
		for _, edit := range item.Stores {
			if err := engine.UpdateStoreQuantity(id, edit.Store, edit.Quantity); err != nil {
				return fmt.Errorf("items[%d]: store %s: %w", i, edit.Store, err)
			}
		}
		if item.UnitPrice != nil {
			if err := engine.SetUnitPrice(id, *item.UnitPrice); err != nil {
				return fmt.Errorf("items[%d]: unit price: %w", i, err)
			}
		}
		if item.Total != nil {
			if err := engine.SetTotalPrice(id, *item.Total); err != nil {
				return fmt.Errorf("items[%d]: total: %w", i, err)
			}
		}
		if item.Bought != nil {
			if err := engine.ToggleBought(id, *item.Bought); err != nil {
				return fmt.Errorf("items[%d]: bought: %w", i, err)
			}
		}
	}
	return nil
}

// Package market owns the asset price table and the simulator that moves
// it. Prices are the only market-mutable state; user records are never
// touched from here.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"coinmint/internal/catalog"
	"coinmint/internal/clock"
	"coinmint/internal/model"
	"coinmint/internal/store"
)

var ErrAssetNotFound = errors.New("asset not found")

// pricePlaces is the fixed decimal precision every update rounds to.
const pricePlaces = 2

// Book is the live asset table: read by trading operations at execution
// time, written only by the simulator. Every write goes through to the
// store before it becomes visible.
type Book struct {
	store store.Store
	log   *slog.Logger
	clock clock.Clock

	mu     sync.RWMutex
	assets map[string]*model.Asset
}

func NewBook(st store.Store, logger *slog.Logger, clk clock.Clock) *Book {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Book{
		store:  st,
		log:    logger,
		clock:  clk,
		assets: make(map[string]*model.Asset),
	}
}

// Load pulls the persisted asset snapshot and seeds any catalog asset not
// yet present at its base price.
func (b *Book) Load(ctx context.Context, cat *catalog.Catalog) error {
	snap, err := b.store.LoadAssets(ctx)
	if err != nil {
		return fmt.Errorf("load assets: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assets = snap
	seeded := 0
	for _, def := range cat.Assets {
		if _, ok := b.assets[def.ID]; ok {
			continue
		}
		asset := &model.Asset{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Price:       def.BasePrice.Round(pricePlaces),
			Floor:       def.Floor,
			Micro:       def.Micro,
			UpdatedAt:   b.clock.Now(),
		}
		if err := b.store.PutAsset(ctx, asset); err != nil {
			return fmt.Errorf("seed asset %s: %w", def.ID, err)
		}
		b.assets[def.ID] = asset
		seeded++
	}
	b.log.Info("market book loaded", "assets", len(b.assets), "seeded", seeded)
	return nil
}

// Get returns a copy of the asset.
func (b *Book) Get(id string) (model.Asset, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.assets[id]
	if !ok {
		return model.Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return *a, nil
}

// Price returns the latest committed price for an asset.
func (b *Book) Price(id string) (decimal.Decimal, error) {
	a, err := b.Get(id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Price, nil
}

// List returns copies of all assets sorted by id.
func (b *Book) List() []model.Asset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Asset, 0, len(b.assets))
	for _, a := range b.assets {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// adjust multiplies one asset's price by factor, clamped to the floor and
// rounded to the fixed precision, and persists the result. Returns the
// new price.
func (b *Book) adjust(ctx context.Context, id string, factor decimal.Decimal) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.assets[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	next := a.Price.Mul(factor).Round(pricePlaces)
	if next.LessThan(a.Floor) {
		next = a.Floor
	}
	updated := *a
	updated.Price = next
	updated.UpdatedAt = b.clock.Now()
	if err := b.store.PutAsset(ctx, &updated); err != nil {
		return decimal.Zero, fmt.Errorf("persist asset %s: %w", id, err)
	}
	b.assets[id] = &updated
	return next, nil
}

// ids returns all asset ids, optionally only micro-tradeable ones.
func (b *Book) ids(microOnly bool) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.assets))
	for id, a := range b.assets {
		if microOnly && !a.Micro {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

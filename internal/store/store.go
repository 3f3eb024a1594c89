// Package store defines the persistence interface for accounts and
// assets. Implementations include SQLite (default, single file),
// PostgreSQL, and in-memory (for testing).
//
// The contract is snapshot-at-startup plus write-through: callers load
// the full record set once, then persist every committed mutation before
// reporting success.
package store

import (
	"context"

	"coinmint/internal/model"
)

type Store interface {
	// LoadAccounts returns every persisted account, keyed by id.
	LoadAccounts(ctx context.Context) (map[string]*model.Account, error)

	// PutAccount durably writes one account record.
	PutAccount(ctx context.Context, acct *model.Account) error

	// LoadAssets returns every persisted asset, keyed by id.
	LoadAssets(ctx context.Context) (map[string]*model.Asset, error)

	// PutAsset durably writes one asset record.
	PutAsset(ctx context.Context, asset *model.Asset) error

	Close() error
}

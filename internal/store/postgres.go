package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coinmint/internal/model"
)

// Postgres stores records as JSONB rows. Selected when a database URL is
// configured; otherwise SQLite is used.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id   TEXT PRIMARY KEY,
			data JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS assets (
			id   TEXT PRIMARY KEY,
			data JSONB NOT NULL
		);`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) LoadAccounts(ctx context.Context) (map[string]*model.Account, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*model.Account)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var a model.Account
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out[a.ID] = &a
	}
	return out, rows.Err()
}

func (p *Postgres) PutAccount(ctx context.Context, acct *model.Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO accounts (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, acct.ID, raw)
	return err
}

func (p *Postgres) LoadAssets(ctx context.Context) (map[string]*model.Asset, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM assets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*model.Asset)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var a model.Asset
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		out[a.ID] = &a
	}
	return out, rows.Err()
}

func (p *Postgres) PutAsset(ctx context.Context, asset *model.Asset) error {
	raw, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("encode asset: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO assets (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, asset.ID, raw)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

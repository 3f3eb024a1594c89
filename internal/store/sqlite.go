package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"coinmint/internal/model"
)

// SQLite is the default durable store: one file, records as JSON blobs.
// WAL mode keeps writers from blocking the read path.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under concurrent mutates.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA synchronous=FULL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS assets (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) LoadAccounts(ctx context.Context) (map[string]*model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM accounts`)
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

func (s *SQLite) PutAccount(ctx context.Context, acct *model.Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, data) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, acct.ID, raw)
	return err
}

func (s *SQLite) LoadAssets(ctx context.Context) (map[string]*model.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM assets`)
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

func (s *SQLite) PutAsset(ctx context.Context, asset *model.Asset) error {
	raw, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("encode asset: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assets (id, data) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data
	`, asset.ID, raw)
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }

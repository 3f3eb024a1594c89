package store

import (
	"context"
	"sync"

	"coinmint/internal/model"
)

// Memory implements Store with in-memory maps. Used for testing and
// development; nothing survives a restart.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	assets   map[string]*model.Asset
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*model.Account),
		assets:   make(map[string]*model.Asset),
	}
}

func (m *Memory) LoadAccounts(_ context.Context) (map[string]*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*model.Account, len(m.accounts))
	for id, a := range m.accounts {
		out[id] = a.Clone()
	}
	return out, nil
}

func (m *Memory) PutAccount(_ context.Context, acct *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.ID] = acct.Clone()
	return nil
}

func (m *Memory) LoadAssets(_ context.Context) (map[string]*model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*model.Asset, len(m.assets))
	for id, a := range m.assets {
		cp := *a
		out[id] = &cp
	}
	return out, nil
}

func (m *Memory) PutAsset(_ context.Context, asset *model.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *asset
	m.assets[asset.ID] = &cp
	return nil
}

func (m *Memory) Close() error { return nil }

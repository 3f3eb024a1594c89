// Package ledger owns every account record. All reads return copies and
// all writes go through Mutate or Transfer, which serialize per account
// and persist the result before reporting success.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"coinmint/internal/clock"
	"coinmint/internal/model"
	"coinmint/internal/store"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrInvalidAmount     = errors.New("amount must be > 0")
)

type entry struct {
	mu   sync.Mutex
	acct *model.Account
}

// Ledger keeps the authoritative in-memory copy of every account and
// writes through to the store on each committed mutation. Per-account
// locks make concurrent mutations of one account linearizable without a
// global lock.
type Ledger struct {
	store store.Store
	log   *slog.Logger
	clock clock.Clock

	mu       sync.Mutex // guards the accounts map, never held during a mutation
	accounts map[string]*entry
}

func New(st store.Store, logger *slog.Logger, clk clock.Clock) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Ledger{
		store:    st,
		log:      logger,
		clock:    clk,
		accounts: make(map[string]*entry),
	}
}

// Load replaces the in-memory set with the store snapshot. Called once at
// startup, before any command is served.
func (l *Ledger) Load(ctx context.Context) error {
	snap, err := l.store.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[string]*entry, len(snap))
	for id, acct := range snap {
		l.accounts[id] = &entry{acct: acct}
	}
	l.log.Info("ledger loaded", "accounts", len(snap))
	return nil
}

// entryFor returns the lock entry for an account, creating and persisting
// a default record on first access.
func (l *Ledger) entryFor(ctx context.Context, id string) (*entry, error) {
	l.mu.Lock()
	e, ok := l.accounts[id]
	if !ok {
		e = &entry{acct: model.NewAccount(id, l.clock.Now())}
		l.accounts[id] = e
	}
	l.mu.Unlock()
	if !ok {
		if err := l.store.PutAccount(ctx, e.acct); err != nil {
			return nil, fmt.Errorf("persist new account: %w", err)
		}
	}
	return e, nil
}

// Exists reports whether an account has ever been created. Used by
// multi-party operations that must not conjure a target into existence.
func (l *Ledger) Exists(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accounts[id]
	return ok
}

// Get returns a copy of the account, creating the default record
// idempotently on first access.
func (l *Ledger) Get(ctx context.Context, id string) (model.Account, error) {
	e, err := l.entryFor(ctx, id)
	if err != nil {
		return model.Account{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.acct.Clone(), nil
}

// Mutate applies fn to a working copy of the account under its lock. If
// fn returns an error nothing is applied. The new record is persisted
// before the lock is released; a failed persist rolls the change back.
func (l *Ledger) Mutate(ctx context.Context, id string, fn func(*model.Account) error) (model.Account, error) {
	e, err := l.entryFor(ctx, id)
	if err != nil {
		return model.Account{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.acct.Clone()
	if err := fn(work); err != nil {
		return model.Account{}, err
	}
	if err := checkInvariants(work); err != nil {
		return model.Account{}, err
	}
	work.UpdatedAt = l.clock.Now()
	if err := l.store.PutAccount(ctx, work); err != nil {
		return model.Account{}, fmt.Errorf("persist account: %w", err)
	}
	e.acct = work
	return *work.Clone(), nil
}

// Transfer atomically debits one account and credits another. Locks are
// taken in sorted id order so two opposing transfers cannot deadlock.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return fmt.Errorf("transfer: %w: cannot pay yourself", ErrInvalidAmount)
	}
	if !l.Exists(toID) {
		return fmt.Errorf("transfer to %q: %w", toID, ErrUnknownAccount)
	}

	from, err := l.entryFor(ctx, fromID)
	if err != nil {
		return err
	}
	to, err := l.entryFor(ctx, toID)
	if err != nil {
		return err
	}

	first, second := from, to
	if fromID > toID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.acct.Balance < amount {
		return ErrInsufficientFunds
	}

	now := l.clock.Now()
	newFrom := from.acct.Clone()
	newTo := to.acct.Clone()
	newFrom.Balance -= amount
	newTo.Balance += amount
	newFrom.UpdatedAt = now
	newTo.UpdatedAt = now

	if err := l.store.PutAccount(ctx, newFrom); err != nil {
		return fmt.Errorf("persist debit: %w", err)
	}
	if err := l.store.PutAccount(ctx, newTo); err != nil {
		// Put the original debit record back so storage matches memory.
		if rerr := l.store.PutAccount(ctx, from.acct); rerr != nil {
			l.log.Error("transfer rollback failed", "from", fromID, "err", rerr)
		}
		return fmt.Errorf("persist credit: %w", err)
	}
	from.acct = newFrom
	to.acct = newTo
	return nil
}

// Snapshot returns a copy of every account, for leaderboards and tests.
func (l *Ledger) Snapshot() []model.Account {
	l.mu.Lock()
	entries := make([]*entry, 0, len(l.accounts))
	for _, e := range l.accounts {
		entries = append(entries, e)
	}
	l.mu.Unlock()

	out := make([]model.Account, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, *e.acct.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func checkInvariants(a *model.Account) error {
	if a.Balance < 0 {
		return ErrInsufficientFunds
	}
	for id, qty := range a.Inventory {
		if qty < 0 {
			return fmt.Errorf("inventory %q: quantity below zero", id)
		}
	}
	for id, pos := range a.Investments {
		if pos.Quantity < 0 {
			return fmt.Errorf("investment %q: quantity below zero", id)
		}
	}
	if a.Experience < 0 || a.Experience >= model.ExpPerLevel {
		return fmt.Errorf("experience %d out of range", a.Experience)
	}
	return nil
}

// Package model holds the persisted record types shared by the ledger,
// the market book, and the store implementations.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// StarterBalance is the balance a brand-new account opens with.
	StarterBalance = int64(1000)

	// ExpPerLevel is the experience threshold at which a level is gained.
	ExpPerLevel = 1000

	// JobExpPerLevel is the job experience threshold per job level.
	JobExpPerLevel = 500
)

// Account is one user's economic record. It is owned by the ledger; all
// writes go through ledger.Mutate or ledger.Transfer.
type Account struct {
	ID            string               `json:"id"`
	Balance       int64                `json:"balance"`
	Experience    int                  `json:"experience"`
	Level         int                  `json:"level"`
	JobID         string               `json:"job_id,omitempty"`
	JobLevel      int                  `json:"job_level,omitempty"`
	JobExperience int                  `json:"job_experience,omitempty"`
	Inventory     map[string]int64     `json:"inventory"`
	Investments   map[string]Position  `json:"investments,omitempty"`
	Cooldowns     map[string]time.Time `json:"cooldowns,omitempty"`
	Boosters      map[string]time.Time `json:"boosters,omitempty"`
	Achievements  map[string]bool      `json:"achievements,omitempty"`
	QuestProgress map[string]int64     `json:"quest_progress,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Position is an investment holding with average-cost tracking.
type Position struct {
	Quantity int64           `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
}

// Asset is a market-wide tradeable instrument. Price is the only field
// mutated after startup, and only by the market simulator.
type Asset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Floor       decimal.Decimal `json:"floor"`
	Micro       bool            `json:"micro"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewAccount returns the default record created on first access.
func NewAccount(id string, now time.Time) *Account {
	return &Account{
		ID:            id,
		Balance:       StarterBalance,
		Experience:    0,
		Level:         1,
		Inventory:     make(map[string]int64),
		Investments:   make(map[string]Position),
		Cooldowns:     make(map[string]time.Time),
		Boosters:      make(map[string]time.Time),
		Achievements:  make(map[string]bool),
		QuestProgress: make(map[string]int64),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone deep-copies the account so a mutation can be discarded on error
// without touching the committed record.
func (a *Account) Clone() *Account {
	out := *a
	out.Inventory = copyMap(a.Inventory)
	out.Investments = copyMap(a.Investments)
	out.Cooldowns = copyMap(a.Cooldowns)
	out.Boosters = copyMap(a.Boosters)
	out.Achievements = copyMap(a.Achievements)
	out.QuestProgress = copyMap(a.QuestProgress)
	return &out
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

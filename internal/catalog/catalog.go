// Package catalog holds the fixed content tables: assets, boosters, jobs,
// achievements, quests, horses, and the numeric tuning knobs. Everything
// here is loaded once at startup and never mutated afterwards; runtime
// price state lives in the market book, not here.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Catalog struct {
	Assets       []AssetDef
	Boosters     map[string]BoosterDef
	Jobs         []JobDef
	Achievements []Achievement
	Quests       []QuestDef
	Horses       []Horse
	SlotSymbols  []string
	PlinkoTable  []float64
	Tuning       Tuning
}

// AssetDef seeds one market asset. Micro assets also move on the fast
// simulator tick.
type AssetDef struct {
	ID          string
	Name        string
	Description string
	BasePrice   decimal.Decimal
	Floor       decimal.Decimal
	Micro       bool
}

// BoosterDef is keyed by the inventory item that activates it.
type BoosterDef struct {
	Action   string        // cooldown action the booster accelerates
	Factor   float64       // effective cooldown = base * Factor
	Duration time.Duration // active window after use
}

type JobDef struct {
	ID             string
	Name           string
	SalaryBase     int64
	SalaryPerLevel int64
	ExpPerShift    int
}

// Stats is the read-only snapshot achievement predicates run against.
type Stats struct {
	Balance        int64
	Level          int
	InventoryCount int64
	JobLevel       int
	QuestsDone     int
}

type Achievement struct {
	ID     string
	Name   string
	Reward int64
	Test   func(Stats) bool
}

type QuestDef struct {
	ID     string
	Name   string
	Event  string // progression event that advances the quest
	Target int64
	Reward int64
}

type Horse struct {
	Name   string
	Payout float64 // stake multiplier credited on a win
	Stride int     // max advance per tick, exclusive
}

// Tuning is the numeric knob set. It can be overridden from a YAML file;
// everything else in the catalog is code.
type Tuning struct {
	MaxBet          int64   `yaml:"max_bet"`
	ActionCooldown  int     `yaml:"action_cooldown_seconds"`
	JobCooldown     int     `yaml:"job_cooldown_seconds"`
	LootboxCooldown int     `yaml:"lootbox_cooldown_seconds"`
	RobCooldown     int     `yaml:"rob_cooldown_seconds"`
	DailyMin        int64   `yaml:"daily_min"`
	DailyMax        int64   `yaml:"daily_max"`
	WorkMin         int64   `yaml:"work_min"`
	WorkMax         int64   `yaml:"work_max"`
	ShopResaleRate  float64 `yaml:"shop_resale_rate"`
	CoinflipPayout  float64 `yaml:"coinflip_payout"`
	SlotsTriple     float64 `yaml:"slots_triple"`
	SlotsPair       float64 `yaml:"slots_pair"`
	CupsPayout      float64 `yaml:"cups_payout"`
	RobSuccessProb  float64 `yaml:"rob_success_prob"`
	RobStealMin     float64 `yaml:"rob_steal_min"`
	RobStealMax     float64 `yaml:"rob_steal_max"`
	RobPenaltyMin   float64 `yaml:"rob_penalty_min"`
	RobPenaltyMax   float64 `yaml:"rob_penalty_max"`
	RobVictimFloor  int64   `yaml:"rob_victim_floor"`
	BlackjackWin    float64 `yaml:"blackjack_win"` // total returned on a win, as stake multiple
	SessionTimeout  int     `yaml:"session_timeout_seconds"`
	MacroDrift      float64 `yaml:"macro_drift"`
	MicroDrift      float64 `yaml:"micro_drift"`
	ShockMin        float64 `yaml:"shock_min"`
	ShockMax        float64 `yaml:"shock_max"`
	ShockChance     float64 `yaml:"shock_chance"`
	TradeCapUnits   int64   `yaml:"trade_cap_units"`
}

func (t Tuning) ActionGate() time.Duration  { return time.Duration(t.ActionCooldown) * time.Second }
func (t Tuning) JobGate() time.Duration     { return time.Duration(t.JobCooldown) * time.Second }
func (t Tuning) LootboxGate() time.Duration { return time.Duration(t.LootboxCooldown) * time.Second }
func (t Tuning) RobGate() time.Duration     { return time.Duration(t.RobCooldown) * time.Second }
func (t Tuning) SessionWindow() time.Duration {
	return time.Duration(t.SessionTimeout) * time.Second
}

// Asset returns the seed definition for an asset id, if present.
func (c *Catalog) Asset(id string) (AssetDef, bool) {
	for _, a := range c.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return AssetDef{}, false
}

func (c *Catalog) Job(id string) (JobDef, bool) {
	for _, j := range c.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return JobDef{}, false
}

func (c *Catalog) Quest(id string) (QuestDef, bool) {
	for _, q := range c.Quests {
		if q.ID == id {
			return q, true
		}
	}
	return QuestDef{}, false
}

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Assets: []AssetDef{
			{ID: "sword", Name: "Sword", Description: "Shiny sword", BasePrice: price(500), Floor: price(50)},
			{ID: "shield", Name: "Shield", Description: "Sturdy shield", BasePrice: price(300), Floor: price(50)},
			{ID: "potion", Name: "Potion", Description: "Healing potion", BasePrice: price(150), Floor: price(50)},
			{ID: "lootbox", Name: "Lootbox", Description: "Sealed crate of oddments", BasePrice: price(400), Floor: price(50)},
			{ID: "work_booster", Name: "Coffee Crate", Description: "Halves the work cooldown for a while", BasePrice: price(900), Floor: price(100)},
			{ID: "daily_booster", Name: "Alarm Rooster", Description: "Shortens the daily cooldown for a while", BasePrice: price(1200), Floor: price(100)},
			{ID: "copper", Name: "Copper Ingot", Description: "Commodity metal", BasePrice: price(120), Floor: price(10), Micro: true},
			{ID: "silver", Name: "Silver Ingot", Description: "Commodity metal", BasePrice: price(480), Floor: price(25), Micro: true},
			{ID: "gold", Name: "Gold Ingot", Description: "Commodity metal", BasePrice: price(1900), Floor: price(100), Micro: true},
			{ID: "gemstone", Name: "Gemstone", Description: "Volatile sparkles", BasePrice: price(3200), Floor: price(150), Micro: true},
		},
		Boosters: map[string]BoosterDef{
			"work_booster":  {Action: "work", Factor: 0.5, Duration: 2 * time.Hour},
			"daily_booster": {Action: "daily", Factor: 0.5, Duration: 6 * time.Hour},
		},
		Jobs: []JobDef{
			{ID: "miner", Name: "Miner", SalaryBase: 700, SalaryPerLevel: 150, ExpPerShift: 40},
			{ID: "farmer", Name: "Farmer", SalaryBase: 600, SalaryPerLevel: 180, ExpPerShift: 45},
			{ID: "courier", Name: "Courier", SalaryBase: 850, SalaryPerLevel: 120, ExpPerShift: 35},
			{ID: "smith", Name: "Blacksmith", SalaryBase: 950, SalaryPerLevel: 200, ExpPerShift: 50},
		},
		Achievements: []Achievement{
			{ID: "first_thousand", Name: "Pocket Change", Reward: 100, Test: func(s Stats) bool { return s.Balance >= 2_000 }},
			{ID: "high_roller", Name: "High Roller", Reward: 1_000, Test: func(s Stats) bool { return s.Balance >= 100_000 }},
			{ID: "level_five", Name: "Seasoned", Reward: 500, Test: func(s Stats) bool { return s.Level >= 5 }},
			{ID: "level_twenty", Name: "Veteran", Reward: 2_500, Test: func(s Stats) bool { return s.Level >= 20 }},
			{ID: "packrat", Name: "Packrat", Reward: 300, Test: func(s Stats) bool { return s.InventoryCount >= 10 }},
			{ID: "careerist", Name: "Careerist", Reward: 750, Test: func(s Stats) bool { return s.JobLevel >= 3 }},
			{ID: "quest_hound", Name: "Quest Hound", Reward: 400, Test: func(s Stats) bool { return s.QuestsDone >= 3 }},
		},
		Quests: []QuestDef{
			{ID: "daily_streak", Name: "Early Bird", Event: "daily", Target: 5, Reward: 800},
			{ID: "shift_grind", Name: "Shift Grind", Event: "work", Target: 10, Reward: 1_200},
			{ID: "gambler", Name: "Feeling Lucky", Event: "game", Target: 15, Reward: 1_500},
			{ID: "shopper", Name: "Window Shopper", Event: "buy", Target: 5, Reward: 500},
			{ID: "tycoon", Name: "Tycoon", Event: "invest", Target: 8, Reward: 1_000},
		},
		Horses: []Horse{
			{Name: "Bolt", Payout: 2.2, Stride: 12},
			{Name: "Clover", Payout: 3.0, Stride: 11},
			{Name: "Drizzle", Payout: 3.8, Stride: 10},
			{Name: "Ember", Payout: 4.5, Stride: 9},
			{Name: "Fable", Payout: 6.0, Stride: 8},
		},
		SlotSymbols: []string{"cherry", "lemon", "bell", "clover", "star", "seven"},
		// Mean multiplier must stay below 1 or plinko mints coins.
		PlinkoTable: []float64{0, 0.2, 0.5, 1, 0.5, 0.2, 0, 1.5, 4},
		Tuning: Tuning{
			MaxBet:          250_000,
			ActionCooldown:  2400,
			JobCooldown:     3600,
			LootboxCooldown: 7200,
			RobCooldown:     5400,
			DailyMin:        1000,
			DailyMax:        3000,
			WorkMin:         900,
			WorkMax:         2200,
			ShopResaleRate:  0.6,
			CoinflipPayout:  0.9,
			SlotsTriple:     10,
			SlotsPair:       2.5,
			CupsPayout:      2.7,
			RobSuccessProb:  0.45,
			RobStealMin:     0.10,
			RobStealMax:     0.30,
			RobPenaltyMin:   0.05,
			RobPenaltyMax:   0.10,
			RobVictimFloor:  250,
			BlackjackWin:    2.0,
			SessionTimeout:  90,
			MacroDrift:      0.05,
			MicroDrift:      0.03,
			ShockMin:        0.10,
			ShockMax:        0.30,
			ShockChance:     0.30,
			TradeCapUnits:   1_000,
		},
	}
}

// Package engine resolves inbound commands against the ledger, the game
// resolvers, and the market book. It returns structured results and
// never formats display text or talks to a transport.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"coinmint/internal/catalog"
	"coinmint/internal/clock"
	"coinmint/internal/games"
	"coinmint/internal/ledger"
	"coinmint/internal/market"
	"coinmint/internal/metrics"
	"coinmint/internal/model"
)

// Command is one inbound request, already parsed by the transport.
type Command struct {
	AccountID string         `json:"account_id"`
	Name      string         `json:"name"`
	TargetID  string         `json:"target_id,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
}

// Result is what the transport renders. Details is populated for some
// failures (e.g. remaining cooldown).
type Result struct {
	OK      bool           `json:"ok"`
	Data    any            `json:"data,omitempty"`
	ErrKind Kind           `json:"error_kind,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type Engine struct {
	ledger   *ledger.Ledger
	book     *market.Book
	sessions *games.Sessions
	cat      *catalog.Catalog
	clock    clock.Clock
	log      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(led *ledger.Ledger, book *market.Book, sessions *games.Sessions, cat *catalog.Catalog, clk clock.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Engine{
		ledger:   led,
		book:     book,
		sessions: sessions,
		cat:      cat,
		clock:    clk,
		log:      logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Reseed fixes the RNG, for tests.
func (e *Engine) Reseed(seed int64) {
	e.mu.Lock()
	e.rng = rand.New(rand.NewSource(seed))
	e.mu.Unlock()
}

// Sessions exposes the blackjack session manager for the janitor.
func (e *Engine) Sessions() *games.Sessions { return e.sessions }

// Execute dispatches one command and converts any failure into a
// structured result.
func (e *Engine) Execute(ctx context.Context, cmd Command) Result {
	if cmd.AccountID == "" {
		return fail(badArg("account id is required"))
	}
	start := time.Now()
	data, err := e.dispatch(ctx, cmd)
	metrics.ObserveCommand(cmd.Name, err == nil, time.Since(start))
	if err != nil {
		kind := classify(err)
		if kind == KindInternal {
			e.log.Error("command failed", "command", cmd.Name, "account", cmd.AccountID, "err", err)
		}
		return fail(err)
	}
	return Result{OK: true, Data: data}
}

func (e *Engine) dispatch(ctx context.Context, cmd Command) (any, error) {
	switch cmd.Name {
	case "profile", "balance":
		return e.profile(ctx, cmd.AccountID)
	case "daily":
		return e.claim(ctx, cmd.AccountID, "daily", e.cat.Tuning.ActionGate(), e.cat.Tuning.DailyMin, e.cat.Tuning.DailyMax, 60)
	case "work":
		return e.claim(ctx, cmd.AccountID, "work", e.cat.Tuning.ActionGate(), e.cat.Tuning.WorkMin, e.cat.Tuning.WorkMax, 45)
	case "shop":
		return e.shop(), nil
	case "price":
		return e.price(cmd)
	case "buy":
		return e.buy(ctx, cmd)
	case "sell":
		return e.sell(ctx, cmd)
	case "inventory":
		return e.inventory(ctx, cmd.AccountID)
	case "use":
		return e.useItem(ctx, cmd)
	case "give":
		return e.give(ctx, cmd)
	case "rob":
		return e.rob(ctx, cmd)
	case "coinflip":
		return e.coinflip(ctx, cmd)
	case "slots":
		return e.slots(ctx, cmd)
	case "plinko":
		return e.plinko(ctx, cmd)
	case "cups":
		return e.cups(ctx, cmd)
	case "horserace":
		return e.horserace(ctx, cmd)
	case "blackjack":
		return e.blackjackStart(ctx, cmd)
	case "hit":
		return e.blackjackHit(ctx, cmd.AccountID)
	case "stand":
		return e.blackjackStand(ctx, cmd.AccountID)
	case "lootbox":
		return e.lootbox(ctx, cmd.AccountID)
	case "job":
		return e.job(ctx, cmd)
	case "jobwork":
		return e.jobWork(ctx, cmd.AccountID)
	case "invest":
		return e.invest(ctx, cmd)
	case "divest":
		return e.divest(ctx, cmd)
	case "portfolio":
		return e.portfolio(ctx, cmd.AccountID)
	case "achievements":
		return e.achievements(ctx, cmd.AccountID)
	case "quests":
		return e.quests(ctx, cmd.AccountID)
	case "leaderboard":
		return e.leaderboard(ctx)
	default:
		return nil, badArg("unknown command %q", cmd.Name)
	}
}

// mutate wraps ledger.Mutate with the uniform post-mutation progression
// hook: every mutating command gets its quest credit and achievement
// check inside the same commit unit, never bolted on per handler.
func (e *Engine) mutate(ctx context.Context, accountID, questEvent string, fn func(*model.Account) error) (model.Account, []string, []string, error) {
	var completed, unlocked []string
	acct, err := e.ledger.Mutate(ctx, accountID, func(a *model.Account) error {
		if err := fn(a); err != nil {
			return err
		}
		if questEvent != "" {
			completed = ledger.CreditQuestEvent(a, e.cat, questEvent)
		}
		unlocked = ledger.CheckAchievements(a, e.cat)
		return nil
	})
	if err != nil {
		return model.Account{}, nil, nil, err
	}
	return acct, completed, unlocked, nil
}

// gate returns a CooldownError when the action is not yet permitted, and
// stamps the cooldown otherwise. Call inside a Mutate fn.
func (e *Engine) gate(a *model.Account, action string, base time.Duration, now time.Time) error {
	if left := ledger.TimeLeft(a, e.cat, action, base, now); left > 0 {
		return &CooldownError{Action: action, Remaining: left}
	}
	ledger.Stamp(a, action, now)
	return nil
}

func (e *Engine) stakeFor(cmd Command) (int64, error) {
	stake, err := argInt64(cmd.Args, "stake")
	if err != nil {
		return 0, err
	}
	if stake <= 0 {
		return 0, badArg("stake must be > 0")
	}
	if stake > e.cat.Tuning.MaxBet {
		return 0, badArg("max bet is %d", e.cat.Tuning.MaxBet)
	}
	return stake, nil
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

func (e *Engine) between(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return lo + e.rng.Int63n(hi-lo+1)
}

// withRNG runs fn while holding the RNG lock so resolvers can consume
// multiple draws without interleaving.
func (e *Engine) withRNG(fn func(rng *rand.Rand) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.rng)
}

func fail(err error) Result {
	res := Result{OK: false, ErrKind: classify(err), Error: err.Error()}
	var cd *CooldownError
	if errors.As(err, &cd) {
		res.Details = map[string]any{
			"action":           cd.Action,
			"retry_in_seconds": int64(cd.Remaining.Seconds() + 0.999),
		}
	}
	return res
}

// --- arg decoding ---

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", badArg("missing %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", badArg("%q must be a non-empty string", key)
	}
	return s, nil
}

func argInt64(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, badArg("missing %q", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, badArg("%q must be an integer", key)
		}
		return int64(n), nil
	default:
		return 0, badArg("%q must be an integer", key)
	}
}

func optionalString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

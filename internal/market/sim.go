package market

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"coinmint/internal/catalog"
	"coinmint/internal/metrics"
)

// ShockEvent is broadcast when the simulator injects an outsized jump.
type ShockEvent struct {
	AssetID   string          `json:"asset_id"`
	Direction string          `json:"direction"` // "boost" or "drop"
	NewPrice  decimal.Decimal `json:"new_price"`
}

// Sink receives shock notifications. Implementations must not block; the
// transport layer decides where they end up.
type Sink interface {
	Shock(ev ShockEvent)
}

// LogSink logs shocks and nothing more. Used by the standalone worker.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Shock(ev ShockEvent) {
	s.Log.Info("market shock", "asset", ev.AssetID, "direction", ev.Direction, "price", ev.NewPrice.String())
}

// Schedule holds the three independent tick intervals.
type Schedule struct {
	Macro time.Duration
	Micro time.Duration
	Shock time.Duration
}

// Simulator perturbs the book on three independent schedules: a slow
// macro drift across every asset, a fast micro drift for short-horizon
// assets, and a probabilistic shock against a single asset.
type Simulator struct {
	book   *Book
	tuning catalog.Tuning
	sink   Sink
	log    *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(book *Book, t catalog.Tuning, sink Sink, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = LogSink{Log: logger}
	}
	return &Simulator{
		book:   book,
		tuning: t,
		sink:   sink,
		log:    logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run drives the three tickers until the context is cancelled. Tick work
// only touches the price table, so command handling is never blocked.
func (s *Simulator) Run(ctx context.Context, sched Schedule) {
	macro := time.NewTicker(sched.Macro)
	micro := time.NewTicker(sched.Micro)
	shock := time.NewTicker(sched.Shock)
	defer macro.Stop()
	defer micro.Stop()
	defer shock.Stop()

	s.log.Info("market simulator started",
		"macro_every", sched.Macro.String(),
		"micro_every", sched.Micro.String(),
		"shock_every", sched.Shock.String(),
	)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("market simulator stopped")
			return
		case <-macro.C:
			if err := s.MacroTick(ctx); err != nil {
				s.log.Error("macro tick failed", "err", err)
			}
		case <-micro.C:
			if err := s.MicroTick(ctx); err != nil {
				s.log.Error("micro tick failed", "err", err)
			}
		case <-shock.C:
			if _, err := s.ShockTick(ctx); err != nil {
				s.log.Error("shock tick failed", "err", err)
			}
		}
	}
}

// MacroTick applies bounded percentage drift to every asset.
func (s *Simulator) MacroTick(ctx context.Context) error {
	if err := s.drift(ctx, s.book.ids(false), s.tuning.MacroDrift); err != nil {
		return err
	}
	metrics.MarketTicksTotal.WithLabelValues("macro").Inc()
	return nil
}

// MicroTick applies smaller drift to short-horizon assets only.
func (s *Simulator) MicroTick(ctx context.Context) error {
	if err := s.drift(ctx, s.book.ids(true), s.tuning.MicroDrift); err != nil {
		return err
	}
	metrics.MarketTicksTotal.WithLabelValues("micro").Inc()
	return nil
}

func (s *Simulator) drift(ctx context.Context, ids []string, bound float64) error {
	for _, id := range ids {
		f := 1 + s.uniform(-bound, bound)
		if _, err := s.book.adjust(ctx, id, decimal.NewFromFloat(f)); err != nil {
			return err
		}
	}
	return nil
}

// ShockTick rolls the shock chance; on a hit it picks one asset and one
// direction, applies a 10-30% jump, and notifies the sink. Returns the
// event, or nil when the roll misses.
func (s *Simulator) ShockTick(ctx context.Context) (*ShockEvent, error) {
	metrics.MarketTicksTotal.WithLabelValues("shock").Inc()
	if s.roll() >= s.tuning.ShockChance {
		return nil, nil
	}
	ids := s.book.ids(false)
	if len(ids) == 0 {
		return nil, nil
	}
	id := ids[s.pick(len(ids))]
	magnitude := s.uniform(s.tuning.ShockMin, s.tuning.ShockMax)
	direction := "boost"
	factor := 1 + magnitude
	if s.roll() < 0.5 {
		direction = "drop"
		factor = 1 - magnitude
	}
	price, err := s.book.adjust(ctx, id, decimal.NewFromFloat(factor))
	if err != nil {
		return nil, err
	}
	ev := ShockEvent{AssetID: id, Direction: direction, NewPrice: price}
	metrics.ShockEventsTotal.WithLabelValues(direction).Inc()
	s.log.Info("market shock applied", "asset", id, "direction", direction, "price", price.String())
	s.sink.Shock(ev)
	return &ev, nil
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Simulator) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulator) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Reseed fixes the RNG, for tests.
func (s *Simulator) Reseed(seed int64) {
	s.mu.Lock()
	s.rng = rand.New(rand.NewSource(seed))
	s.mu.Unlock()
}

package market

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"coinmint/internal/metrics"
)

type captureSink struct {
	mu     sync.Mutex
	events []ShockEvent
}

func (c *captureSink) Shock(ev ShockEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func TestMacroTickMovesEveryAssetWithinBounds(t *testing.T) {
	b, cat := testBook(t)
	sim := NewSimulator(b, cat.Tuning, &captureSink{}, nil)
	sim.Reseed(17)

	before := map[string]decimal.Decimal{}
	for _, a := range b.List() {
		before[a.ID] = a.Price
	}
	if err := sim.MacroTick(context.Background()); err != nil {
		t.Fatalf("macro tick: %v", err)
	}
	lo := decimal.NewFromFloat(1 - cat.Tuning.MacroDrift)
	hi := decimal.NewFromFloat(1 + cat.Tuning.MacroDrift)
	for _, a := range b.List() {
		prev := before[a.ID]
		min := prev.Mul(lo).Round(2)
		max := prev.Mul(hi).Round(2)
		if a.Price.LessThan(min.Sub(decimal.NewFromFloat(0.01))) || a.Price.GreaterThan(max.Add(decimal.NewFromFloat(0.01))) {
			t.Fatalf("%s drifted out of bounds: %s -> %s", a.ID, prev, a.Price)
		}
	}
}

func TestMicroTickLeavesSlowAssetsAlone(t *testing.T) {
	b, cat := testBook(t)
	sim := NewSimulator(b, cat.Tuning, &captureSink{}, nil)
	sim.Reseed(23)

	before := map[string]decimal.Decimal{}
	for _, a := range b.List() {
		before[a.ID] = a.Price
	}
	if err := sim.MicroTick(context.Background()); err != nil {
		t.Fatalf("micro tick: %v", err)
	}
	for _, a := range b.List() {
		if !a.Micro && !a.Price.Equal(before[a.ID]) {
			t.Fatalf("micro tick moved non-micro asset %s", a.ID)
		}
	}
}

func TestShockTickNotifiesSink(t *testing.T) {
	b, cat := testBook(t)
	sink := &captureSink{}
	tuning := cat.Tuning
	tuning.ShockChance = 1.0 // always fire
	sim := NewSimulator(b, tuning, sink, nil)
	sim.Reseed(31)

	ev, err := sim.ShockTick(context.Background())
	if err != nil {
		t.Fatalf("shock tick: %v", err)
	}
	if ev == nil {
		t.Fatalf("shock chance 1.0 must fire")
	}
	if ev.Direction != "boost" && ev.Direction != "drop" {
		t.Fatalf("bad direction %q", ev.Direction)
	}
	price, err := b.Price(ev.AssetID)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !price.Equal(ev.NewPrice) {
		t.Fatalf("event price %s != book price %s", ev.NewPrice, price)
	}
	if len(sink.events) != 1 {
		t.Fatalf("sink notified %d times, want 1", len(sink.events))
	}
}

func TestShockTickRespectsChance(t *testing.T) {
	b, cat := testBook(t)
	tuning := cat.Tuning
	tuning.ShockChance = 0 // never fire
	sink := &captureSink{}
	sim := NewSimulator(b, tuning, sink, nil)
	sim.Reseed(5)

	for i := 0; i < 50; i++ {
		ev, err := sim.ShockTick(context.Background())
		if err != nil {
			t.Fatalf("shock tick: %v", err)
		}
		if ev != nil {
			t.Fatalf("zero chance fired a shock")
		}
	}
	if len(sink.events) != 0 {
		t.Fatalf("sink saw %d events with zero chance", len(sink.events))
	}
}

// Counters are process-global, so the test works on before/after deltas.
func TestTicksIncrementCounters(t *testing.T) {
	b, cat := testBook(t)
	tuning := cat.Tuning
	tuning.ShockChance = 1.0 // always fire
	sim := NewSimulator(b, tuning, &captureSink{}, nil)
	sim.Reseed(61)

	tick := func(kind string) float64 {
		return testutil.ToFloat64(metrics.MarketTicksTotal.WithLabelValues(kind))
	}
	shocks := func() float64 {
		return testutil.ToFloat64(metrics.ShockEventsTotal.WithLabelValues("boost")) +
			testutil.ToFloat64(metrics.ShockEventsTotal.WithLabelValues("drop"))
	}
	macro0, micro0, shockTick0, shock0 := tick("macro"), tick("micro"), tick("shock"), shocks()

	if err := sim.MacroTick(context.Background()); err != nil {
		t.Fatalf("macro tick: %v", err)
	}
	if err := sim.MicroTick(context.Background()); err != nil {
		t.Fatalf("micro tick: %v", err)
	}
	if ev, err := sim.ShockTick(context.Background()); err != nil || ev == nil {
		t.Fatalf("shock tick: ev=%v err=%v", ev, err)
	}

	if got := tick("macro") - macro0; got != 1 {
		t.Fatalf("macro tick counter delta got=%v want=1", got)
	}
	if got := tick("micro") - micro0; got != 1 {
		t.Fatalf("micro tick counter delta got=%v want=1", got)
	}
	if got := tick("shock") - shockTick0; got != 1 {
		t.Fatalf("shock tick counter delta got=%v want=1", got)
	}
	if got := shocks() - shock0; got != 1 {
		t.Fatalf("shock event counter delta got=%v want=1", got)
	}
}

func TestShockMagnitudeStaysInBand(t *testing.T) {
	b, cat := testBook(t)
	tuning := cat.Tuning
	tuning.ShockChance = 1.0
	sim := NewSimulator(b, tuning, &captureSink{}, nil)
	sim.Reseed(47)

	for i := 0; i < 200; i++ {
		before := map[string]decimal.Decimal{}
		for _, a := range b.List() {
			before[a.ID] = a.Price
		}
		ev, err := sim.ShockTick(context.Background())
		if err != nil {
			t.Fatalf("shock tick: %v", err)
		}
		prev := before[ev.AssetID]
		ratio, _ := ev.NewPrice.Div(prev).Float64()
		asset, _ := b.Get(ev.AssetID)
		if ev.NewPrice.Equal(asset.Floor) {
			continue // clamped, ratio no longer meaningful
		}
		if ev.Direction == "boost" && (ratio < 1+tuning.ShockMin-0.01 || ratio > 1+tuning.ShockMax+0.01) {
			t.Fatalf("boost ratio out of band: %v", ratio)
		}
		if ev.Direction == "drop" && (ratio > 1-tuning.ShockMin+0.01 || ratio < 1-tuning.ShockMax-0.01) {
			t.Fatalf("drop ratio out of band: %v", ratio)
		}
	}
}

package games

import (
	"errors"
	"math/rand"
	"testing"

	"coinmint/internal/catalog"
)

func testRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestCoinflipValidation(t *testing.T) {
	cat := catalog.Default()
	if _, err := Coinflip(cat.Tuning, 0, "heads", testRNG(1)); !errors.Is(err, ErrBadStake) {
		t.Fatalf("zero stake: got %v", err)
	}
	if _, err := Coinflip(cat.Tuning, 100, "edge", testRNG(1)); !errors.Is(err, ErrBadChoice) {
		t.Fatalf("bad guess: got %v", err)
	}
}

func TestCoinflipPayoutShape(t *testing.T) {
	cat := catalog.Default()
	const stake = 1000
	sawWin, sawLoss := false, false
	rng := testRNG(7)
	for i := 0; i < 200; i++ {
		res, err := Coinflip(cat.Tuning, stake, "heads", rng)
		if err != nil {
			t.Fatalf("coinflip: %v", err)
		}
		if res.Won {
			sawWin = true
			if res.Delta != 900 {
				t.Fatalf("win delta got=%d want=900", res.Delta)
			}
			if res.Exp != ExpWin {
				t.Fatalf("win exp got=%d want=%d", res.Exp, ExpWin)
			}
		} else {
			sawLoss = true
			if res.Delta != -stake {
				t.Fatalf("loss delta got=%d want=%d", res.Delta, -stake)
			}
			if res.Exp != ExpLose {
				t.Fatalf("loss exp got=%d want=%d", res.Exp, ExpLose)
			}
		}
	}
	if !sawWin || !sawLoss {
		t.Fatalf("200 flips should see both outcomes (win=%v loss=%v)", sawWin, sawLoss)
	}
}

func TestCoinflipRoughlyFair(t *testing.T) {
	cat := catalog.Default()
	rng := testRNG(42)
	wins := 0
	const n = 20_000
	for i := 0; i < n; i++ {
		res, _ := Coinflip(cat.Tuning, 10, "tails", rng)
		if res.Won {
			wins++
		}
	}
	if wins < n*45/100 || wins > n*55/100 {
		t.Fatalf("win rate out of bounds: %d/%d", wins, n)
	}
}

func TestSlotsMultipliers(t *testing.T) {
	cat := catalog.Default()
	const stake = 100
	rng := testRNG(3)
	for i := 0; i < 5_000; i++ {
		res, err := Slots(cat, stake, rng)
		if err != nil {
			t.Fatalf("slots: %v", err)
		}
		triple := res.Reels[0] == res.Reels[1] && res.Reels[1] == res.Reels[2]
		pair := res.Reels[0] == res.Reels[1] || res.Reels[1] == res.Reels[2] || res.Reels[0] == res.Reels[2]
		switch {
		case triple:
			if res.Multiplier != cat.Tuning.SlotsTriple {
				t.Fatalf("triple multiplier got=%v", res.Multiplier)
			}
			if res.Delta != stake*10-stake {
				t.Fatalf("triple delta got=%d", res.Delta)
			}
		case pair:
			if res.Multiplier != cat.Tuning.SlotsPair {
				t.Fatalf("pair multiplier got=%v", res.Multiplier)
			}
			if res.Delta != 250-stake {
				t.Fatalf("pair delta got=%d", res.Delta)
			}
		default:
			if res.Delta != -stake {
				t.Fatalf("loss delta got=%d", res.Delta)
			}
		}
	}
}

func TestPlinkoDeltaNeverBelowStake(t *testing.T) {
	cat := catalog.Default()
	const stake = 100
	rng := testRNG(11)
	for i := 0; i < 2_000; i++ {
		res, err := Plinko(cat, stake, rng)
		if err != nil {
			t.Fatalf("plinko: %v", err)
		}
		if res.Slot < 0 || res.Slot >= len(cat.PlinkoTable) {
			t.Fatalf("slot out of range: %d", res.Slot)
		}
		if res.Delta < -stake {
			t.Fatalf("delta below -stake: %d", res.Delta)
		}
		if res.Multiplier != cat.PlinkoTable[res.Slot] {
			t.Fatalf("multiplier mismatch: %v vs table %v", res.Multiplier, cat.PlinkoTable[res.Slot])
		}
	}
}

func TestCupsValidationAndPayout(t *testing.T) {
	cat := catalog.Default()
	if _, err := Cups(cat.Tuning, 100, 0, testRNG(1)); !errors.Is(err, ErrBadChoice) {
		t.Fatalf("pick 0: got %v", err)
	}
	if _, err := Cups(cat.Tuning, 100, 4, testRNG(1)); !errors.Is(err, ErrBadChoice) {
		t.Fatalf("pick 4: got %v", err)
	}
	rng := testRNG(9)
	for i := 0; i < 1_000; i++ {
		res, err := Cups(cat.Tuning, 100, 2, rng)
		if err != nil {
			t.Fatalf("cups: %v", err)
		}
		if res.Won && res.Delta != 270-100 {
			t.Fatalf("win delta got=%d want=170", res.Delta)
		}
		if !res.Won && res.Delta != -100 {
			t.Fatalf("loss delta got=%d", res.Delta)
		}
	}
}

// The expected return per staked coin, computed analytically from the
// fixed probability/payout tables, must match a large simulated sample.
// Games marked houseEdge must also keep that analytic return below 1;
// a table that drifts to 1 or above mints coins on every play.
func TestInstantGameExpectedReturnMatchesTables(t *testing.T) {
	cat := catalog.Default()
	const (
		trials = 200_000
		stake  = int64(1_000)
	)

	plinkoMean := 0.0
	for _, m := range cat.PlinkoTable {
		plinkoMean += m
	}
	plinkoMean /= float64(len(cat.PlinkoTable))
	symbols := float64(len(cat.SlotSymbols))

	cases := []struct {
		name      string
		analytic  float64
		houseEdge bool
		play      func(rng *rand.Rand) int64
	}{
		{
			name:      "coinflip",
			analytic:  0.5 * (1 + cat.Tuning.CoinflipPayout),
			houseEdge: true,
			play: func(rng *rand.Rand) int64 {
				res, err := Coinflip(cat.Tuning, stake, "heads", rng)
				if err != nil {
					t.Fatalf("coinflip: %v", err)
				}
				return res.Delta
			},
		},
		{
			name: "slots",
			analytic: cat.Tuning.SlotsTriple/(symbols*symbols) +
				cat.Tuning.SlotsPair*3*(symbols-1)/(symbols*symbols),
			play: func(rng *rand.Rand) int64 {
				res, err := Slots(cat, stake, rng)
				if err != nil {
					t.Fatalf("slots: %v", err)
				}
				return res.Delta
			},
		},
		{
			name:      "plinko",
			analytic:  plinkoMean,
			houseEdge: true,
			play: func(rng *rand.Rand) int64 {
				res, err := Plinko(cat, stake, rng)
				if err != nil {
					t.Fatalf("plinko: %v", err)
				}
				return res.Delta
			},
		},
		{
			name:      "cups",
			analytic:  cat.Tuning.CupsPayout / 3,
			houseEdge: true,
			play: func(rng *rand.Rand) int64 {
				res, err := Cups(cat.Tuning, stake, 1, rng)
				if err != nil {
					t.Fatalf("cups: %v", err)
				}
				return res.Delta
			},
		},
	}

	for _, tc := range cases {
		if tc.houseEdge && tc.analytic >= 1 {
			t.Fatalf("%s analytic return %.4f must stay below 1", tc.name, tc.analytic)
		}
		rng := testRNG(101)
		var returned int64
		for i := 0; i < trials; i++ {
			returned += tc.play(rng) + stake
		}
		mean := float64(returned) / float64(trials) / float64(stake)
		if mean < tc.analytic-0.03 || mean > tc.analytic+0.03 {
			t.Fatalf("%s simulated return %.4f, analytic %.4f", tc.name, mean, tc.analytic)
		}
	}
}

func TestHorseRaceTerminatesWithWinner(t *testing.T) {
	cat := catalog.Default()
	rng := testRNG(5)
	for i := 0; i < 500; i++ {
		res, err := HorseRace(cat, 100, i%len(cat.Horses), rng)
		if err != nil {
			t.Fatalf("race: %v", err)
		}
		if res.Winner < 0 || res.Winner >= len(cat.Horses) {
			t.Fatalf("winner out of range: %d", res.Winner)
		}
		if res.Positions[res.Winner] < raceFinish {
			t.Fatalf("winner did not cross the line: %d", res.Positions[res.Winner])
		}
		for idx, pos := range res.Positions {
			if pos > res.Positions[res.Winner] {
				t.Fatalf("horse %d overshot the declared winner (%d > %d)", idx, pos, res.Positions[res.Winner])
			}
		}
		if res.Won != (res.Pick == res.Winner) {
			t.Fatalf("won flag inconsistent")
		}
		if res.Won {
			want := mulRound(100, cat.Horses[res.Winner].Payout) - 100
			if res.Delta != want {
				t.Fatalf("win delta got=%d want=%d", res.Delta, want)
			}
		}
	}
}

func TestHorseRaceRejectsBadPick(t *testing.T) {
	cat := catalog.Default()
	if _, err := HorseRace(cat, 100, len(cat.Horses), testRNG(1)); !errors.Is(err, ErrBadChoice) {
		t.Fatalf("out-of-range pick: got %v", err)
	}
	if _, err := HorseRace(cat, 100, -1, testRNG(1)); !errors.Is(err, ErrBadChoice) {
		t.Fatalf("negative pick: got %v", err)
	}
}

func TestRollRobStaysInTunedBounds(t *testing.T) {
	cat := catalog.Default()
	rng := testRNG(13)
	succ := 0
	const n = 20_000
	for i := 0; i < n; i++ {
		plan := RollRob(cat.Tuning, rng)
		if plan.StealFrac < cat.Tuning.RobStealMin || plan.StealFrac > cat.Tuning.RobStealMax {
			t.Fatalf("steal frac out of bounds: %v", plan.StealFrac)
		}
		if plan.PenaltyFrac < cat.Tuning.RobPenaltyMin || plan.PenaltyFrac > cat.Tuning.RobPenaltyMax {
			t.Fatalf("penalty frac out of bounds: %v", plan.PenaltyFrac)
		}
		if plan.Success {
			succ++
		}
	}
	rate := float64(succ) / float64(n)
	if rate < cat.Tuning.RobSuccessProb-0.03 || rate > cat.Tuning.RobSuccessProb+0.03 {
		t.Fatalf("success rate drifted: %v", rate)
	}
}

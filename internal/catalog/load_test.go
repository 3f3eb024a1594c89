package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	if err := validateTuning(c.Tuning); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	if len(c.Assets) == 0 || len(c.Jobs) == 0 || len(c.Horses) == 0 {
		t.Fatalf("default catalog incomplete")
	}
	for id := range c.Boosters {
		if _, ok := c.Asset(id); !ok {
			t.Fatalf("booster %q has no shop asset", id)
		}
	}
	for _, h := range c.Horses {
		if h.Stride <= 1 {
			t.Fatalf("horse %q stride must allow progress", h.Name)
		}
		if h.Payout <= 1 {
			t.Fatalf("horse %q payout must beat the stake", h.Name)
		}
	}
	sum := 0.0
	for _, m := range c.PlinkoTable {
		if m < 0 {
			t.Fatalf("negative plinko multiplier %v", m)
		}
		sum += m
	}
	if mean := sum / float64(len(c.PlinkoTable)); mean >= 1 {
		t.Fatalf("plinko mean multiplier %.4f must stay below 1", mean)
	}
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Tuning != Default().Tuning {
		t.Fatalf("empty path must return default tuning")
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "max_bet: 5000\ndaily_min: 10\ndaily_max: 20\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Tuning.MaxBet != 5000 || c.Tuning.DailyMin != 10 || c.Tuning.DailyMax != 20 {
		t.Fatalf("overrides not applied: %+v", c.Tuning)
	}
	// Untouched knobs keep their defaults.
	if c.Tuning.CoinflipPayout != Default().Tuning.CoinflipPayout {
		t.Fatalf("unrelated knob changed: %v", c.Tuning.CoinflipPayout)
	}
}

func TestLoadRejectsInvalidTuning(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "zero max bet", body: "max_bet: 0\n"},
		{name: "inverted daily range", body: "daily_min: 100\ndaily_max: 50\n"},
		{name: "resale above one", body: "shop_resale_rate: 1.5\n"},
		{name: "bad rob prob", body: "rob_success_prob: 2\n"},
		{name: "zero session timeout", body: "session_timeout_seconds: 0\n"},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file must fail")
	}
}

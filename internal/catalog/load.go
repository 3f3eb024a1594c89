package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load returns the default catalog with tuning overrides applied from a
// YAML file. An empty path means no overrides.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := c.Tuning
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("tuning yaml: %w", err)
	}
	if err := validateTuning(t); err != nil {
		return nil, err
	}
	c.Tuning = t
	return c, nil
}

func validateTuning(t Tuning) error {
	if t.MaxBet <= 0 {
		return fmt.Errorf("max_bet must be > 0")
	}
	if t.ActionCooldown <= 0 || t.JobCooldown <= 0 || t.LootboxCooldown <= 0 || t.RobCooldown <= 0 {
		return fmt.Errorf("cooldowns must be > 0")
	}
	if t.DailyMin > t.DailyMax || t.WorkMin > t.WorkMax {
		return fmt.Errorf("reward ranges must be min <= max")
	}
	if t.ShopResaleRate <= 0 || t.ShopResaleRate > 1 {
		return fmt.Errorf("shop_resale_rate must be in (0,1]")
	}
	if t.RobSuccessProb < 0 || t.RobSuccessProb > 1 {
		return fmt.Errorf("rob_success_prob must be in [0,1]")
	}
	if t.RobStealMin > t.RobStealMax || t.RobPenaltyMin > t.RobPenaltyMax {
		return fmt.Errorf("rob fraction ranges must be min <= max")
	}
	if t.ShockMin > t.ShockMax || t.ShockChance < 0 || t.ShockChance > 1 {
		return fmt.Errorf("shock parameters out of range")
	}
	if t.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout_seconds must be > 0")
	}
	return nil
}

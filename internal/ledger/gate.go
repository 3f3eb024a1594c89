package ledger

import (
	"time"

	"coinmint/internal/catalog"
	"coinmint/internal/model"
)

// TimeLeft reports how long until the action is allowed again. Zero means
// permitted. An active booster for the action scales the base cooldown
// down by its factor.
func TimeLeft(acct *model.Account, cat *catalog.Catalog, actionID string, base time.Duration, now time.Time) time.Duration {
	last, ok := acct.Cooldowns[actionID]
	if !ok {
		return 0
	}
	effective := time.Duration(float64(base) * boosterFactor(acct, cat, actionID, now))
	left := effective - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// Stamp records the action as used now. Callers must do this inside the
// same Mutate fn that grants the reward.
func Stamp(acct *model.Account, actionID string, now time.Time) {
	if acct.Cooldowns == nil {
		acct.Cooldowns = make(map[string]time.Time)
	}
	acct.Cooldowns[actionID] = now
}

// ActivateBooster consumes one inventory unit of the booster item and
// opens its active window. Must run inside a Mutate fn so consumption and
// activation commit together.
func ActivateBooster(acct *model.Account, cat *catalog.Catalog, itemID string, now time.Time) bool {
	def, ok := cat.Boosters[itemID]
	if !ok || acct.Inventory[itemID] <= 0 {
		return false
	}
	acct.Inventory[itemID]--
	if acct.Inventory[itemID] == 0 {
		delete(acct.Inventory, itemID)
	}
	if acct.Boosters == nil {
		acct.Boosters = make(map[string]time.Time)
	}
	expiry := now.Add(def.Duration)
	// Re-activating extends from now, it does not stack.
	if cur, ok := acct.Boosters[itemID]; !ok || expiry.After(cur) {
		acct.Boosters[itemID] = expiry
	}
	return true
}

func boosterFactor(acct *model.Account, cat *catalog.Catalog, actionID string, now time.Time) float64 {
	factor := 1.0
	for itemID, expiry := range acct.Boosters {
		if !expiry.After(now) {
			continue
		}
		def, ok := cat.Boosters[itemID]
		if !ok || def.Action != actionID {
			continue
		}
		if def.Factor < factor {
			factor = def.Factor
		}
	}
	return factor
}

package ledger

import (
	"coinmint/internal/catalog"
	"coinmint/internal/model"
)

// AddExperience applies the rollover rule: experience stays in
// [0, ExpPerLevel) and each overflow becomes a level. Returns whether at
// least one level was gained.
func AddExperience(acct *model.Account, amount int) bool {
	if amount <= 0 {
		return false
	}
	acct.Experience += amount
	leveled := false
	for acct.Experience >= model.ExpPerLevel {
		acct.Experience -= model.ExpPerLevel
		acct.Level++
		leveled = true
	}
	return leveled
}

// AddJobExperience is the job-track analogue with its own threshold.
func AddJobExperience(acct *model.Account, amount int) bool {
	if acct.JobID == "" || amount <= 0 {
		return false
	}
	acct.JobExperience += amount
	leveled := false
	for acct.JobExperience >= model.JobExpPerLevel {
		acct.JobExperience -= model.JobExpPerLevel
		acct.JobLevel++
		leveled = true
	}
	return leveled
}

// UpdateQuestProgress advances a quest counter, bounded by its target.
// The quest reward is credited exactly once, when the counter reaches the
// target. Returns whether the quest completed on this call.
func UpdateQuestProgress(acct *model.Account, cat *catalog.Catalog, questID string, delta int64) bool {
	q, ok := cat.Quest(questID)
	if !ok || delta <= 0 {
		return false
	}
	if acct.QuestProgress == nil {
		acct.QuestProgress = make(map[string]int64)
	}
	cur := acct.QuestProgress[questID]
	if cur >= q.Target {
		return false
	}
	next := cur + delta
	if next > q.Target {
		next = q.Target
	}
	acct.QuestProgress[questID] = next
	if next == q.Target {
		acct.Balance += q.Reward
		return true
	}
	return false
}

// CreditQuestEvent advances every quest listening on the given event.
func CreditQuestEvent(acct *model.Account, cat *catalog.Catalog, event string) []string {
	var completed []string
	for _, q := range cat.Quests {
		if q.Event != event {
			continue
		}
		if UpdateQuestProgress(acct, cat, q.ID, 1) {
			completed = append(completed, q.ID)
		}
	}
	return completed
}

// CheckAchievements evaluates the fixed predicate list and grants the
// reward for any achievement that is newly true. Each achievement is
// granted at most once per account; the grant and the reward commit in
// the same mutation.
func CheckAchievements(acct *model.Account, cat *catalog.Catalog) []string {
	stats := statsOf(acct, cat)
	var unlocked []string
	for _, ach := range cat.Achievements {
		if acct.Achievements[ach.ID] {
			continue
		}
		if !ach.Test(stats) {
			continue
		}
		if acct.Achievements == nil {
			acct.Achievements = make(map[string]bool)
		}
		acct.Achievements[ach.ID] = true
		acct.Balance += ach.Reward
		unlocked = append(unlocked, ach.ID)
		// Rewards can tip later predicates over their threshold.
		stats = statsOf(acct, cat)
	}
	return unlocked
}

func statsOf(acct *model.Account, cat *catalog.Catalog) catalog.Stats {
	var items int64
	for _, qty := range acct.Inventory {
		items += qty
	}
	done := 0
	for _, q := range cat.Quests {
		if acct.QuestProgress[q.ID] >= q.Target {
			done++
		}
	}
	return catalog.Stats{
		Balance:        acct.Balance,
		Level:          acct.Level,
		InventoryCount: items,
		JobLevel:       acct.JobLevel,
		QuestsDone:     done,
	}
}

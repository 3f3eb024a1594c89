package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	cl "coinmint/internal/cli"
	"coinmint/internal/engine"
	"coinmint/internal/games"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func asAPIError(err error, target **cl.APIError) bool {
	return errors.As(err, target)
}

func renderProfile(res engine.Result) error {
	var v engine.ProfileView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	accent.Printf("%s\n", v.ID)
	neutral.Printf("  balance    %d coins\n", v.Balance)
	neutral.Printf("  level      %d (%d/1000 exp)\n", v.Level, v.Experience)
	if v.JobID != "" {
		neutral.Printf("  job        %s (level %d)\n", v.JobID, v.JobLevel)
	}
	neutral.Printf("  net worth  %d coins\n", v.NetWorth)
	return nil
}

func renderClaim(res engine.Result) error {
	var v engine.ClaimView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	success.Printf("+%d coins from %s (+%d exp)\n", v.Reward, v.Action, v.Exp)
	if v.LeveledUp {
		accent.Println("Level up!")
	}
	printProgression(v.QuestsDone, v.Unlocked)
	neutral.Printf("Balance: %d coins\n", v.Balance)
	return nil
}

func renderShop(res engine.Result) error {
	var assets []engine.AssetView
	if err := cl.DecodeData(res, &assets); err != nil {
		return err
	}
	accent.Println("Shop")
	for _, a := range assets {
		tag := ""
		if a.Micro {
			tag = "  [volatile]"
		}
		neutral.Printf("  %-14s %10s  %s%s\n", a.ID, a.Price, a.Description, tag)
	}
	return nil
}

func renderAsset(res engine.Result) error {
	var a engine.AssetView
	if err := cl.DecodeData(res, &a); err != nil {
		return err
	}
	accent.Printf("%s (%s)\n", a.Name, a.ID)
	neutral.Printf("  price  %s coins\n", a.Price)
	neutral.Printf("  %s\n", a.Description)
	return nil
}

func renderTrade(res engine.Result, verb string) error {
	var v engine.TradeView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	success.Printf("%s %d x %s at %s (%d coins)\n", title(verb), v.Quantity, v.AssetID, v.Price, v.Total)
	printProgression(nil, v.Unlocked)
	neutral.Printf("Balance: %d coins\n", v.Balance)
	return nil
}

func renderInventory(res engine.Result) error {
	var v engine.InventoryView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	if len(v.Items) == 0 {
		neutral.Println("Inventory is empty.")
		return nil
	}
	accent.Println("Inventory")
	ids := make([]string, 0, len(v.Items))
	for id := range v.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		neutral.Printf("  %-14s x%d\n", id, v.Items[id])
	}
	return nil
}

func renderUse(res engine.Result) error {
	var v engine.UseView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	success.Printf("Activated %s (boosts %s) until %s\n", v.ItemID, v.Action, v.Expires)
	return nil
}

func renderGive(res engine.Result) error {
	var v engine.GiveView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	success.Printf("Sent %d coins to %s.\n", v.Amount, v.Target)
	return nil
}

func renderRob(res engine.Result) error {
	var v engine.RobView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	if v.Success {
		success.Printf("You robbed %s for %d coins!\n", v.Target, v.Stolen)
	} else {
		danger.Printf("Caught! You paid a %d coin fine.\n", v.Penalty)
	}
	neutral.Printf("Balance: %d coins\n", v.Balance)
	return nil
}

func renderGame(res engine.Result) error {
	var v engine.GameView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	accent.Printf("%s\n", v.Game)
	pretty, err := json.MarshalIndent(v.Result, "  ", "  ")
	if err != nil {
		return err
	}
	neutral.Printf("  %s\n", pretty)
	printProgression(v.QuestsDone, v.Unlocked)
	neutral.Printf("Balance: %d coins\n", v.Balance)
	return nil
}

func renderBlackjack(res engine.Result) error {
	var v engine.BlackjackView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	accent.Printf("Blackjack (stake %d)\n", v.Session.Stake)
	neutral.Printf("  you    %s = %d\n", handString(v.Session.PlayerHand), games.HandValue(v.Session.PlayerHand))
	if v.Settlement == nil {
		neutral.Printf("  dealer %s + ?\n", cardString(v.Session.DealerHand[0]))
		warn.Println("Hit or stand?")
		return nil
	}
	neutral.Printf("  dealer %s = %d\n", handString(v.Session.DealerHand), v.Settlement.DealerTotal)
	switch v.Settlement.Result {
	case "win", "blackjack":
		success.Printf("%s! Paid %d coins.\n", title(v.Settlement.Result), v.Settlement.Payout)
	case "push":
		warn.Println("Push. Stake returned.")
	default:
		danger.Printf("%s. Stake lost.\n", title(v.Settlement.Result))
	}
	neutral.Printf("Balance: %d coins\n", v.Balance)
	return nil
}

func renderLootbox(res engine.Result) error {
	var v engine.LootboxView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	if v.ItemID != "" {
		success.Printf("The lootbox held a %s!\n", v.ItemID)
	} else {
		success.Printf("The lootbox held %d coins!\n", v.Coins)
	}
	neutral.Printf("Balance: %d coins\n", v.Balance)
	return nil
}

func renderJob(res engine.Result) error {
	var v engine.JobView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	if len(v.Jobs) > 0 {
		accent.Println("Jobs")
		for _, j := range v.Jobs {
			m, _ := j.(map[string]any)
			neutral.Printf("  %-10s %s (base %v, +%v/level)\n", m["id"], m["name"], m["salary_base"], m["salary_per_level"])
		}
	}
	if v.JobID != "" {
		success.Printf("Current job: %s (level %d)\n", v.JobID, v.JobLevel)
	}
	return nil
}

func renderJobWork(res engine.Result) error {
	var v engine.JobWorkView
	if err := cl.DecodeData(res, &v); err != nil {
		return err
	}
	success.Printf("Shift done as %s: +%d coins\n", v.JobID, v.Salary)
	if v.LeveledUp {
		accent.Printf("Promoted to job level %d!\n", v.JobLevel)
	}
	neutral.Printf("Balance: %d coins\n", v.Balance)
	return nil
}

func renderPortfolio(res engine.Result) error {
	var positions []engine.PositionView
	if err := cl.DecodeData(res, &positions); err != nil {
		return err
	}
	if len(positions) == 0 {
		neutral.Println("No open positions.")
		return nil
	}
	accent.Println("Portfolio")
	for _, p := range positions {
		line := fmt.Sprintf("  %-10s x%-6d avg %-8s now %-8s value %d (%+d)",
			p.AssetID, p.Quantity, p.AvgCost, p.Price, p.Value, p.Unrealized)
		if p.Unrealized >= 0 {
			success.Println(line)
		} else {
			danger.Println(line)
		}
	}
	return nil
}

func renderAchievements(res engine.Result) error {
	var list []engine.AchievementView
	if err := cl.DecodeData(res, &list); err != nil {
		return err
	}
	accent.Println("Achievements")
	for _, a := range list {
		mark := " "
		if a.Unlocked {
			mark = "x"
		}
		neutral.Printf("  [%s] %-20s %d coins\n", mark, a.Name, a.Reward)
	}
	return nil
}

func renderQuests(res engine.Result) error {
	var list []engine.QuestView
	if err := cl.DecodeData(res, &list); err != nil {
		return err
	}
	accent.Println("Quests")
	for _, q := range list {
		mark := " "
		if q.Done {
			mark = "x"
		}
		neutral.Printf("  [%s] %-18s %d/%d (%d coins)\n", mark, q.Name, q.Progress, q.Target, q.Reward)
	}
	return nil
}

func renderLeaderboard(res engine.Result) error {
	var rows []engine.LeaderboardRow
	if err := cl.DecodeData(res, &rows); err != nil {
		return err
	}
	accent.Println("Leaderboard")
	for _, r := range rows {
		neutral.Printf("  %2d. %-20s level %-3d %d coins\n", r.Rank, r.ID, r.Level, r.NetWorth)
	}
	return nil
}

func printProgression(quests, achievements []string) {
	for _, q := range quests {
		accent.Printf("Quest complete: %s\n", q)
	}
	for _, a := range achievements {
		accent.Printf("Achievement unlocked: %s\n", a)
	}
}

func handString(hand []int) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = cardString(c)
	}
	return strings.Join(parts, " ")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cardString(rank int) string {
	switch rank {
	case 1:
		return "A"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

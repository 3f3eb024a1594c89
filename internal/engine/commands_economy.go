package engine

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"coinmint/internal/ledger"
	"coinmint/internal/model"
)

type ProfileView struct {
	ID         string `json:"id"`
	Balance    int64  `json:"balance"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	JobID      string `json:"job_id,omitempty"`
	JobLevel   int    `json:"job_level,omitempty"`
	NetWorth   int64  `json:"net_worth"`
}

type ClaimView struct {
	Action     string   `json:"action"`
	Reward     int64    `json:"reward"`
	Exp        int      `json:"exp"`
	Balance    int64    `json:"balance"`
	LeveledUp  bool     `json:"leveled_up"`
	QuestsDone []string `json:"quests_done,omitempty"`
	Unlocked   []string `json:"achievements_unlocked,omitempty"`
}

type AssetView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Micro       bool   `json:"micro"`
}

func (e *Engine) profile(ctx context.Context, accountID string) (ProfileView, error) {
	acct, err := e.ledger.Get(ctx, accountID)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{
		ID:         acct.ID,
		Balance:    acct.Balance,
		Level:      acct.Level,
		Experience: acct.Experience,
		JobID:      acct.JobID,
		JobLevel:   acct.JobLevel,
		NetWorth:   e.netWorth(&acct),
	}, nil
}

// claim handles the daily/work family: one gated random reward plus
// experience, stamped and credited in a single mutation. The reward is
// rolled only after the gate passes so rejected claims never consume a
// draw.
func (e *Engine) claim(ctx context.Context, accountID, action string, gateBase time.Duration, minReward, maxReward int64, exp int) (ClaimView, error) {
	now := e.clock.Now()
	view := ClaimView{Action: action, Exp: exp}
	acct, completed, unlocked, err := e.mutate(ctx, accountID, action, func(a *model.Account) error {
		if err := e.gate(a, action, gateBase, now); err != nil {
			return err
		}
		view.Reward = e.between(minReward, maxReward)
		a.Balance += view.Reward
		view.LeveledUp = ledger.AddExperience(a, exp)
		return nil
	})
	if err != nil {
		return ClaimView{}, err
	}
	view.Balance = acct.Balance
	view.QuestsDone = completed
	view.Unlocked = unlocked
	return view, nil
}

func (e *Engine) shop() []AssetView {
	assets := e.book.List()
	out := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		out = append(out, AssetView{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Price:       a.Price.StringFixed(2),
			Micro:       a.Micro,
		})
	}
	return out
}

func (e *Engine) price(cmd Command) (AssetView, error) {
	id, err := argString(cmd.Args, "asset")
	if err != nil {
		return AssetView{}, err
	}
	a, err := e.book.Get(id)
	if err != nil {
		return AssetView{}, err
	}
	return AssetView{ID: a.ID, Name: a.Name, Description: a.Description, Price: a.Price.StringFixed(2), Micro: a.Micro}, nil
}

type TradeView struct {
	AssetID  string   `json:"asset_id"`
	Quantity int64    `json:"quantity"`
	Price    string   `json:"price"`
	Total    int64    `json:"total"`
	Balance  int64    `json:"balance"`
	Unlocked []string `json:"achievements_unlocked,omitempty"`
}

func (e *Engine) buy(ctx context.Context, cmd Command) (TradeView, error) {
	id, qty, err := e.tradeArgs(cmd)
	if err != nil {
		return TradeView{}, err
	}
	asset, err := e.book.Get(id)
	if err != nil {
		return TradeView{}, err
	}
	// Price is read once here; the simulator may move it before the
	// mutation commits. Accepted race, bounded by the per-trade cap.
	cost := asset.Price.Mul(decimal.NewFromInt(qty)).Ceil().IntPart()
	view := TradeView{AssetID: id, Quantity: qty, Price: asset.Price.StringFixed(2), Total: cost}
	acct, _, unlocked, err := e.mutate(ctx, cmd.AccountID, "buy", func(a *model.Account) error {
		if a.Balance < cost {
			return ledger.ErrInsufficientFunds
		}
		a.Balance -= cost
		if a.Inventory == nil {
			a.Inventory = make(map[string]int64)
		}
		a.Inventory[id] += qty
		ledger.AddExperience(a, 20)
		return nil
	})
	if err != nil {
		return TradeView{}, err
	}
	view.Balance = acct.Balance
	view.Unlocked = unlocked
	return view, nil
}

func (e *Engine) sell(ctx context.Context, cmd Command) (TradeView, error) {
	id, qty, err := e.tradeArgs(cmd)
	if err != nil {
		return TradeView{}, err
	}
	asset, err := e.book.Get(id)
	if err != nil {
		return TradeView{}, err
	}
	resale := asset.Price.
		Mul(decimal.NewFromInt(qty)).
		Mul(decimal.NewFromFloat(e.cat.Tuning.ShopResaleRate)).
		Floor().IntPart()
	view := TradeView{AssetID: id, Quantity: qty, Price: asset.Price.StringFixed(2), Total: resale}
	acct, _, unlocked, err := e.mutate(ctx, cmd.AccountID, "", func(a *model.Account) error {
		if a.Inventory[id] < qty {
			return badArg("you own %d of %q", a.Inventory[id], id)
		}
		a.Inventory[id] -= qty
		if a.Inventory[id] == 0 {
			delete(a.Inventory, id)
		}
		a.Balance += resale
		return nil
	})
	if err != nil {
		return TradeView{}, err
	}
	view.Balance = acct.Balance
	view.Unlocked = unlocked
	return view, nil
}

func (e *Engine) tradeArgs(cmd Command) (string, int64, error) {
	id, err := argString(cmd.Args, "asset")
	if err != nil {
		return "", 0, err
	}
	qty := int64(1)
	if _, ok := cmd.Args["quantity"]; ok {
		if qty, err = argInt64(cmd.Args, "quantity"); err != nil {
			return "", 0, err
		}
	}
	if qty <= 0 || qty > e.cat.Tuning.TradeCapUnits {
		return "", 0, badArg("quantity must be in [1,%d]", e.cat.Tuning.TradeCapUnits)
	}
	return id, qty, nil
}

type InventoryView struct {
	Items map[string]int64 `json:"items"`
}

func (e *Engine) inventory(ctx context.Context, accountID string) (InventoryView, error) {
	acct, err := e.ledger.Get(ctx, accountID)
	if err != nil {
		return InventoryView{}, err
	}
	return InventoryView{Items: acct.Inventory}, nil
}

type UseView struct {
	ItemID  string `json:"item_id"`
	Action  string `json:"action"`
	Expires string `json:"expires"`
}

func (e *Engine) useItem(ctx context.Context, cmd Command) (UseView, error) {
	id, err := argString(cmd.Args, "item")
	if err != nil {
		return UseView{}, err
	}
	def, ok := e.cat.Boosters[id]
	if !ok {
		return UseView{}, badArg("%q is not usable", id)
	}
	now := e.clock.Now()
	acct, _, _, err := e.mutate(ctx, cmd.AccountID, "", func(a *model.Account) error {
		if !ledger.ActivateBooster(a, e.cat, id, now) {
			return badArg("you do not own a %q", id)
		}
		return nil
	})
	if err != nil {
		return UseView{}, err
	}
	return UseView{ItemID: id, Action: def.Action, Expires: acct.Boosters[id].Format(time.RFC3339)}, nil
}

type GiveView struct {
	Target string `json:"target"`
	Amount int64  `json:"amount"`
}

func (e *Engine) give(ctx context.Context, cmd Command) (GiveView, error) {
	if cmd.TargetID == "" {
		return GiveView{}, badArg("target account is required")
	}
	amount, err := argInt64(cmd.Args, "amount")
	if err != nil {
		return GiveView{}, err
	}
	if err := e.ledger.Transfer(ctx, cmd.AccountID, cmd.TargetID, amount); err != nil {
		return GiveView{}, err
	}
	return GiveView{Target: cmd.TargetID, Amount: amount}, nil
}

type LootboxView struct {
	Coins   int64  `json:"coins,omitempty"`
	ItemID  string `json:"item_id,omitempty"`
	Balance int64  `json:"balance"`
}

// lootbox consumes one lootbox item behind its own cooldown and yields
// either coins or a random shop item. The drop is rolled after the
// ownership and cooldown checks so rejected opens never consume a
// draw.
func (e *Engine) lootbox(ctx context.Context, accountID string) (LootboxView, error) {
	now := e.clock.Now()
	var view LootboxView
	acct, _, _, err := e.mutate(ctx, accountID, "", func(a *model.Account) error {
		if a.Inventory["lootbox"] <= 0 {
			return badArg("you do not own a lootbox")
		}
		if left := ledger.TimeLeft(a, e.cat, "lootbox", e.cat.Tuning.LootboxGate(), now); left > 0 {
			return &CooldownError{Action: "lootbox", Remaining: left}
		}
		ledger.Stamp(a, "lootbox", now)
		a.Inventory["lootbox"]--
		if a.Inventory["lootbox"] == 0 {
			delete(a.Inventory, "lootbox")
		}
		if e.intn(100) < 40 {
			view.Coins = e.between(200, 800)
			a.Balance += view.Coins
		} else {
			items := e.cat.Assets
			view.ItemID = items[e.intn(len(items))].ID
			a.Inventory[view.ItemID]++
		}
		ledger.AddExperience(a, 25)
		return nil
	})
	if err != nil {
		return LootboxView{}, err
	}
	view.Balance = acct.Balance
	return view, nil
}

type JobView struct {
	JobID    string `json:"job_id,omitempty"`
	JobLevel int    `json:"job_level,omitempty"`
	Jobs     []any  `json:"jobs,omitempty"`
}

func (e *Engine) job(ctx context.Context, cmd Command) (JobView, error) {
	id := optionalString(cmd.Args, "job")
	if id == "" {
		acct, err := e.ledger.Get(ctx, cmd.AccountID)
		if err != nil {
			return JobView{}, err
		}
		view := JobView{JobID: acct.JobID, JobLevel: acct.JobLevel}
		for _, j := range e.cat.Jobs {
			view.Jobs = append(view.Jobs, map[string]any{
				"id": j.ID, "name": j.Name, "salary_base": j.SalaryBase, "salary_per_level": j.SalaryPerLevel,
			})
		}
		return view, nil
	}
	if _, ok := e.cat.Job(id); !ok {
		return JobView{}, badArg("unknown job %q", id)
	}
	acct, _, _, err := e.mutate(ctx, cmd.AccountID, "", func(a *model.Account) error {
		if a.JobID == id {
			return badArg("you already work as a %s", id)
		}
		// Switching careers starts over.
		a.JobID = id
		a.JobLevel = 1
		a.JobExperience = 0
		return nil
	})
	if err != nil {
		return JobView{}, err
	}
	return JobView{JobID: acct.JobID, JobLevel: acct.JobLevel}, nil
}

type JobWorkView struct {
	JobID     string `json:"job_id"`
	Salary    int64  `json:"salary"`
	JobLevel  int    `json:"job_level"`
	LeveledUp bool   `json:"job_leveled_up"`
	Balance   int64  `json:"balance"`
}

func (e *Engine) jobWork(ctx context.Context, accountID string) (JobWorkView, error) {
	now := e.clock.Now()
	var view JobWorkView
	acct, _, _, err := e.mutate(ctx, accountID, "work", func(a *model.Account) error {
		if a.JobID == "" {
			return badArg("join a job first")
		}
		job, ok := e.cat.Job(a.JobID)
		if !ok {
			return badArg("job %q no longer exists", a.JobID)
		}
		if left := ledger.TimeLeft(a, e.cat, "jobwork", e.cat.Tuning.JobGate(), now); left > 0 {
			return &CooldownError{Action: "jobwork", Remaining: left}
		}
		ledger.Stamp(a, "jobwork", now)
		salary := job.SalaryBase + job.SalaryPerLevel*int64(a.JobLevel-1)
		a.Balance += salary
		view.JobID = a.JobID
		view.Salary = salary
		view.LeveledUp = ledger.AddJobExperience(a, job.ExpPerShift)
		ledger.AddExperience(a, 15)
		view.JobLevel = a.JobLevel
		return nil
	})
	if err != nil {
		return JobWorkView{}, err
	}
	view.Balance = acct.Balance
	return view, nil
}

type PositionView struct {
	AssetID    string `json:"asset_id"`
	Quantity   int64  `json:"quantity"`
	AvgCost    string `json:"avg_cost"`
	Price      string `json:"price"`
	Value      int64  `json:"value"`
	Unrealized int64  `json:"unrealized"`
}

func (e *Engine) invest(ctx context.Context, cmd Command) (TradeView, error) {
	id, qty, err := e.tradeArgs(cmd)
	if err != nil {
		return TradeView{}, err
	}
	asset, err := e.book.Get(id)
	if err != nil {
		return TradeView{}, err
	}
	cost := asset.Price.Mul(decimal.NewFromInt(qty)).Ceil().IntPart()
	view := TradeView{AssetID: id, Quantity: qty, Price: asset.Price.StringFixed(2), Total: cost}
	acct, _, unlocked, err := e.mutate(ctx, cmd.AccountID, "invest", func(a *model.Account) error {
		if a.Balance < cost {
			return ledger.ErrInsufficientFunds
		}
		a.Balance -= cost
		if a.Investments == nil {
			a.Investments = make(map[string]model.Position)
		}
		pos := a.Investments[id]
		// Weighted average cost across the combined position.
		oldTotal := pos.AvgCost.Mul(decimal.NewFromInt(pos.Quantity))
		newTotal := asset.Price.Mul(decimal.NewFromInt(qty))
		pos.Quantity += qty
		pos.AvgCost = oldTotal.Add(newTotal).Div(decimal.NewFromInt(pos.Quantity)).Round(4)
		a.Investments[id] = pos
		return nil
	})
	if err != nil {
		return TradeView{}, err
	}
	view.Balance = acct.Balance
	view.Unlocked = unlocked
	return view, nil
}

func (e *Engine) divest(ctx context.Context, cmd Command) (TradeView, error) {
	id, qty, err := e.tradeArgs(cmd)
	if err != nil {
		return TradeView{}, err
	}
	asset, err := e.book.Get(id)
	if err != nil {
		return TradeView{}, err
	}
	proceeds := asset.Price.Mul(decimal.NewFromInt(qty)).Floor().IntPart()
	view := TradeView{AssetID: id, Quantity: qty, Price: asset.Price.StringFixed(2), Total: proceeds}
	acct, _, unlocked, err := e.mutate(ctx, cmd.AccountID, "", func(a *model.Account) error {
		pos := a.Investments[id]
		if pos.Quantity < qty {
			return badArg("you hold %d units of %q", pos.Quantity, id)
		}
		pos.Quantity -= qty
		if pos.Quantity == 0 {
			delete(a.Investments, id)
		} else {
			a.Investments[id] = pos
		}
		a.Balance += proceeds
		return nil
	})
	if err != nil {
		return TradeView{}, err
	}
	view.Balance = acct.Balance
	view.Unlocked = unlocked
	return view, nil
}

func (e *Engine) portfolio(ctx context.Context, accountID string) ([]PositionView, error) {
	acct, err := e.ledger.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]PositionView, 0, len(acct.Investments))
	for id, pos := range acct.Investments {
		price, err := e.book.Price(id)
		if err != nil {
			continue
		}
		value := price.Mul(decimal.NewFromInt(pos.Quantity)).Floor().IntPart()
		costBasis := pos.AvgCost.Mul(decimal.NewFromInt(pos.Quantity)).Floor().IntPart()
		out = append(out, PositionView{
			AssetID:    id,
			Quantity:   pos.Quantity,
			AvgCost:    pos.AvgCost.StringFixed(2),
			Price:      price.StringFixed(2),
			Value:      value,
			Unrealized: value - costBasis,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

type AchievementView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Reward   int64  `json:"reward"`
	Unlocked bool   `json:"unlocked"`
}

func (e *Engine) achievements(ctx context.Context, accountID string) ([]AchievementView, error) {
	acct, err := e.ledger.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]AchievementView, 0, len(e.cat.Achievements))
	for _, a := range e.cat.Achievements {
		out = append(out, AchievementView{ID: a.ID, Name: a.Name, Reward: a.Reward, Unlocked: acct.Achievements[a.ID]})
	}
	return out, nil
}

type QuestView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Progress int64  `json:"progress"`
	Target   int64  `json:"target"`
	Reward   int64  `json:"reward"`
	Done     bool   `json:"done"`
}

func (e *Engine) quests(ctx context.Context, accountID string) ([]QuestView, error) {
	acct, err := e.ledger.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]QuestView, 0, len(e.cat.Quests))
	for _, q := range e.cat.Quests {
		p := acct.QuestProgress[q.ID]
		out = append(out, QuestView{ID: q.ID, Name: q.Name, Progress: p, Target: q.Target, Reward: q.Reward, Done: p >= q.Target})
	}
	return out, nil
}

type LeaderboardRow struct {
	Rank     int64  `json:"rank"`
	ID       string `json:"id"`
	Level    int    `json:"level"`
	NetWorth int64  `json:"net_worth"`
}

func (e *Engine) leaderboard(_ context.Context) ([]LeaderboardRow, error) {
	accounts := e.ledger.Snapshot()
	rows := make([]LeaderboardRow, 0, len(accounts))
	for i := range accounts {
		rows = append(rows, LeaderboardRow{
			ID:       accounts[i].ID,
			Level:    accounts[i].Level,
			NetWorth: e.netWorth(&accounts[i]),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].NetWorth > rows[j].NetWorth })
	if len(rows) > 20 {
		rows = rows[:20]
	}
	for i := range rows {
		rows[i].Rank = int64(i + 1)
	}
	return rows, nil
}

// netWorth values holdings and investments at the latest committed
// prices.
func (e *Engine) netWorth(a *model.Account) int64 {
	total := a.Balance
	for id, qty := range a.Inventory {
		if price, err := e.book.Price(id); err == nil {
			total += price.Mul(decimal.NewFromInt(qty)).Floor().IntPart()
		}
	}
	for id, pos := range a.Investments {
		if price, err := e.book.Price(id); err == nil {
			total += price.Mul(decimal.NewFromInt(pos.Quantity)).Floor().IntPart()
		}
	}
	return total
}

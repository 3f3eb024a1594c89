package engine

import (
	"context"
	"math/rand"

	"coinmint/internal/games"
	"coinmint/internal/ledger"
	"coinmint/internal/metrics"
	"coinmint/internal/model"
)

// GameView wraps an instant-game result with the post-settlement balance
// and any progression side effects.
type GameView struct {
	Game       string   `json:"game"`
	Result     any      `json:"result"`
	Balance    int64    `json:"balance"`
	QuestsDone []string `json:"quests_done,omitempty"`
	Unlocked   []string `json:"achievements_unlocked,omitempty"`
}

// playInstant runs one instant game: the stake is checked and the RNG
// consumed inside the account mutation, so a failed balance check never
// burns a draw and the settle is atomic with the debit.
func (e *Engine) playInstant(ctx context.Context, accountID, game string, stake int64, resolve func(rng *rand.Rand) (any, games.Outcome, error)) (GameView, error) {
	view := GameView{Game: game}
	acct, completed, unlocked, err := e.mutate(ctx, accountID, "game", func(a *model.Account) error {
		if a.Balance < stake {
			return ledger.ErrInsufficientFunds
		}
		return e.withRNG(func(rng *rand.Rand) error {
			result, out, err := resolve(rng)
			if err != nil {
				return err
			}
			a.Balance += out.Delta
			ledger.AddExperience(a, out.Exp)
			view.Result = result
			return nil
		})
	})
	if err != nil {
		return GameView{}, err
	}
	view.Balance = acct.Balance
	view.QuestsDone = completed
	view.Unlocked = unlocked
	return view, nil
}

func (e *Engine) coinflip(ctx context.Context, cmd Command) (GameView, error) {
	stake, err := e.stakeFor(cmd)
	if err != nil {
		return GameView{}, err
	}
	guess, err := argString(cmd.Args, "guess")
	if err != nil {
		return GameView{}, err
	}
	return e.playInstant(ctx, cmd.AccountID, "coinflip", stake, func(rng *rand.Rand) (any, games.Outcome, error) {
		res, err := games.Coinflip(e.cat.Tuning, stake, guess, rng)
		return res, res.Outcome, err
	})
}

func (e *Engine) slots(ctx context.Context, cmd Command) (GameView, error) {
	stake, err := e.stakeFor(cmd)
	if err != nil {
		return GameView{}, err
	}
	return e.playInstant(ctx, cmd.AccountID, "slots", stake, func(rng *rand.Rand) (any, games.Outcome, error) {
		res, err := games.Slots(e.cat, stake, rng)
		return res, res.Outcome, err
	})
}

func (e *Engine) plinko(ctx context.Context, cmd Command) (GameView, error) {
	stake, err := e.stakeFor(cmd)
	if err != nil {
		return GameView{}, err
	}
	return e.playInstant(ctx, cmd.AccountID, "plinko", stake, func(rng *rand.Rand) (any, games.Outcome, error) {
		res, err := games.Plinko(e.cat, stake, rng)
		return res, res.Outcome, err
	})
}

func (e *Engine) cups(ctx context.Context, cmd Command) (GameView, error) {
	stake, err := e.stakeFor(cmd)
	if err != nil {
		return GameView{}, err
	}
	pick, err := argInt64(cmd.Args, "pick")
	if err != nil {
		return GameView{}, err
	}
	return e.playInstant(ctx, cmd.AccountID, "cups", stake, func(rng *rand.Rand) (any, games.Outcome, error) {
		res, err := games.Cups(e.cat.Tuning, stake, int(pick), rng)
		return res, res.Outcome, err
	})
}

func (e *Engine) horserace(ctx context.Context, cmd Command) (GameView, error) {
	stake, err := e.stakeFor(cmd)
	if err != nil {
		return GameView{}, err
	}
	pick, err := argInt64(cmd.Args, "horse")
	if err != nil {
		return GameView{}, err
	}
	return e.playInstant(ctx, cmd.AccountID, "horserace", stake, func(rng *rand.Rand) (any, games.Outcome, error) {
		res, err := games.HorseRace(e.cat, stake, int(pick), rng)
		return res, res.Outcome, err
	})
}

type RobView struct {
	Target  string `json:"target"`
	Success bool   `json:"success"`
	Stolen  int64  `json:"stolen,omitempty"`
	Penalty int64  `json:"penalty,omitempty"`
	Balance int64  `json:"balance"`
}

// rob validates everything before touching randomness: a rejected
// attempt never stamps the cooldown or rolls the dice. The victim is
// only ever debited through Transfer, so their balance stays consistent
// under concurrent spending.
func (e *Engine) rob(ctx context.Context, cmd Command) (RobView, error) {
	if cmd.TargetID == "" {
		return RobView{}, badArg("target account is required")
	}
	if cmd.TargetID == cmd.AccountID {
		return RobView{}, badArg("you cannot rob yourself")
	}
	if !e.ledger.Exists(cmd.TargetID) {
		return RobView{}, &notFoundTarget{id: cmd.TargetID}
	}
	victim, err := e.ledger.Get(ctx, cmd.TargetID)
	if err != nil {
		return RobView{}, err
	}
	floor := e.cat.Tuning.RobVictimFloor
	if victim.Balance <= floor {
		return RobView{}, badArg("%s has nothing worth taking", cmd.TargetID)
	}

	now := e.clock.Now()
	if _, _, _, err := e.mutate(ctx, cmd.AccountID, "", func(a *model.Account) error {
		return e.gate(a, "rob", e.cat.Tuning.RobGate(), now)
	}); err != nil {
		return RobView{}, err
	}

	var plan games.RobPlan
	_ = e.withRNG(func(rng *rand.Rand) error {
		plan = games.RollRob(e.cat.Tuning, rng)
		return nil
	})

	view := RobView{Target: cmd.TargetID, Success: plan.Success}
	if plan.Success {
		// Re-read the victim after the cooldown mutation; the steal is
		// sized from their live balance and never dips below the floor.
		victim, err = e.ledger.Get(ctx, cmd.TargetID)
		if err != nil {
			return RobView{}, err
		}
		steal := int64(plan.StealFrac * float64(victim.Balance))
		if max := victim.Balance - floor; steal > max {
			steal = max
		}
		if steal <= 0 {
			return RobView{}, badArg("%s has nothing worth taking", cmd.TargetID)
		}
		if err := e.ledger.Transfer(ctx, cmd.TargetID, cmd.AccountID, steal); err != nil {
			return RobView{}, err
		}
		view.Stolen = steal
		acct, _, _, err := e.mutate(ctx, cmd.AccountID, "game", func(a *model.Account) error {
			ledger.AddExperience(a, games.ExpWin)
			return nil
		})
		if err != nil {
			return RobView{}, err
		}
		view.Balance = acct.Balance
		return view, nil
	}

	acct, _, _, err := e.mutate(ctx, cmd.AccountID, "game", func(a *model.Account) error {
		penalty := int64(plan.PenaltyFrac * float64(a.Balance))
		if penalty > a.Balance {
			penalty = a.Balance
		}
		a.Balance -= penalty
		view.Penalty = penalty
		ledger.AddExperience(a, games.ExpLose)
		return nil
	})
	if err != nil {
		return RobView{}, err
	}
	view.Balance = acct.Balance
	return view, nil
}

// BlackjackView is returned by every blackjack command. Settlement is
// nil while the hand still awaits a decision.
type BlackjackView struct {
	Session    games.BlackjackSession `json:"session"`
	Settlement *games.Settlement      `json:"settlement,omitempty"`
	Balance    int64                  `json:"balance"`
}

func (e *Engine) blackjackStart(ctx context.Context, cmd Command) (BlackjackView, error) {
	stake, err := e.stakeFor(cmd)
	if err != nil {
		return BlackjackView{}, err
	}
	// The stake is reserved up front. If the player walks away, the
	// janitor only has to drop the session; the money is already gone.
	acct, _, _, err := e.mutate(ctx, cmd.AccountID, "game", func(a *model.Account) error {
		if a.Balance < stake {
			return ledger.ErrInsufficientFunds
		}
		a.Balance -= stake
		return nil
	})
	if err != nil {
		return BlackjackView{}, err
	}

	var (
		sess    games.BlackjackSession
		settled *games.Settlement
	)
	startErr := e.withRNG(func(rng *rand.Rand) error {
		var err error
		sess, settled, err = e.sessions.Start(cmd.AccountID, stake, rng, e.clock.Now())
		return err
	})
	if startErr != nil {
		// Undo the reservation; the deal never happened.
		if _, _, _, rerr := e.mutate(ctx, cmd.AccountID, "", func(a *model.Account) error {
			a.Balance += stake
			return nil
		}); rerr != nil {
			e.log.Error("blackjack stake refund failed", "account", cmd.AccountID, "stake", stake, "err", rerr)
		}
		return BlackjackView{}, startErr
	}
	metrics.ActiveSessions.Set(float64(e.sessions.Active()))

	view := BlackjackView{Session: sess, Settlement: settled, Balance: acct.Balance}
	if settled != nil {
		return e.settleBlackjack(ctx, cmd.AccountID, view)
	}
	return view, nil
}

func (e *Engine) blackjackHit(ctx context.Context, accountID string) (BlackjackView, error) {
	return e.blackjackMove(ctx, accountID, func(rng *rand.Rand) (games.BlackjackSession, *games.Settlement, error) {
		return e.sessions.Hit(accountID, rng, e.clock.Now())
	})
}

func (e *Engine) blackjackStand(ctx context.Context, accountID string) (BlackjackView, error) {
	return e.blackjackMove(ctx, accountID, func(rng *rand.Rand) (games.BlackjackSession, *games.Settlement, error) {
		return e.sessions.Stand(accountID, rng, e.clock.Now())
	})
}

func (e *Engine) blackjackMove(ctx context.Context, accountID string, move func(rng *rand.Rand) (games.BlackjackSession, *games.Settlement, error)) (BlackjackView, error) {
	var (
		sess    games.BlackjackSession
		settled *games.Settlement
	)
	err := e.withRNG(func(rng *rand.Rand) error {
		var err error
		sess, settled, err = move(rng)
		return err
	})
	if err != nil {
		return BlackjackView{}, err
	}
	metrics.ActiveSessions.Set(float64(e.sessions.Active()))

	view := BlackjackView{Session: sess, Settlement: settled}
	if settled != nil {
		return e.settleBlackjack(ctx, accountID, view)
	}
	acct, err := e.ledger.Get(ctx, accountID)
	if err != nil {
		return BlackjackView{}, err
	}
	view.Balance = acct.Balance
	return view, nil
}

// settleBlackjack credits the payout and experience for a terminal hand.
func (e *Engine) settleBlackjack(ctx context.Context, accountID string, view BlackjackView) (BlackjackView, error) {
	exp := games.ExpLose
	switch view.Settlement.Result {
	case games.ResultWin, games.ResultBlackjack:
		exp = games.ExpWin
	}
	acct, _, _, err := e.mutate(ctx, accountID, "", func(a *model.Account) error {
		a.Balance += view.Settlement.Payout
		ledger.AddExperience(a, exp)
		return nil
	})
	if err != nil {
		return BlackjackView{}, err
	}
	view.Balance = acct.Balance
	return view, nil
}

// notFoundTarget wraps a missing rob target so it classifies as
// not_found rather than conjuring the account into existence.
type notFoundTarget struct{ id string }

func (e *notFoundTarget) Error() string { return "account " + e.id + " does not exist" }
func (e *notFoundTarget) Unwrap() error { return ledger.ErrUnknownAccount }

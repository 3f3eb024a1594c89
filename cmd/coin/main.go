package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cl "coinmint/internal/cli"
	"coinmint/internal/config"
	"coinmint/internal/engine"
)

var (
	apiBase     string
	accountFlag string
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase = cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "coin",
		Short:        "Coinmint economy game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&accountFlag, "account", "a", cfg.AccountID, "account id (defaults to the saved session)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newProfileCmd(),
		newClaimCmd("daily", "Claim your daily reward"),
		newClaimCmd("work", "Do a shift of freelance work"),
		newShopCmd(),
		newPriceCmd(),
		newTradeCmd("buy", "Buy items from the shop"),
		newTradeCmd("sell", "Sell items back to the shop"),
		newInventoryCmd(),
		newUseCmd(),
		newGiveCmd(),
		newRobCmd(),
		newCoinflipCmd(),
		newStakeGameCmd("slots", "Spin the slot machine"),
		newStakeGameCmd("plinko", "Drop a plinko chip"),
		newCupsCmd(),
		newHorseraceCmd(),
		newBlackjackCmd(),
		newMoveCmd("hit", "Draw a card in your blackjack hand"),
		newMoveCmd("stand", "Stand and settle your blackjack hand"),
		newLootboxCmd(),
		newJobCmd(),
		newJobWorkCmd(),
		newTradeCmd("invest", "Open or extend a market position"),
		newTradeCmd("divest", "Close part of a market position"),
		newPortfolioCmd(),
		newListCmd("achievements", "Show achievements", renderAchievements),
		newListCmd("quests", "Show quest progress", renderQuests),
		newLeaderboardCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func accountID() (string, error) {
	if id := strings.TrimSpace(accountFlag); id != "" {
		return id, nil
	}
	sess, err := cl.LoadSession()
	if err != nil {
		return "", fmt.Errorf("no account selected: run `coin login <account>` or pass --account")
	}
	return sess.AccountID, nil
}

// run executes one engine command against the API for the selected
// account.
func run(cmd *cobra.Command, name, target string, args map[string]any) (engine.Result, error) {
	id, err := accountID()
	if err != nil {
		return engine.Result{}, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	client := cl.NewClient(apiBase)
	return client.Execute(ctx, engine.Command{
		AccountID: id,
		Name:      name,
		TargetID:  target,
		Args:      args,
	})
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <account>",
		Short: "Save an account id as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("account id must not be empty")
			}
			if err := cl.SaveSession(cl.Session{AccountID: id}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Playing as %s.", id))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved account id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session cleared.")
			return nil
		},
	}
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "profile",
		Short:   "Show your balance, level, and net worth",
		Aliases: []string{"balance", "bal"},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "profile", "", nil)
			if err != nil {
				return err
			}
			return renderProfile(res)
		},
	}
}

func newClaimCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, name, "", nil)
			if err != nil {
				return cooldownHint(err)
			}
			return renderClaim(res)
		},
	}
}

func newShopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shop",
		Short: "List the shop and current prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "shop", "", nil)
			if err != nil {
				return err
			}
			return renderShop(res)
		},
	}
}

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <asset>",
		Short: "Show one asset's live price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "price", "", map[string]any{"asset": args[0]})
			if err != nil {
				return err
			}
			return renderAsset(res)
		},
	}
}

func newTradeCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <asset> [quantity]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{"asset": args[0]}
			if len(args) == 2 {
				qty, err := parsePositive(args[1], "quantity")
				if err != nil {
					return err
				}
				a["quantity"] = qty
			}
			res, err := run(cmd, name, "", a)
			if err != nil {
				return err
			}
			return renderTrade(res, name)
		},
	}
}

func newInventoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "inventory",
		Short:   "Show what you own",
		Aliases: []string{"inv"},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "inventory", "", nil)
			if err != nil {
				return err
			}
			return renderInventory(res)
		},
	}
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <item>",
		Short: "Activate a booster from your inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "use", "", map[string]any{"item": args[0]})
			if err != nil {
				return err
			}
			return renderUse(res)
		},
	}
}

func newGiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "give <account> <amount>",
		Short: "Transfer coins to another player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parsePositive(args[1], "amount")
			if err != nil {
				return err
			}
			res, err := run(cmd, "give", args[0], map[string]any{"amount": amount})
			if err != nil {
				return err
			}
			return renderGive(res)
		},
	}
}

func newRobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rob <account>",
		Short: "Attempt to rob another player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "rob", args[0], nil)
			if err != nil {
				return cooldownHint(err)
			}
			return renderRob(res)
		},
	}
}

func newCoinflipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coinflip <stake> <heads|tails>",
		Short: "Flip a coin for your stake",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stake, err := parsePositive(args[0], "stake")
			if err != nil {
				return err
			}
			res, err := run(cmd, "coinflip", "", map[string]any{"stake": stake, "guess": strings.ToLower(args[1])})
			if err != nil {
				return err
			}
			return renderGame(res)
		},
	}
}

func newStakeGameCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <stake>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stake, err := parsePositive(args[0], "stake")
			if err != nil {
				return err
			}
			res, err := run(cmd, name, "", map[string]any{"stake": stake})
			if err != nil {
				return err
			}
			return renderGame(res)
		},
	}
}

func newCupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cups <stake> <1|2|3>",
		Short: "Pick the cup hiding the ball",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stake, err := parsePositive(args[0], "stake")
			if err != nil {
				return err
			}
			pick, err := parsePositive(args[1], "pick")
			if err != nil {
				return err
			}
			res, err := run(cmd, "cups", "", map[string]any{"stake": stake, "pick": pick})
			if err != nil {
				return err
			}
			return renderGame(res)
		},
	}
}

func newHorseraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "horserace <stake> <horse>",
		Short: "Back a horse by index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stake, err := parsePositive(args[0], "stake")
			if err != nil {
				return err
			}
			horse, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
			if err != nil || horse < 0 {
				return fmt.Errorf("invalid horse index")
			}
			res, err := run(cmd, "horserace", "", map[string]any{"stake": stake, "horse": horse})
			if err != nil {
				return err
			}
			return renderGame(res)
		},
	}
}

func newBlackjackCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "blackjack <stake>",
		Short:   "Deal a blackjack hand",
		Aliases: []string{"bj"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stake, err := parsePositive(args[0], "stake")
			if err != nil {
				return err
			}
			res, err := run(cmd, "blackjack", "", map[string]any{"stake": stake})
			if err != nil {
				return err
			}
			return renderBlackjack(res)
		},
	}
}

func newMoveCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, name, "", nil)
			if err != nil {
				return err
			}
			return renderBlackjack(res)
		},
	}
}

func newLootboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lootbox",
		Short: "Open a lootbox from your inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "lootbox", "", nil)
			if err != nil {
				return cooldownHint(err)
			}
			return renderLootbox(res)
		},
	}
}

func newJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job [id]",
		Short: "Show jobs, or join one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{}
			if len(args) == 1 {
				a["job"] = args[0]
			}
			res, err := run(cmd, "job", "", a)
			if err != nil {
				return err
			}
			return renderJob(res)
		},
	}
}

func newJobWorkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobwork",
		Short: "Work a shift at your job",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "jobwork", "", nil)
			if err != nil {
				return cooldownHint(err)
			}
			return renderJobWork(res)
		},
	}
}

func newPortfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show your market positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "portfolio", "", nil)
			if err != nil {
				return err
			}
			return renderPortfolio(res)
		},
	}
}

func newListCmd(name, short string, render func(engine.Result) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, name, "", nil)
			if err != nil {
				return err
			}
			return render(res)
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Short:   "Show the net-worth leaderboard",
		Aliases: []string{"top"},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, "leaderboard", "", nil)
			if err != nil {
				return err
			}
			return renderLeaderboard(res)
		},
	}
}

func parsePositive(raw, label string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", label)
	}
	return v, nil
}

// cooldownHint turns a cooldown rejection into a friendlier message.
func cooldownHint(err error) error {
	var apiErr *cl.APIError
	if ok := asAPIError(err, &apiErr); ok && apiErr.Kind == engine.KindOnCooldown {
		if secs, ok := apiErr.Details["retry_in_seconds"].(float64); ok {
			return fmt.Errorf("on cooldown, try again in %s", (time.Duration(secs) * time.Second).String())
		}
	}
	return err
}

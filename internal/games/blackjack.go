package games

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Blackjack session states. Awaiting is the only state that accepts
// player input; everything else is terminal or internal to Stand.
type BlackjackState string

const (
	StateAwaiting  BlackjackState = "awaiting_player_decision"
	StateBusted    BlackjackState = "busted"
	StateSettled   BlackjackState = "settled"
	StateAbandoned BlackjackState = "abandoned"
)

// Blackjack results, as reported in the settlement.
const (
	ResultWin       = "win"
	ResultLose      = "lose"
	ResultPush      = "push"
	ResultBust      = "bust"
	ResultBlackjack = "blackjack"
	ResultAbandoned = "abandoned"
)

const dealerStandsAt = 17

// BlackjackSession is the ephemeral state of one interactive hand. The
// stake has already been debited when the session exists; a settlement
// payout is the only money that flows back.
type BlackjackSession struct {
	ID         string         `json:"id"`
	Player     string         `json:"player"`
	Stake      int64          `json:"stake"`
	State      BlackjackState `json:"state"`
	PlayerHand []int          `json:"player_hand"`
	DealerHand []int          `json:"dealer_hand"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

// Settlement is the terminal financial outcome of a session. Payout is
// the total credited back (0 on a loss, stake on a push).
type Settlement struct {
	Result      string `json:"result"`
	Payout      int64  `json:"payout"`
	PlayerTotal int    `json:"player_total"`
	DealerTotal int    `json:"dealer_total"`
}

func newBlackjackSession(player string, stake int64, winMult float64, window time.Duration, rng *rand.Rand, now time.Time) (*BlackjackSession, *Settlement) {
	s := &BlackjackSession{
		ID:         uuid.NewString(),
		Player:     player,
		Stake:      stake,
		State:      StateAwaiting,
		PlayerHand: []int{drawCard(rng), drawCard(rng)},
		DealerHand: []int{drawCard(rng), drawCard(rng)},
		CreatedAt:  now,
		ExpiresAt:  now.Add(window),
	}
	if HandValue(s.PlayerHand) == 21 {
		// Natural 21 settles immediately; a dealer natural pushes.
		return s, s.settleStand(winMult, rng, true)
	}
	return s, nil
}

// Hit draws one card. Going over 21 busts the hand, which settles
// immediately as a loss.
func (s *BlackjackSession) hit(rng *rand.Rand) *Settlement {
	s.PlayerHand = append(s.PlayerHand, drawCard(rng))
	if HandValue(s.PlayerHand) > 21 {
		s.State = StateBusted
		return &Settlement{
			Result:      ResultBust,
			Payout:      0,
			PlayerTotal: HandValue(s.PlayerHand),
			DealerTotal: HandValue(s.DealerHand),
		}
	}
	return nil
}

// Stand freezes the player hand and resolves the dealer: draw to 17+,
// then compare.
func (s *BlackjackSession) settleStand(winMult float64, rng *rand.Rand, natural bool) *Settlement {
	for HandValue(s.DealerHand) < dealerStandsAt {
		s.DealerHand = append(s.DealerHand, drawCard(rng))
	}
	s.State = StateSettled

	player := HandValue(s.PlayerHand)
	dealer := HandValue(s.DealerHand)
	out := &Settlement{PlayerTotal: player, DealerTotal: dealer}
	switch {
	case natural && dealer == 21:
		out.Result = ResultPush
		out.Payout = s.Stake
	case natural:
		out.Result = ResultBlackjack
		out.Payout = mulRound(s.Stake, winMult)
	case dealer > 21 || player > dealer:
		out.Result = ResultWin
		out.Payout = mulRound(s.Stake, winMult)
	case player == dealer:
		out.Result = ResultPush
		out.Payout = s.Stake
	default:
		out.Result = ResultLose
		out.Payout = 0
	}
	return out
}

func (s *BlackjackSession) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// drawCard returns a rank 1..13 from an unlimited shoe.
func drawCard(rng *rand.Rand) int {
	return rng.Intn(13) + 1
}

// HandValue scores a hand: face cards count 10, aces count 11 and are
// demoted to 1 one at a time while the total would bust.
func HandValue(hand []int) int {
	total := 0
	aces := 0
	for _, c := range hand {
		switch {
		case c == 1:
			aces++
			total += 11
		case c >= 10:
			total += 10
		default:
			total += c
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

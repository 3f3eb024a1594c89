package games

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

var (
	ErrSessionConflict = errors.New("a game is already awaiting your decision")
	ErrNoSession       = errors.New("no game awaiting a decision")
	ErrSessionExpired  = errors.New("the game timed out")
)

// Sessions tracks at most one live blackjack hand per player. It never
// touches the ledger: the caller debits the stake before Start returns
// the session to the player, and credits whatever settlement pays out.
// An expired session is abandoned and its stake forfeited.
type Sessions struct {
	log     *slog.Logger
	window  time.Duration
	winMult float64

	mu       sync.Mutex
	byPlayer map[string]*BlackjackSession
}

// Expired describes a session swept after its deadline.
type Expired struct {
	Player string
	Stake  int64
}

func NewSessions(window time.Duration, winMult float64, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		log:      logger,
		window:   window,
		winMult:  winMult,
		byPlayer: make(map[string]*BlackjackSession),
	}
}

// Start deals a new hand. A second start while one is awaiting input is
// rejected, never superseded. A natural 21 settles immediately and the
// returned settlement carries the payout.
func (s *Sessions) Start(player string, stake int64, rng *rand.Rand, now time.Time) (BlackjackSession, *Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.byPlayer[player]; ok {
		if !cur.expired(now) {
			return BlackjackSession{}, nil, ErrSessionConflict
		}
		// Stale session: abandon in place, stake already forfeited.
		cur.State = StateAbandoned
		delete(s.byPlayer, player)
		s.log.Info("blackjack session abandoned", "player", player, "stake", cur.Stake)
	}

	sess, settled := newBlackjackSession(player, stake, s.winMult, s.window, rng, now)
	if settled == nil {
		s.byPlayer[player] = sess
	}
	return *snapshot(sess), settled, nil
}

// Abort removes a just-started session, for when the stake debit fails
// after the deal. No settlement applies.
func (s *Sessions) Abort(player, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byPlayer[player]; ok && cur.ID == sessionID {
		delete(s.byPlayer, player)
	}
}

// Hit draws a card for the player's live session. A bust settles and
// removes the session.
func (s *Sessions) Hit(player string, rng *rand.Rand, now time.Time) (BlackjackSession, *Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.live(player, now)
	if err != nil {
		return BlackjackSession{}, nil, err
	}
	settled := sess.hit(rng)
	if settled != nil {
		delete(s.byPlayer, player)
	}
	return *snapshot(sess), settled, nil
}

// Stand resolves the dealer and settles the session.
func (s *Sessions) Stand(player string, rng *rand.Rand, now time.Time) (BlackjackSession, *Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.live(player, now)
	if err != nil {
		return BlackjackSession{}, nil, err
	}
	settled := sess.settleStand(s.winMult, rng, false)
	delete(s.byPlayer, player)
	return *snapshot(sess), settled, nil
}

// Sweep abandons every session past its deadline and reports them. The
// stake was reserved at start, so forfeiture needs no ledger write.
func (s *Sessions) Sweep(now time.Time) []Expired {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Expired
	for player, sess := range s.byPlayer {
		if !sess.expired(now) {
			continue
		}
		sess.State = StateAbandoned
		delete(s.byPlayer, player)
		out = append(out, Expired{Player: player, Stake: sess.Stake})
		s.log.Info("blackjack session abandoned", "player", player, "stake", sess.Stake)
	}
	return out
}

// Active returns the number of live sessions.
func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPlayer)
}

// live must be called with the lock held.
func (s *Sessions) live(player string, now time.Time) (*BlackjackSession, error) {
	sess, ok := s.byPlayer[player]
	if !ok {
		return nil, ErrNoSession
	}
	if sess.expired(now) {
		sess.State = StateAbandoned
		delete(s.byPlayer, player)
		s.log.Info("blackjack session abandoned", "player", player, "stake", sess.Stake)
		return nil, ErrSessionExpired
	}
	return sess, nil
}

func snapshot(sess *BlackjackSession) *BlackjackSession {
	cp := *sess
	cp.PlayerHand = append([]int(nil), sess.PlayerHand...)
	cp.DealerHand = append([]int(nil), sess.DealerHand...)
	return &cp
}

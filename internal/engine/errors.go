package engine

import (
	"errors"
	"fmt"
	"time"

	"coinmint/internal/games"
	"coinmint/internal/ledger"
	"coinmint/internal/market"
)

// Kind classifies a command failure for the transport layer. All errors
// surface as structured results; nothing escapes as a panic.
type Kind string

const (
	KindInvalidArgument   Kind = "invalid_argument"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindOnCooldown        Kind = "on_cooldown"
	KindNotFound          Kind = "not_found"
	KindSessionConflict   Kind = "session_conflict"
	KindTimeout           Kind = "timeout"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// CooldownError carries the remaining wait so the caller can report it.
type CooldownError struct {
	Action    string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Action, e.Remaining.Round(time.Second))
}

func badArg(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errInvalidArgument}, args...)...)
}

var errInvalidArgument = errors.New("invalid argument")

// classify maps an error to its Kind.
func classify(err error) Kind {
	var cd *CooldownError
	switch {
	case errors.As(err, &cd):
		return KindOnCooldown
	case errors.Is(err, errInvalidArgument),
		errors.Is(err, games.ErrBadChoice),
		errors.Is(err, games.ErrBadStake),
		errors.Is(err, ledger.ErrInvalidAmount):
		return KindInvalidArgument
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ledger.ErrUnknownAccount),
		errors.Is(err, market.ErrAssetNotFound),
		errors.Is(err, games.ErrNoSession):
		return KindNotFound
	case errors.Is(err, games.ErrSessionConflict):
		return KindSessionConflict
	case errors.Is(err, games.ErrSessionExpired):
		return KindTimeout
	default:
		return KindInternal
	}
}

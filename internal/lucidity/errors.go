package lucidity

import (
	"errors"
	"fmt"
	"time"
)

// Caller errors. No state is mutated when one of these is returned.
var (
	ErrUnknownActionCode        = errors.New("unknown recovery action code")
	ErrUnknownEncounterCategory = errors.New("unknown encounter category")
	ErrOnCooldown               = errors.New("action is on cooldown")
)

// ErrStorage marks transient ledger failures. The triggering operation is
// aborted with no partial writes; callers may retry.
var ErrStorage = errors.New("lucidity storage error")

// CooldownError reports a rejected recovery attempt along with the time
// remaining, for user-facing messaging. Matches ErrOnCooldown via errors.Is.
type CooldownError struct {
	ActionCode string
	Remaining  time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.ActionCode, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrOnCooldown }

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

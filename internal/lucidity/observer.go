package lucidity

import "time"

// TransitionObserver receives tier-boundary callbacks from the Engine.
// Implementations must not block: OnFloorReached in particular fires
// inside the adjustment write path.
type TransitionObserver interface {
	// OnCatatoniaEntered fires when an actor drops into the terminal tier.
	OnCatatoniaEntered(actorID string, at time.Time)

	// OnCatatoniaCleared fires when an actor leaves the terminal tier.
	OnCatatoniaCleared(actorID string)

	// OnFloorReached fires once per crossing of the absolute floor. The
	// actor may still be conscious in game terms; relocation is the
	// observer's problem, not the ledger's.
	OnFloorReached(actorID string, score int)
}

// NopObserver satisfies TransitionObserver and does nothing. Useful as a
// default before wiring and in tests.
type NopObserver struct{}

func (NopObserver) OnCatatoniaEntered(string, time.Time) {}
func (NopObserver) OnCatatoniaCleared(string)            {}
func (NopObserver) OnFloorReached(string, int)           {}

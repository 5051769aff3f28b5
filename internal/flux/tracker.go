package flux

import "math"

// tracker is the scheduler-private per-actor state between cadences. Only
// the scheduler goroutine touches it, so no locking.
type tracker struct {
	residual       float64
	roomID         string
	cadencesInRoom int
}

// visit updates the in-room cadence counter, resetting it when the actor
// has moved since the last cadence.
func (t *tracker) visit(roomID string) {
	if t.roomID == roomID {
		t.cadencesInRoom++
		return
	}
	t.roomID = roomID
	t.cadencesInRoom = 1
}

// carry folds the cadence's flux into the residual accumulator and emits
// the whole-unit delta once the accumulator's magnitude reaches 1.0, with
// the fraction left behind for the next cadence. Truncation toward zero is
// the floor of a positive crossing and the ceiling of a negative one, so
// the running sum never drops or double-counts sub-unit drift.
func (t *tracker) carry(flux float64) int {
	t.residual += flux
	if math.Abs(t.residual) < 1.0 {
		return 0
	}
	emitted := int(math.Trunc(t.residual))
	t.residual -= float64(emitted)
	return emitted
}

// resistanceFactor scales negative flux down for actors who have stayed
// put: 25% off after one full window, 50% off after two. Positive flux is
// never resisted.
func resistanceFactor(cadencesInRoom, window int) float64 {
	if window <= 0 {
		return 1.0
	}
	switch {
	case cadencesInRoom > 2*window:
		return 0.5
	case cadencesInRoom > window:
		return 0.75
	default:
		return 1.0
	}
}

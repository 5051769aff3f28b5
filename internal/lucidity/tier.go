// Package lucidity provides the psychological-stability ledger: bounded
// scores, tiers, the adjustment engine, triggered effects, and the
// catatonia registry.
package lucidity

import "encoding/json"

// Score bounds. Every write is clamped into this range.
const (
	ScoreMin = -100
	ScoreMax = 100
)

// Tier is the discrete stability band derived from a score.
type Tier uint8

const (
	TierStable    Tier = iota // score >= 70
	TierUneasy                // score >= 40
	TierFractured             // score >= 20
	TierDeranged              // score >= 1
	TierTerminal              // score <= 0
)

var tierNames = [...]string{"stable", "uneasy", "fractured", "deranged", "terminal"}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "unknown"
}

// MarshalJSON renders the tier as its lowercase name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a tier name produced by MarshalJSON.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range tierNames {
		if n == name {
			*t = Tier(i)
			return nil
		}
	}
	*t = TierTerminal
	return nil
}

// Impaired reports whether actors in this tier drag down co-located
// companions (deranged and terminal).
func (t Tier) Impaired() bool {
	return t == TierDeranged || t == TierTerminal
}

// ResolveTier maps a score to its tier. Total over any int, not just the
// clamp range, so pre-clamp values resolve without panicking.
func ResolveTier(score int) Tier {
	switch {
	case score >= 70:
		return TierStable
	case score >= 40:
		return TierUneasy
	case score >= 20:
		return TierFractured
	case score >= 1:
		return TierDeranged
	default:
		return TierTerminal
	}
}

// ClampScore bounds a score to [ScoreMin, ScoreMax].
func ClampScore(score int) int {
	if score > ScoreMax {
		return ScoreMax
	}
	if score < ScoreMin {
		return ScoreMin
	}
	return score
}

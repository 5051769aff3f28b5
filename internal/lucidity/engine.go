package lucidity

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hollowmere/internal/entropy"
	"github.com/talgya/hollowmere/internal/notify"
)

// AcuteCrisisThreshold is the score at or below which a delirium
// notification fires. Independent of the terminal-tier boundary and of the
// absolute floor; the three are always evaluated separately.
const AcuteCrisisThreshold = -10

// Result describes one applied adjustment.
type Result struct {
	PreviousScore    int      `json:"previous_score"`
	NewScore         int      `json:"new_score"`
	PreviousTier     Tier     `json:"previous_tier"`
	NewTier          Tier     `json:"new_tier"`
	Delta            int      `json:"delta"`
	LiabilitiesAdded []string `json:"liabilities_added,omitempty"`
}

// Engine is the single authoritative mutation path for stability scores.
// It clamps, resolves tiers, rolls liabilities, persists atomically, and
// fans transition callbacks out after the write commits.
type Engine struct {
	ledger    Ledger
	observer  TransitionObserver
	publisher notify.Publisher
	entropy   *entropy.Source

	lossThreshold int
	now           func() time.Time
}

// EngineOption tweaks engine construction.
type EngineOption func(*Engine)

// WithLossThreshold overrides the single-hit magnitude that forces a
// liability roll.
func WithLossThreshold(n int) EngineOption {
	return func(e *Engine) { e.lossThreshold = n }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithEntropy injects the randomness source used for liability draws.
func WithEntropy(src *entropy.Source) EngineOption {
	return func(e *Engine) { e.entropy = src }
}

// NewEngine wires an engine. observer and publisher may be nil for callers
// that only need the ledger math.
func NewEngine(ledger Ledger, observer TransitionObserver, publisher notify.Publisher, opts ...EngineOption) *Engine {
	e := &Engine{
		ledger:        ledger,
		observer:      observer,
		publisher:     publisher,
		lossThreshold: 15,
		now:           time.Now,
	}
	if e.observer == nil {
		e.observer = NopObserver{}
	}
	if e.publisher == nil {
		e.publisher = notify.NopPublisher{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply adjusts an actor's score by delta. Unknown actors start at the
// score ceiling. Either the updated record and its log entry both persist
// or neither does; observer and transport callbacks fire only after the
// write commits and can never roll it back.
func (e *Engine) Apply(ctx context.Context, actorID string, delta int, reason string, metadata map[string]string, locationID string) (Result, error) {
	rec, err := e.ledger.GetOrCreate(ctx, actorID)
	if err != nil {
		return Result{}, storageErr("load record", err)
	}

	prevScore := rec.Score
	prevTier := rec.Tier
	newScore := ClampScore(prevScore + delta)
	newTier := ResolveTier(newScore)

	res := Result{
		PreviousScore: prevScore,
		NewScore:      newScore,
		PreviousTier:  prevTier,
		NewTier:       newTier,
		Delta:         delta,
	}

	// Threshold crossings, each evaluated on its own boundary.
	enteredCatatonia := newTier == TierTerminal && rec.CatatoniaEnteredAt == nil
	clearedCatatonia := newTier != TierTerminal && rec.CatatoniaEnteredAt != nil
	acuteCrisis := newScore <= AcuteCrisisThreshold && prevScore > AcuteCrisisThreshold
	floorReached := newScore <= ScoreMin && prevScore > ScoreMin

	now := e.now().UTC()
	if enteredCatatonia {
		at := now
		rec.CatatoniaEnteredAt = &at
	}
	if clearedCatatonia {
		rec.CatatoniaEnteredAt = nil
	}

	// Severe single hits and strict tier worsening both stack a liability.
	if (delta < 0 && -delta >= e.lossThreshold) || newTier > prevTier {
		code := rollLiability(rec, e.draw)
		rec.AddLiability(code)
		res.LiabilitiesAdded = append(res.LiabilitiesAdded, code)
	}

	rec.Score = newScore
	rec.Tier = newTier

	entry := LogEntry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Delta:      delta,
		Reason:     reason,
		Metadata:   metadata,
		LocationID: locationID,
		CreatedAt:  now,
	}
	if err := e.ledger.SaveAdjustment(ctx, rec, entry); err != nil {
		return Result{}, storageErr("save adjustment", err)
	}

	// Post-commit side effects. Failures here never unwind the write.
	if enteredCatatonia {
		e.observer.OnCatatoniaEntered(actorID, now)
		e.publish(rec, delta, reason, metadata, notify.StatusCatatonia, "consciousness folds inward", now)
	}
	if clearedCatatonia {
		e.observer.OnCatatoniaCleared(actorID)
	}
	if acuteCrisis {
		e.publish(rec, delta, reason, metadata, notify.StatusDelirium, "the delirium takes hold", now)
	}
	if floorReached {
		e.observer.OnFloorReached(actorID, newScore)
		e.publish(rec, delta, reason, metadata, notify.StatusFloor, "nothing remains to lose", now)
	}
	if delta != 0 || newTier != prevTier {
		e.publish(rec, delta, reason, metadata, notify.StatusStateChange, "", now)
	}

	slog.Debug("adjustment applied",
		"actor", actorID,
		"delta", delta,
		"reason", reason,
		"score", newScore,
		"tier", newTier.String(),
	)
	return res, nil
}

func (e *Engine) draw(n int) int {
	return e.entropy.IntN(n)
}

func (e *Engine) publish(rec Record, delta int, reason string, metadata map[string]string, status, message string, at time.Time) {
	liabilities := make([]notify.Liability, 0, len(rec.Liabilities))
	for _, l := range rec.Liabilities {
		liabilities = append(liabilities, notify.Liability{Code: l.Code, Stacks: l.Stacks})
	}
	e.publisher.Publish(notify.Event{
		ActorID:     rec.ActorID,
		Status:      status,
		Score:       rec.Score,
		MaxScore:    ScoreMax,
		Delta:       delta,
		Tier:        rec.Tier.String(),
		Liabilities: liabilities,
		Reason:      reason,
		Source:      "lucidity",
		Message:     message,
		Metadata:    metadata,
		At:          at,
	})
}

package lucidity

import (
	"context"
	"errors"
	"time"
)

// Ledger store sentinel errors.
var (
	// ErrActorNotFound indicates the actor has no presence row.
	ErrActorNotFound = errors.New("actor not found")
)

// Liability is a stackable negative status attached to an actor after a
// severe or worsening loss.
type Liability struct {
	Code   string `json:"code" db:"code"`
	Stacks int    `json:"stacks" db:"stacks"`
}

// Record is the per-actor stability ledger row. Mutated only through the
// Engine; tier always equals ResolveTier(score) after a write.
type Record struct {
	ActorID            string      `json:"actor_id" db:"actor_id"`
	Score              int         `json:"score" db:"score"`
	Tier               Tier        `json:"tier" db:"tier"`
	Liabilities        []Liability `json:"liabilities"`
	CatatoniaEnteredAt *time.Time  `json:"catatonia_entered_at,omitempty" db:"catatonia_entered_at"`
}

// NewRecord returns the starting ledger row for a fresh actor.
func NewRecord(actorID string) Record {
	return Record{
		ActorID: actorID,
		Score:   ScoreMax,
		Tier:    TierStable,
	}
}

// LogEntry is one immutable row of the adjustment log. Never mutated or
// deleted once written.
type LogEntry struct {
	ID         string            `json:"id" db:"id"`
	ActorID    string            `json:"actor_id" db:"actor_id"`
	Delta      int               `json:"delta" db:"delta"`
	Reason     string            `json:"reason" db:"reason"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	LocationID string            `json:"location_id,omitempty" db:"location_id"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// Exposure tracks how many times an actor has faced a hostile archetype.
// The counter only ever grows.
type Exposure struct {
	ActorID         string    `db:"actor_id"`
	Archetype       string    `db:"archetype"`
	EncounterCount  int       `db:"encounter_count"`
	LastEncounterAt time.Time `db:"last_encounter_at"`
}

// ActorInfo is the presence metadata the scheduler scans for eligibility.
type ActorInfo struct {
	ActorID      string    `db:"actor_id"`
	RoomID       string    `db:"room_id"`
	Tier         Tier      `db:"tier"`
	LastActiveAt time.Time `db:"last_active_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// Ledger is the durable store behind the subsystem. Implementations must
// serialize concurrent writes per actor; this package holds no locks of
// its own. SaveAdjustment persists the record, its liabilities, and the
// log entry in a single transaction.
type Ledger interface {
	GetOrCreate(ctx context.Context, actorID string) (Record, error)
	SaveAdjustment(ctx context.Context, rec Record, entry LogEntry) error

	Exposure(ctx context.Context, actorID, archetype string) (Exposure, error)
	IncrementExposure(ctx context.Context, actorID, archetype string, at time.Time) (int, error)

	// Cooldown returns the expiry for an actor/action pair; the zero time
	// means no cooldown is recorded.
	Cooldown(ctx context.Context, actorID, action string) (time.Time, error)
	SetCooldown(ctx context.Context, actorID, action string, expiry time.Time) error

	UpsertPresence(ctx context.Context, info ActorInfo) error
	ListActiveActors(ctx context.Context, activeSince, createdSince time.Time) ([]ActorInfo, error)
}

// HasLiability reports whether the record already carries the given code.
func (r Record) HasLiability(code string) bool {
	for _, l := range r.Liabilities {
		if l.Code == code {
			return true
		}
	}
	return false
}

// AddLiability stacks the code onto the record, incrementing an existing
// entry or appending a new one with a single stack.
func (r *Record) AddLiability(code string) {
	for i := range r.Liabilities {
		if r.Liabilities[i].Code == code {
			r.Liabilities[i].Stacks++
			return
		}
	}
	r.Liabilities = append(r.Liabilities, Liability{Code: code, Stacks: 1})
}

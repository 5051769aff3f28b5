package flux

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/talgya/hollowmere/internal/entropy"
	"github.com/talgya/hollowmere/internal/lucidity"
	"github.com/talgya/hollowmere/internal/notify"
	"github.com/talgya/hollowmere/internal/world"
)

// ReasonPassiveFlux is the adjustment reason for scheduler-driven drift.
const ReasonPassiveFlux = "passive_flux"

// Companion modifier constants: each steady co-located actor lends a
// little stability, any impaired one erodes it.
const (
	companionBonus    = 0.1
	companionBonusCap = 0.3
	impairedPenalty   = -0.2
)

// Hallucination checks for impaired actors: timer-gated per actor via the
// ledger's cooldown rows, then rolled against a per-tier chance.
const (
	hallucinationAction   = "hallucination_check"
	hallucinationInterval = 10 * time.Minute

	hallucinationChanceDeranged = 0.25
	hallucinationChanceTerminal = 0.5
)

// Adjuster is the slice of the engine the scheduler needs.
type Adjuster interface {
	Apply(ctx context.Context, actorID string, delta int, reason string, metadata map[string]string, locationID string) (lucidity.Result, error)
}

// Config tunes the scheduler.
type Config struct {
	// GlobalDefault is the rate used when an actor's room is unknown and
	// nothing else in the hierarchy matches.
	GlobalDefault float64

	// ResistanceWindow is how many cadences in one location complete a
	// resistance window.
	ResistanceWindow int

	// ActiveWithin bounds the eligibility scan: actors active more
	// recently than this are processed.
	ActiveWithin time.Duration

	// NewActorWindow keeps freshly created actors eligible before their
	// first activity refresh.
	NewActorWindow time.Duration

	// CadenceTimeout bounds one whole cadence pass.
	CadenceTimeout time.Duration
}

// DefaultConfig returns the standard scheduler tuning.
func DefaultConfig() Config {
	return Config{
		GlobalDefault:    -0.1,
		ResistanceWindow: 30,
		ActiveWithin:     5 * time.Minute,
		NewActorWindow:   time.Hour,
		CadenceTimeout:   30 * time.Second,
	}
}

// Scheduler computes and applies passive drift for every eligible actor
// once per cadence. All per-actor trackers are private to the scheduler
// goroutine.
type Scheduler struct {
	ledger    lucidity.Ledger
	adjust    Adjuster
	atlas     *world.Atlas
	overrides *OverrideTable
	cfg       Config

	publisher notify.Publisher
	rng       *entropy.Source

	trackers map[string]*tracker
	now      func() time.Time

	consecutiveScanFails int
}

// Option tweaks scheduler construction.
type Option func(*Scheduler)

// WithPublisher enables hallucination notifications for impaired actors.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithEntropy injects the randomness source for hallucination rolls.
func WithEntropy(src *entropy.Source) Option {
	return func(s *Scheduler) { s.rng = src }
}

// NewScheduler wires a scheduler. overrides may be nil.
func NewScheduler(ledger lucidity.Ledger, adjust Adjuster, atlas *world.Atlas, overrides *OverrideTable, cfg Config, opts ...Option) *Scheduler {
	if cfg.ResistanceWindow <= 0 {
		cfg.ResistanceWindow = 30
	}
	if cfg.ActiveWithin <= 0 {
		cfg.ActiveWithin = 5 * time.Minute
	}
	if cfg.NewActorWindow <= 0 {
		cfg.NewActorWindow = time.Hour
	}
	if cfg.CadenceTimeout <= 0 {
		cfg.CadenceTimeout = 30 * time.Second
	}
	s := &Scheduler{
		ledger:    ledger,
		adjust:    adjust,
		atlas:     atlas,
		overrides: overrides,
		cfg:       cfg,
		trackers:  make(map[string]*tracker),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetClock injects a time source for tests.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// RunCadence processes one drift cadence across all eligible actors.
func (s *Scheduler) RunCadence(tick uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CadenceTimeout)
	defer cancel()

	wallNow := s.now().UTC()
	actors, err := s.ledger.ListActiveActors(ctx, wallNow.Add(-s.cfg.ActiveWithin), wallNow.Add(-s.cfg.NewActorWindow))
	if err != nil {
		s.consecutiveScanFails++
		// Escalate after repeated failures; one miss is routine churn.
		if s.consecutiveScanFails >= 3 {
			slog.Error("actor scan failing repeatedly", "error", err, "consecutive", s.consecutiveScanFails)
		} else {
			slog.Warn("actor scan failed", "error", err)
		}
		return
	}
	s.consecutiveScanFails = 0

	night := world.IsNight(tick)

	// Group by room once so companion modifiers are O(actors).
	byRoom := make(map[string][]lucidity.ActorInfo)
	for _, a := range actors {
		byRoom[a.RoomID] = append(byRoom[a.RoomID], a)
	}

	eligible := make(map[string]struct{}, len(actors))
	for _, actor := range actors {
		eligible[actor.ActorID] = struct{}{}
		s.processActor(ctx, actor, byRoom[actor.RoomID], night)
	}

	// Drop trackers for actors who fell off the eligibility scan.
	for id := range s.trackers {
		if _, ok := eligible[id]; !ok {
			delete(s.trackers, id)
		}
	}
}

func (s *Scheduler) processActor(ctx context.Context, actor lucidity.ActorInfo, roommates []lucidity.ActorInfo, night bool) {
	tr, ok := s.trackers[actor.ActorID]
	if !ok {
		tr = &tracker{}
		s.trackers[actor.ActorID] = tr
	}
	tr.visit(actor.RoomID)

	if actor.Tier.Impaired() && s.publisher != nil {
		s.checkHallucination(ctx, actor)
	}

	base, source := s.resolveRate(actor.RoomID, night)
	companion := companionModifier(actor.ActorID, roommates)
	rate := base + companion

	factor := 1.0
	if rate < 0 {
		factor = resistanceFactor(tr.cadencesInRoom, s.cfg.ResistanceWindow)
		rate *= factor
	}

	emitted := tr.carry(rate)
	if emitted == 0 {
		return
	}

	metadata := map[string]string{
		"room":       actor.RoomID,
		"source":     source,
		"base_rate":  strconv.FormatFloat(base, 'f', 2, 64),
		"companions": strconv.FormatFloat(companion, 'f', 2, 64),
		"resistance": strconv.FormatFloat(factor, 'f', 2, 64),
		"residual":   strconv.FormatFloat(tr.residual, 'f', 4, 64),
	}
	if _, err := s.adjust.Apply(ctx, actor.ActorID, emitted, ReasonPassiveFlux, metadata, actor.RoomID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("cadence ran out of time", "actor", actor.ActorID)
			return
		}
		slog.Warn("passive flux apply failed", "actor", actor.ActorID, "error", err)
	}
}

// checkHallucination rolls a timer-gated hallucination for an impaired
// actor. The cooldown gates the check itself, so a failed roll still waits
// out the interval before the next attempt.
func (s *Scheduler) checkHallucination(ctx context.Context, actor lucidity.ActorInfo) {
	now := s.now().UTC()
	expiry, err := s.ledger.Cooldown(ctx, actor.ActorID, hallucinationAction)
	if err != nil {
		slog.Warn("hallucination cooldown read failed", "actor", actor.ActorID, "error", err)
		return
	}
	if expiry.After(now) {
		return
	}
	if err := s.ledger.SetCooldown(ctx, actor.ActorID, hallucinationAction, now.Add(hallucinationInterval)); err != nil {
		slog.Warn("hallucination cooldown write failed", "actor", actor.ActorID, "error", err)
		return
	}

	chance := hallucinationChanceDeranged
	if actor.Tier == lucidity.TierTerminal {
		chance = hallucinationChanceTerminal
	}
	if s.rng.Float() >= chance {
		return
	}

	rec, err := s.ledger.GetOrCreate(ctx, actor.ActorID)
	if err != nil {
		slog.Warn("hallucination record load failed", "actor", actor.ActorID, "error", err)
		return
	}
	s.publisher.Publish(notify.Event{
		ActorID:  actor.ActorID,
		Status:   notify.StatusHallucination,
		Score:    rec.Score,
		MaxScore: lucidity.ScoreMax,
		Tier:     rec.Tier.String(),
		Source:   "lucidity",
		Message:  "something moves where nothing should",
		Metadata: map[string]string{"room": actor.RoomID},
		At:       now,
	})
}

// resolveRate walks the override hierarchy, most specific wins: external
// override, exact room, sub-region, region, location-type day/night
// default, global default.
func (s *Scheduler) resolveRate(roomID string, night bool) (float64, string) {
	room, ok := s.atlas.Room(roomID)
	if !ok {
		return s.cfg.GlobalDefault, "global_default"
	}
	if rate, ok := s.overrides.Lookup(room.Plane, room.Region, room.Subregion); ok {
		return rate, "world_override"
	}
	if room.FluxOverride != nil {
		return *room.FluxOverride, "room"
	}
	if rate, ok := s.atlas.SubregionFlux(room.Plane, room.Region, room.Subregion); ok {
		return rate, "subregion"
	}
	if rate, ok := s.atlas.RegionFlux(room.Plane, room.Region); ok {
		return rate, "region"
	}
	return world.BaseFlux(room.Type, night), "location_type"
}

// companionModifier sums the co-location effects: +0.1 per steady
// companion capped at +0.3, plus -0.2 if anyone present is impaired. The
// two are additive, not exclusive.
func companionModifier(actorID string, roommates []lucidity.ActorInfo) float64 {
	var steady int
	var impaired bool
	for _, other := range roommates {
		if other.ActorID == actorID {
			continue
		}
		if other.Tier.Impaired() {
			impaired = true
		} else {
			steady++
		}
	}
	bonus := companionBonus * float64(steady)
	if bonus > companionBonusCap {
		bonus = companionBonusCap
	}
	if impaired {
		bonus += impairedPenalty
	}
	return bonus
}

// Residual exposes an actor's current fractional accumulator. Test hook.
func (s *Scheduler) Residual(actorID string) float64 {
	if tr, ok := s.trackers[actorID]; ok {
		return tr.residual
	}
	return 0
}

// TrackerCount reports how many actors currently have drift trackers.
func (s *Scheduler) TrackerCount() int {
	return len(s.trackers)
}

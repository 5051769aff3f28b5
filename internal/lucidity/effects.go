package lucidity

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Gateway validates and gates the discrete triggered effects: hostile
// encounters and recovery rituals. Final score mutation always goes
// through the Engine.
type Gateway struct {
	ledger   Ledger
	engine   *Engine
	catalogs Catalogs
	now      func() time.Time
}

// GatewayOption tweaks gateway construction.
type GatewayOption func(*Gateway)

// WithGatewayClock injects a time source for tests.
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway wires a gateway over the given engine and effect catalogs.
func NewGateway(ledger Ledger, engine *Engine, catalogs Catalogs, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		ledger:   ledger,
		engine:   engine,
		catalogs: catalogs,
		now:      time.Now,
	}
	if g.catalogs.AcclimationThreshold <= 0 {
		g.catalogs.AcclimationThreshold = 6
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ApplyEncounter records a hostile encounter with an archetype and applies
// the category's stability loss. The first exposure to an archetype uses
// the first-time delta; once the exposure counter reaches the acclimation
// threshold the repeat delta is halved toward zero, but a negative repeat
// never fully acclimates away (a halved 0 floors at -1).
func (g *Gateway) ApplyEncounter(ctx context.Context, actorID, archetype, category, locationID string) (Result, error) {
	profile, ok := g.catalogs.Encounters[category]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownEncounterCategory, category)
	}

	count, err := g.ledger.IncrementExposure(ctx, actorID, archetype, g.now().UTC())
	if err != nil {
		return Result{}, storageErr("increment exposure", err)
	}

	delta := profile.Repeat
	switch {
	case count <= 1:
		delta = profile.FirstTime
	case count >= g.catalogs.AcclimationThreshold:
		delta = profile.Repeat / 2
		if delta == 0 && profile.Repeat < 0 {
			delta = -1
		}
	}

	metadata := map[string]string{
		"archetype":       archetype,
		"category":        category,
		"encounter_count": strconv.Itoa(count),
	}
	return g.engine.Apply(ctx, actorID, delta, "encounter_"+category, metadata, locationID)
}

// PerformRecovery runs a recovery ritual if its cooldown allows, applying
// the restorative delta and arming a fresh cooldown. A live cooldown is
// rejected with a CooldownError carrying the remaining wait.
func (g *Gateway) PerformRecovery(ctx context.Context, actorID, actionCode, locationID string) (Result, error) {
	profile, ok := g.catalogs.Recoveries[actionCode]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownActionCode, actionCode)
	}

	now := g.now().UTC()
	expiry, err := g.ledger.Cooldown(ctx, actorID, actionCode)
	if err != nil {
		return Result{}, storageErr("read cooldown", err)
	}
	if expiry.After(now) {
		return Result{}, &CooldownError{ActionCode: actionCode, Remaining: expiry.Sub(now)}
	}

	res, err := g.engine.Apply(ctx, actorID, profile.Delta, "recovery_"+actionCode, nil, locationID)
	if err != nil {
		return Result{}, err
	}

	// The adjustment is committed at this point; a cooldown write failure
	// leaves the ritual repeatable early, which is the lesser harm.
	if err := g.ledger.SetCooldown(ctx, actorID, actionCode, now.Add(profile.Cooldown)); err != nil {
		return res, storageErr("set cooldown", err)
	}
	return res, nil
}

// RemainingCooldown reports how long until the actor may repeat the
// action. Zero means the action is ready.
func (g *Gateway) RemainingCooldown(ctx context.Context, actorID, actionCode string) (time.Duration, error) {
	if _, ok := g.catalogs.Recoveries[actionCode]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActionCode, actionCode)
	}
	expiry, err := g.ledger.Cooldown(ctx, actorID, actionCode)
	if err != nil {
		return 0, storageErr("read cooldown", err)
	}
	remaining := expiry.Sub(g.now().UTC())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

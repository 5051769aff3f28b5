package lucidity

import (
	"log/slog"
	"sync"
	"time"
)

// FailoverFunc relocates an actor who hit the absolute floor. It may be
// slow; the registry runs it in its own goroutine and only logs failures.
type FailoverFunc func(actorID string, score int) error

// CatatoniaRegistry is the process-wide membership set of actors currently
// in the terminal tier. Purely in-memory; rebuilt naturally as adjustments
// flow after a restart.
type CatatoniaRegistry struct {
	mu       sync.RWMutex
	members  map[string]time.Time
	failover FailoverFunc

	wg sync.WaitGroup
}

// NewCatatoniaRegistry builds a registry. failover may be nil, in which
// case floor crossings are only logged.
func NewCatatoniaRegistry(failover FailoverFunc) *CatatoniaRegistry {
	return &CatatoniaRegistry{
		members:  make(map[string]time.Time),
		failover: failover,
	}
}

// OnCatatoniaEntered records the actor's terminal-tier entry time.
func (c *CatatoniaRegistry) OnCatatoniaEntered(actorID string, at time.Time) {
	c.mu.Lock()
	c.members[actorID] = at
	c.mu.Unlock()
	slog.Info("actor entered catatonia", "actor", actorID, "at", at)
}

// OnCatatoniaCleared removes the actor from the set.
func (c *CatatoniaRegistry) OnCatatoniaCleared(actorID string) {
	c.mu.Lock()
	delete(c.members, actorID)
	c.mu.Unlock()
	slog.Info("actor cleared catatonia", "actor", actorID)
}

// OnFloorReached fires the failover callback in a supervised goroutine.
// Errors are logged and swallowed so relocation problems never reach the
// ledger write that triggered them.
func (c *CatatoniaRegistry) OnFloorReached(actorID string, score int) {
	slog.Warn("actor hit the absolute floor", "actor", actorID, "score", score)
	if c.failover == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("failover panicked", "actor", actorID, "panic", r)
			}
		}()
		if err := c.failover(actorID, score); err != nil {
			slog.Error("failover failed", "actor", actorID, "error", err)
		}
	}()
}

// Contains reports whether the actor is currently catatonic.
func (c *CatatoniaRegistry) Contains(actorID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[actorID]
	return ok
}

// EnteredAt returns when the actor entered catatonia, if they are a member.
func (c *CatatoniaRegistry) EnteredAt(actorID string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	at, ok := c.members[actorID]
	return at, ok
}

// Members returns a snapshot of the current membership.
func (c *CatatoniaRegistry) Members() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]time.Time, len(c.members))
	for id, at := range c.members {
		out[id] = at
	}
	return out
}

// Len returns the current member count.
func (c *CatatoniaRegistry) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// Wait blocks until in-flight failover callbacks finish. Test hook and
// shutdown aid.
func (c *CatatoniaRegistry) Wait() {
	c.wg.Wait()
}

var _ TransitionObserver = (*CatatoniaRegistry)(nil)

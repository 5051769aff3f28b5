// Package flux applies passive environmental and social drift to every
// eligible actor on a fixed cadence, with adaptive resistance and
// fractional-residual carryover so sub-unit drift is never lost.
package flux

import (
	"log/slog"
	"time"
)

// Loop drives the scheduler forward. One tick is one in-world minute; the
// cadence callback fires every TicksPerCadence ticks so the loop can spin
// fast while drift lands once per minute. Callbacks run on the loop
// goroutine, so a long cadence delays the next tick rather than
// overlapping it.
type Loop struct {
	Tick     uint64        // current tick counter, monotonic
	Speed    float64       // multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // base tick interval
	Running  bool

	TicksPerCadence uint64

	OnTick    func(tick uint64) // every tick
	OnCadence func(tick uint64) // every TicksPerCadence ticks
}

// NewLoop creates a loop with default settings.
func NewLoop() *Loop {
	return &Loop{
		Speed:           1.0,
		Interval:        time.Second,
		TicksPerCadence: 60,
	}
}

// Run starts the loop. Blocks until Stop() is called.
func (l *Loop) Run() {
	l.Running = true
	slog.Info("flux loop started", "tick", l.Tick, "speed", l.Speed, "ticks_per_cadence", l.TicksPerCadence)

	for l.Running {
		if l.Speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		l.step()

		elapsed := time.Since(start)
		target := time.Duration(float64(l.Interval) / l.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("flux loop stopped", "tick", l.Tick)
}

// Stop halts the loop after the current tick completes.
func (l *Loop) Stop() {
	l.Running = false
}

func (l *Loop) step() {
	l.Tick++

	if l.OnTick != nil {
		l.OnTick(l.Tick)
	}

	if l.TicksPerCadence > 0 && l.Tick%l.TicksPerCadence == 0 && l.OnCadence != nil {
		l.OnCadence(l.Tick)
	}
}

// Package notify carries stability events out of the ledger toward
// whatever session transport the surrounding game wires in. The engine
// only sees the Publisher interface; the Broker here is the in-process
// fan-out used by the dev HTTP stream.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Event statuses.
const (
	StatusStateChange   = "state_change"
	StatusCatatonia     = "catatonia"
	StatusDelirium      = "delirium"
	StatusFloor         = "floor"
	StatusHallucination = "hallucination"
)

// Liability mirrors the ledger's liability rows for transport.
type Liability struct {
	Code   string `json:"code"`
	Stacks int    `json:"stacks"`
}

// Event is one outward notification about an actor's stability.
type Event struct {
	ActorID     string            `json:"actor_id"`
	Status      string            `json:"status"`
	Score       int               `json:"score"`
	MaxScore    int               `json:"max_score"`
	Delta       int               `json:"delta"`
	Tier        string            `json:"tier"`
	Liabilities []Liability       `json:"liabilities,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Source      string            `json:"source,omitempty"`
	Message     string            `json:"message,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	At          time.Time         `json:"at"`
}

// Publisher pushes events to clients. Implementations must not block the
// caller for long; delivery failures are the publisher's problem and are
// never reported back into the write path.
type Publisher interface {
	Publish(Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Broker fans events out to in-process subscribers over buffered channels.
// Slow subscribers lose events rather than stalling the ledger.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewBroker builds an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber, dropping it for any
// whose buffer is full.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping event for slow subscriber", "sub_id", id, "actor", ev.ActorID)
		}
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
func (b *Broker) Subscribe() (int, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[b.nextID] = ch
	return b.nextID, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

var _ Publisher = (*Broker)(nil)

// Package events is a synchronous in-process pub/sub bus for simulation
// lifecycle notifications.
//
// Delivery happens in the publisher's goroutine, in subscription order.
// Handler errors do not stop delivery; they are joined and returned from
// Publish. All methods are safe for concurrent use.
package events

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Event types published by the engine.
const (
	SimulationStarted  = "simulation.started"
	SimulationStopped  = "simulation.stopped"
	SimulationLoad     = "simulation.load"
	ControllerFinished = "controller.finished"
	ControllerFailed   = "controller.failed"

	// Wildcard subscribes to every event type.
	Wildcard = "*"
)

// Event is one notification. Tick and Time locate it in simulated time.
type Event struct {
	Type   string  `json:"type"`
	Source string  `json:"source"`
	Tick   uint64  `json:"tick"`
	Time   float64 `json:"time"`
	Data   any     `json:"data,omitempty"`
}

type Handler func(Event) error

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id        string
	eventType string
	bus       *Bus
}

func (s *Subscription) ID() string        { return s.id }
func (s *Subscription) EventType() string { return s.eventType }

// Cancel removes the subscription. Calling it twice is harmless.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s)
}

type entry struct {
	id      string
	handler Handler
}

type Bus struct {
	mu        sync.RWMutex
	handlers  map[string][]entry
	published uint64
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]entry)}
}

func (b *Bus) Subscribe(eventType string, h Handler) (*Subscription, error) {
	if h == nil {
		return nil, errors.New("events: nil handler")
	}
	id := uuid.NewString()
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], entry{id: id, handler: h})
	b.mu.Unlock()
	return &Subscription{id: id, eventType: eventType, bus: b}, nil
}

// Publish delivers e to the handlers of e.Type, then to wildcard handlers.
func (b *Bus) Publish(e Event) error {
	b.mu.Lock()
	b.published++
	targets := make([]entry, 0, len(b.handlers[e.Type])+len(b.handlers[Wildcard]))
	targets = append(targets, b.handlers[e.Type]...)
	if e.Type != Wildcard {
		targets = append(targets, b.handlers[Wildcard]...)
	}
	b.mu.Unlock()

	var errs []error
	for _, t := range targets {
		if err := t.handler(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unsubscribe cancels s. It fails for subscriptions of another bus.
func (b *Bus) Unsubscribe(s *Subscription) error {
	if s == nil || s.bus != b {
		return errors.New("events: subscription does not belong to this bus")
	}
	b.remove(s)
	return nil
}

// Published reports how many events went through the bus.
func (b *Bus) Published() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[s.eventType]
	for i, e := range list {
		if e.id == s.id {
			b.handlers[s.eventType] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

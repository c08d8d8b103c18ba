// Package events delivers entity lifecycle notifications to interested
// listeners without coupling them to the factory.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind uint8

const (
	EntityCreated Kind = iota
	EntityDestroyed
)

func (k Kind) String() string {
	switch k {
	case EntityCreated:
		return "entity_created"
	case EntityDestroyed:
		return "entity_destroyed"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle transition. Entity is the raw handle
// value; Blueprint is the name the entity was constructed from, empty for
// in-memory blueprints.
type Event struct {
	Kind      Kind
	Entity    uint64
	Blueprint string
	Time      time.Time
}

type Handler func(Event)

// Subscription identifies one registered handler.
type Subscription struct {
	id     string
	kind   Kind
	cancel func()
}

func (s *Subscription) ID() string { return s.id }
func (s *Subscription) Kind() Kind { return s.kind }

// Cancel removes the handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Dispatcher fans lifecycle events out to subscribed handlers. Publish
// snapshots the handler set under a read lock and invokes handlers with no
// lock held, so handlers may subscribe, cancel, or publish themselves.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[Kind]map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[Kind]map[string]Handler)}
}

func (d *Dispatcher) Subscribe(kind Kind, handler Handler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs[kind] == nil {
		d.subs[kind] = make(map[string]Handler)
	}
	id := uuid.NewString()
	d.subs[kind][id] = handler
	return &Subscription{
		id:   id,
		kind: kind,
		cancel: func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.subs[kind], id)
		},
	}
}

func (d *Dispatcher) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.subs[ev.Kind]))
	for _, h := range d.subs[ev.Kind] {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

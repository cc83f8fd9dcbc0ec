// Package bus is the in-process publish/subscribe fabric coupling the
// session runtime, background manager, workflow runner, lock manager, and
// terminal manager with side-effect handlers. Grounded on the teacher's
// internal/bus (Event, EventPublisher, MessageHandler/EventHandler) and the
// bus.MessageBus referenced from internal/tools/delegate.go, generalized to
// the closed event-name set in events.go.
package bus

import (
	"log/slog"
	"sync"
)

// Event is one published domain occurrence.
type Event struct {
	Name    string
	Payload interface{}
}

// Handler reacts to a published event. A handler's error is logged and
// swallowed — it never propagates back to the publisher.
type Handler func(Event) error

type subscription struct {
	id      uint64
	label   string
	handler Handler
	once    bool
}

// Bus is a typed fan-out dispatcher. Handlers for a single name run
// sequentially, in subscription order, and complete before Emit returns.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]*subscription
	next uint64
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

// Token identifies a subscription for later Unsubscribe.
type Token struct {
	name string
	id   uint64
}

// Subscribe registers handler for name, returning an unsubscribe token.
// label is used only in failure logs.
func (b *Bus) Subscribe(name string, handler Handler, label string) Token {
	return b.subscribe(name, handler, label, false)
}

// SubscribeOnce registers handler for name; it is removed after its first
// delivery (successful or not).
func (b *Bus) SubscribeOnce(name string, handler Handler) Token {
	return b.subscribe(name, handler, "", true)
}

func (b *Bus) subscribe(name string, handler Handler, label string, once bool) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	sub := &subscription{id: b.next, label: label, handler: handler, once: once}
	b.subs[name] = append(b.subs[name], sub)
	return Token{name: name, id: sub.id}
}

// Unsubscribe removes the subscription identified by tok, if still present.
func (b *Bus) Unsubscribe(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[tok.name]
	for i, s := range list {
		if s.id == tok.id {
			b.subs[tok.name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// ClearAll drops every subscription. Used at shutdown.
func (b *Bus) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]*subscription)
}

// Emit delivers an event to every handler subscribed to name, sequentially
// in subscription order, and resolves once all have run. A handler's
// panic or error is caught, logged with its label, and does not stop
// delivery to the remaining handlers.
func (b *Bus) Emit(name string, payload interface{}) {
	b.mu.Lock()
	list := append([]*subscription(nil), b.subs[name]...)
	b.mu.Unlock()

	if len(list) == 0 {
		return
	}

	var onceIDs []uint64
	ev := Event{Name: name, Payload: payload}
	for _, s := range list {
		b.runHandler(s, ev)
		if s.once {
			onceIDs = append(onceIDs, s.id)
		}
	}

	if len(onceIDs) > 0 {
		b.mu.Lock()
		for _, id := range onceIDs {
			remaining := b.subs[name][:0]
			for _, s := range b.subs[name] {
				if s.id != id {
					remaining = append(remaining, s)
				}
			}
			b.subs[name] = remaining
		}
		b.mu.Unlock()
	}
}

func (b *Bus) runHandler(s *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bus: handler panicked", "event", ev.Name, "label", s.label, "panic", r)
		}
	}()
	if err := s.handler(ev); err != nil {
		slog.Warn("bus: handler failed", "event", ev.Name, "label", s.label, "error", err)
	}
}

package receiver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"github.com/muurk/eiscpctl/internal/protocol"
)

// EventName identifies a stream of events. Each registered wire code is an
// event name, plus the generic error and close events.
type EventName string

// Events emitted for inbound messages, one per registered wire code.
const (
	EventPower         EventName = "PWR"
	EventMute          EventName = "AMT"
	EventVolume        EventName = "MVL"
	EventInput         EventName = "SLI"
	EventListeningMode EventName = "LMD"
	EventDimmer        EventName = "DIM"
	EventSpeakerA      EventName = "SPA"
	EventSpeakerB      EventName = "SPB"
	EventSleep         EventName = "SLP"
	EventZone2Power    EventName = "ZPW"
	EventZone2Mute     EventName = "ZMT"
	EventZone2Volume   EventName = "ZVL"
	EventZone2Input    EventName = "SLZ"
)

// Connection-level events.
const (
	// EventError carries decode failures and transport errors.
	EventError EventName = "error"
	// EventClose fires once when the connection goes away.
	EventClose EventName = "close"
)

// Valid reports whether the client can ever emit name.
func (n EventName) Valid() bool {
	if n == EventError || n == EventClose {
		return true
	}
	return protocol.DefaultTable.KnownCode(string(n))
}

// Event is delivered to subscribers.
type Event struct {
	Name     EventName
	Command  string         // Semantic command, e.g. "POWER"
	Value    string         // Semantic value, e.g. "ON"
	Data     map[string]any // Single key: wire code -> decoded value, e.g. {PWR: true}
	Payload  string         // Terminator-free payload, e.g. "!1PWR01"
	Err      error          // Set on EventError
	Received time.Time
}

// Decoded returns the decoded value carried under the event's own code.
func (e Event) Decoded() any {
	return e.Data[string(e.Name)]
}

// String returns a debug representation of the event
func (e Event) String() string {
	switch e.Name {
	case EventError:
		return fmt.Sprintf("Event{error: %v}", e.Err)
	case EventClose:
		return "Event{close}"
	}
	return fmt.Sprintf("Event{%s %s=%s %v}", e.Name, e.Command, e.Value, e.Data)
}

// Handler receives events. Handlers run on the transport's read goroutine in
// delivery order; a handler that blocks delays every later event. Handlers
// must not call Subscribe: the bus is locked while they run. Calling Close
// from a handler is allowed.
type Handler func(Event)

// subscription is one handler registration returned by Subscribe.
type subscription struct {
	name   EventName
	slot   *slot
	active atomic.Bool
	bus    *eventBus
}

// Unsubscribe stops delivery to the handler. Safe to call more than once.
func (s *subscription) Unsubscribe() {
	if s.active.CompareAndSwap(true, false) {
		s.bus.release(s)
	}
}

// eventBus adds typed names and cancellable subscriptions on top of the
// reflection-based EventBus.
//
// EventBus identifies handlers by code pointer, so two closures from the same
// literal are indistinguishable to its Unsubscribe. Cancelled subscriptions are
// therefore switched off in place and their slots reused by the next Subscribe
// on the same name.
type eventBus struct {
	bus evbus.Bus

	// dispatching counts publish calls in progress
	dispatching atomic.Int32

	mu   sync.Mutex
	free map[EventName][]*slot
}

// slot is one handler registered with the underlying bus.
type slot struct {
	mu      sync.RWMutex
	handler Handler
}

func (s *slot) deliver(ev Event) {
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h != nil {
		h(ev)
	}
}

func newEventBus() *eventBus {
	return &eventBus{
		bus:  evbus.New(),
		free: make(map[EventName][]*slot),
	}
}

func (b *eventBus) subscribe(name EventName, h Handler) (*subscription, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrInvalidConfig)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var sl *slot
	if idle := b.free[name]; len(idle) > 0 {
		sl = idle[len(idle)-1]
		b.free[name] = idle[:len(idle)-1]
	} else {
		sl = &slot{}
		if err := b.bus.Subscribe(string(name), sl.deliver); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
	}

	sl.mu.Lock()
	sl.handler = h
	sl.mu.Unlock()

	sub := &subscription{name: name, slot: sl, bus: b}
	sub.active.Store(true)
	return sub, nil
}

func (b *eventBus) release(sub *subscription) {
	sl := sub.slot
	sl.mu.Lock()
	sl.handler = nil
	sl.mu.Unlock()

	b.mu.Lock()
	b.free[sub.name] = append(b.free[sub.name], sl)
	b.mu.Unlock()
}

// publish delivers ev synchronously to every handler of ev.Name.
func (b *eventBus) publish(ev Event) {
	b.dispatching.Add(1)
	defer b.dispatching.Add(-1)
	b.bus.Publish(string(ev.Name), ev)
}

// publishFromCaller is publish for events raised by a Client method rather
// than the transport. While a publish is in progress the caller may be a
// handler holding the bus lock, so delivery moves to its own goroutine and
// happens once that publish returns.
func (b *eventBus) publishFromCaller(ev Event) {
	if b.dispatching.Load() > 0 {
		go b.publish(ev)
		return
	}
	b.publish(ev)
}

// EventNames lists every event the client can emit: one per registered wire
// code in sorted order, then EventError and EventClose.
func EventNames() []EventName {
	codes := protocol.DefaultTable.Codes()
	names := make([]EventName, 0, len(codes)+2)
	for _, code := range codes {
		names = append(names, EventName(code))
	}
	return append(names, EventError, EventClose)
}

package libevents

import (
	"runtime"
	"sync"
	"weak"
)

// Tracker subscribes listeners on behalf of an owner and remembers them, so the owner
// can release them later in bulk.
//
// Tracked emitters are held weakly: a tracker never keeps an emitter alive, and entries
// of collected emitters are dropped. Because of this, every release names the emitter;
// there is no "remove this listener from every emitter" operation.
type Tracker struct {
	mu            sync.Mutex
	subscriptions map[weak.Pointer[Emitter]]*trackedEmitter
	recording     *Recording
	logger        Logger
}

type trackedEmitter struct {
	events  map[string][]*Listener
	cleanup runtime.Cleanup
}

// pairing is one (event, listener) subscription made through a tracker.
type pairing struct {
	event    string
	listener *Listener
}

// NewTracker creates a tracker with no subscriptions.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		subscriptions: make(map[weak.Pointer[Emitter]]*trackedEmitter),
		logger:        NopLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// ListenTo records the pairing and subscribes l to event on e. Repeated calls with the
// same arguments register and track independent subscriptions.
func (t *Tracker) ListenTo(e *Emitter, event string, l *Listener) error {
	if e == nil {
		return invalidArgument("emitter must not be nil")
	}
	if err := validateSubscription(event, l); err != nil {
		return err
	}

	key := weak.Make(e)

	t.mu.Lock()
	tracked, found := t.subscriptions[key]
	if !found {
		tracked = &trackedEmitter{events: make(map[string][]*Listener)}
		tracked.cleanup = runtime.AddCleanup(e, t.forget, key)
		t.subscriptions[key] = tracked
	}
	tracked.events[event] = append(tracked.events[event], l)

	if t.recording != nil {
		t.recording.add(key, event, l)
	}
	t.mu.Unlock()

	return e.On(event, l)
}

// StopListeningTo releases the tracked subscriptions on e that match event and l, with
// the same matching rules as Emitter.Off: an empty event matches every event and a nil
// listener every listener. Each released pairing is unsubscribed from e. Subscriptions
// made on e without this tracker are not touched unless they share the pairing.
func (t *Tracker) StopListeningTo(e *Emitter, event string, l *Listener) error {
	if e == nil {
		return invalidArgument("emitter must not be nil")
	}

	key := weak.Make(e)

	t.mu.Lock()
	tracked, found := t.subscriptions[key]
	if !found {
		t.mu.Unlock()
		return nil
	}

	var released []pairing
	if event == "" {
		for name := range tracked.events {
			released = append(released, tracked.release(name, l)...)
		}
	} else {
		released = tracked.release(event, l)
	}

	if len(tracked.events) == 0 {
		tracked.cleanup.Stop()
		delete(t.subscriptions, key)
	}
	t.mu.Unlock()

	for _, p := range released {
		e.Off(p.event, p.listener)
	}

	return nil
}

// StopListening releases every tracked subscription on every emitter that is still alive.
func (t *Tracker) StopListening() {
	t.mu.Lock()
	emitters := make([]*Emitter, 0, len(t.subscriptions))
	for key := range t.subscriptions {
		if e := key.Value(); e != nil {
			emitters = append(emitters, e)
		}
	}
	t.mu.Unlock()

	for _, e := range emitters {
		_ = t.StopListeningTo(e, "", nil)
	}
}

// Tracked returns the number of subscriptions tracked for e.
func (t *Tracker) Tracked(e *Emitter) int {
	if e == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tracked, found := t.subscriptions[weak.Make(e)]
	if !found {
		return 0
	}

	n := 0
	for _, listeners := range tracked.events {
		n += len(listeners)
	}
	return n
}

func (t *Tracker) forget(key weak.Pointer[Emitter]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.subscriptions, key)
	t.logger.Debug("dropped subscriptions of a collected emitter")
}

// release removes the matching listeners of event and returns them as pairings.
// A nil l releases every listener of event.
func (te *trackedEmitter) release(event string, l *Listener) []pairing {
	listeners, found := te.events[event]
	if !found {
		return nil
	}

	var (
		released []pairing
		kept     = make([]*Listener, 0, len(listeners))
	)
	for _, registered := range listeners {
		if l == nil || registered == l {
			released = append(released, pairing{event: event, listener: registered})
			continue
		}
		kept = append(kept, registered)
	}

	if len(kept) == 0 {
		delete(te.events, event)
	} else {
		te.events[event] = kept
	}

	return released
}

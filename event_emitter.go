package libevents

import (
	"sort"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"
)

// Emitter fans named events out to registered listeners.
//
// On, Off, Once and Emit are queued operations: each call is appended to the emitter's
// operation queue and runs only after every operation queued before it has completed,
// including operations queued by those operations. Calls made from inside a listener
// therefore never interleave with the emission that is running the listener; they run
// right after it, in call order. A call into an idle emitter runs synchronously.
//
// A listener that never returns stalls the emitter: there is no way to cancel a queued
// operation.
type Emitter struct {
	id           string
	namespace    string
	logger       Logger
	errorHandler ErrorHandler
	metrics      *Metrics

	state atomic.Pointer[emitterState]
}

// emitterState is everything an emitter mutates. Several emitters may share one state
// (see SharingStateWith). listeners and proxies are written only by the running queued
// operation, or by Proxy/Unproxy under mu; mu lets getters read them from anywhere.
type emitterState struct {
	queue operationQueue

	mu        sync.RWMutex
	listeners map[string][]*Listener
	proxies   map[weak.Pointer[Emitter]]*proxyLink
}

func newEmitterState() *emitterState {
	return &emitterState{
		listeners: make(map[string][]*Listener),
		proxies:   make(map[weak.Pointer[Emitter]]*proxyLink),
	}
}

// NewEmitter creates an emitter with its own private state.
func NewEmitter(opts ...EmitterOption) *Emitter {
	e := &Emitter{
		id:     uuid.NewString(),
		logger: NopLogger(),
	}
	e.state.Store(newEmitterState())

	for _, opt := range opts {
		opt(e)
	}

	if e.errorHandler == nil {
		e.errorHandler = e.logFailure
	}

	e.logger = e.logger.WithField("emitter", e.id)
	if e.namespace != "" {
		e.logger = e.logger.WithField("namespace", e.namespace)
	}

	return e
}

// Emancipate gives e a fresh private state, detaching it from any emitter it shared
// state with. Listeners registered so far stay with the old state; the sources e
// itself proxies move along with e.
// It must not be called from inside one of e's listeners.
func Emancipate(e *Emitter) {
	if e == nil {
		return
	}

	fresh := newEmitterState()
	e.adoptProxies(e.current(), fresh)
	e.state.Store(fresh)
}

func (e *Emitter) ID() string { return e.id }

func (e *Emitter) Namespace() string { return e.namespace }

func (e *Emitter) current() *emitterState { return e.state.Load() }

// On registers l for event. It fails with ErrInvalidArgument, before anything is queued,
// when event is empty or l is not callable.
func (e *Emitter) On(event string, l *Listener) error {
	if err := validateSubscription(event, l); err != nil {
		return err
	}

	st := e.current()
	e.enqueue(st, opSubscribe, func() {
		st.add(event, l)
	})

	return nil
}

// Once registers l for event so that it fires at most once. The registration removes
// itself before l runs, so l re-emitting event does not reach it again.
func (e *Emitter) Once(event string, l *Listener) error {
	if err := validateSubscription(event, l); err != nil {
		return err
	}

	var fired atomic.Bool
	wrapper := &Listener{origin: l}
	wrapper.allFn = func(name string, arg any, source *Emitter) error {
		if !fired.CompareAndSwap(false, true) {
			return nil
		}
		e.Off(event, wrapper)
		return l.call(name, arg, source)
	}

	return e.On(event, wrapper)
}

// Off removes registrations. An empty event matches every event and a nil listener
// matches every listener:
//
//	Off("x", l)   every occurrence of l on "x"
//	Off("x", nil) every listener on "x"
//	Off("", l)    every occurrence of l on every event
//	Off("", nil)  everything
//
// Once registrations are also matched by the listener they were created for.
// Removing something that is not registered is a no-op.
func (e *Emitter) Off(event string, l *Listener) {
	st := e.current()
	e.enqueue(st, opUnsubscribe, func() {
		st.remove(event, l)
	})
}

// OffOne removes only the earliest registration of l on event, leaving duplicates
// registered. It is a no-op when event is empty or l is nil.
func (e *Emitter) OffOne(event string, l *Listener) {
	if event == "" || l == nil {
		return
	}

	st := e.current()
	e.enqueue(st, opUnsubscribe, func() {
		st.removeOne(event, l)
	})
}

// Emit delivers arg to the listeners of AllEvent and then to the listeners of event.
//
// Unless IgnoreNamespace is given, a namespaced emitter resolves event to "ns:event".
// AllEvent listeners and failure records see the resolved name; the event's own
// listeners are the ones registered under event as passed here.
//
// A failing listener never stops delivery to the others. Each failure is reported to the
// WithEmitErrorHandler handler, then to the emitter's handler, and collected into the
// returned Emission in order.
func (e *Emitter) Emit(event string, arg any, opts ...EmitOption) *Emission {
	var settings emitSettings
	for _, opt := range opts {
		opt(&settings)
	}

	resolved := event
	if e.namespace != "" && !settings.ignoreNamespace {
		resolved = e.namespace + ":" + event
	}

	em := newEmission(resolved)
	st := e.current()
	e.enqueue(st, opEmit, func() {
		e.deliver(st, event, resolved, arg, &settings, em)
	})

	return em
}

func (e *Emitter) deliver(
	st *emitterState,
	event, resolved string,
	arg any,
	settings *emitSettings,
	em *Emission,
) {
	started := e.metrics.now()

	passes := [][]*Listener{st.snapshot(AllEvent)}
	if event != AllEvent {
		passes = append(passes, st.snapshot(event))
	}

	var (
		failures  []*DeliveryError
		delivered int
	)

	for _, listeners := range passes {
		for _, l := range listeners {
			delivered++

			if err := l.call(resolved, arg, settings.source); err != nil {
				failure := &DeliveryError{
					Event:    resolved,
					Arg:      arg,
					Listener: l.reported(),
					Err:      err,
				}
				failures = append(failures, failure)

				e.report(settings.errorHandler, failure)
				e.report(e.errorHandler, failure)
			}
		}
	}

	e.metrics.emitted(started, delivered, len(failures))

	if settings.done != nil {
		e.complete(settings.done, failures)
	}

	em.resolve(failures)
}

func (e *Emitter) report(h ErrorHandler, failure *DeliveryError) {
	if h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warnf("error handler panicked on %q: %v", failure.Event, r)
		}
	}()

	h(failure)
}

func (e *Emitter) complete(done func([]*DeliveryError), failures []*DeliveryError) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warnf("done callback panicked: %v", r)
		}
	}()

	done(failures)
}

func (e *Emitter) logFailure(failure *DeliveryError) {
	e.logger.WithField("event", failure.Event).Errorf("listener failed: %s", failure.Err)
}

func (e *Emitter) enqueue(st *emitterState, kind string, run func()) {
	e.metrics.operationEnqueued(kind)
	st.queue.enqueue(&operation{kind: kind, run: run}, e.dequeued, e.operationPanicked)
}

func (e *Emitter) dequeued(*operation) {
	e.metrics.operationDequeued()
}

func (e *Emitter) operationPanicked(op *operation, r any) {
	e.logger.Errorf("%s operation panicked: %v", op.kind, r)
}

// ListenerCount returns the number of registrations for event. Like every getter it
// reads the current state and does not wait for queued operations.
func (e *Emitter) ListenerCount(event string) int {
	st := e.current()
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.listeners[event])
}

// EventNames returns the sorted names of the events that have listeners.
func (e *Emitter) EventNames() []string {
	st := e.current()
	st.mu.RLock()
	names := make([]string, 0, len(st.listeners))
	for name := range st.listeners {
		names = append(names, name)
	}
	st.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Pending returns the number of operations queued behind the running one.
func (e *Emitter) Pending() int {
	return e.current().queue.pending()
}

func (st *emitterState) add(event string, l *Listener) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.listeners[event] = append(st.listeners[event], l)
}

func (st *emitterState) remove(event string, l *Listener) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch {
	case event == "" && l == nil:
		st.listeners = make(map[string][]*Listener)
	case l == nil:
		delete(st.listeners, event)
	case event == "":
		for name := range st.listeners {
			st.without(name, l)
		}
	default:
		st.without(event, l)
	}
}

// without drops every registration of l on event, and the event itself once empty.
// Callers hold mu.
func (st *emitterState) without(event string, l *Listener) {
	listeners, found := st.listeners[event]
	if !found {
		return
	}

	kept := make([]*Listener, 0, len(listeners))
	for _, registered := range listeners {
		if !registered.matches(l) {
			kept = append(kept, registered)
		}
	}

	if len(kept) == 0 {
		delete(st.listeners, event)
		return
	}
	st.listeners[event] = kept
}

func (st *emitterState) removeOne(event string, l *Listener) {
	st.mu.Lock()
	defer st.mu.Unlock()

	listeners := st.listeners[event]
	for i, registered := range listeners {
		if !registered.matches(l) {
			continue
		}

		if len(listeners) == 1 {
			delete(st.listeners, event)
			return
		}
		kept := make([]*Listener, 0, len(listeners)-1)
		kept = append(kept, listeners[:i]...)
		st.listeners[event] = append(kept, listeners[i+1:]...)
		return
	}
}

func (st *emitterState) snapshot(event string) []*Listener {
	st.mu.RLock()
	defer st.mu.RUnlock()

	listeners, found := st.listeners[event]
	if !found {
		return nil
	}

	out := make([]*Listener, len(listeners))
	copy(out, listeners)
	return out
}

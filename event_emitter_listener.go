package libevents

// AllEvent is the reserved event name whose listeners observe every emitted event.
const AllEvent = "all"

type (
	// Callback handles one event. The source is the emitter the event was forwarded
	// from, or nil when it was emitted directly.
	Callback func(arg any, source *Emitter) error

	// AllCallback additionally receives the resolved event name.
	AllCallback func(event string, arg any, source *Emitter) error
)

// Listener is a subscription handle. Listeners are compared by pointer, so the same
// *Listener may be registered several times and each registration fires independently.
type Listener struct {
	fn    Callback
	allFn AllCallback

	// origin is the user listener a Once wrapper was built for.
	origin *Listener
}

// NewListener wraps fn into a listener handle.
func NewListener(fn Callback) *Listener {
	return &Listener{fn: fn}
}

// NewAllListener wraps fn into a listener handle that is also told the event name.
// It is meant for the AllEvent but can be registered on any event.
func NewAllListener(fn AllCallback) *Listener {
	return &Listener{allFn: fn}
}

func (l *Listener) callable() bool {
	return l != nil && (l.fn != nil || l.allFn != nil)
}

// matches reports whether l is target itself or a Once wrapper around it.
func (l *Listener) matches(target *Listener) bool {
	return l == target || (l.origin != nil && l.origin == target)
}

// reported is the listener that failures are attributed to.
func (l *Listener) reported() *Listener {
	if l.origin != nil {
		return l.origin
	}
	return l
}

func (l *Listener) call(event string, arg any, source *Emitter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverAsError(r)
		}
	}()

	if l.allFn != nil {
		return l.allFn(event, arg, source)
	}
	return l.fn(arg, source)
}

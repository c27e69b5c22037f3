package libevents

type (
	// EmitterOption configures an Emitter at construction.
	EmitterOption func(*Emitter)

	// EmitOption configures a single Emit call.
	EmitOption func(*emitSettings)

	// TrackerOption configures a Tracker at construction.
	TrackerOption func(*Tracker)

	emitSettings struct {
		ignoreNamespace bool
		source          *Emitter
		errorHandler    ErrorHandler
		done            func([]*DeliveryError)
	}
)

// WithNamespace prefixes every emitted event name with "ns:".
func WithNamespace(ns string) EmitterOption {
	return func(e *Emitter) { e.namespace = ns }
}

// WithLogger sets the logger used for failures and diagnostics. A nil logger is ignored.
func WithLogger(l Logger) EmitterOption {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithErrorHandler replaces the default handler, which logs every delivery failure.
func WithErrorHandler(h ErrorHandler) EmitterOption {
	return func(e *Emitter) { e.errorHandler = h }
}

// WithMetrics records the emitter's activity in m.
func WithMetrics(m *Metrics) EmitterOption {
	return func(e *Emitter) { e.metrics = m }
}

// SharingStateWith makes the new emitter share listeners, queue and proxies with other
// until Emancipate is called on it.
func SharingStateWith(other *Emitter) EmitterOption {
	return func(e *Emitter) {
		if other != nil {
			e.state.Store(other.current())
		}
	}
}

// IgnoreNamespace emits the event name verbatim.
func IgnoreNamespace() EmitOption {
	return func(s *emitSettings) { s.ignoreNamespace = true }
}

// From sets the source passed to listeners.
func From(source *Emitter) EmitOption {
	return func(s *emitSettings) { s.source = source }
}

// WithEmitErrorHandler observes the failures of this emission only. It runs before the
// emitter's own handler.
func WithEmitErrorHandler(h ErrorHandler) EmitOption {
	return func(s *emitSettings) { s.errorHandler = h }
}

// WithDone is called inside the emit operation once all listeners have run, with the
// ordered failures or nil. Panics raised by done are logged and swallowed.
func WithDone(done func([]*DeliveryError)) EmitOption {
	return func(s *emitSettings) { s.done = done }
}

// WithTrackerLogger sets the tracker's logger. A nil logger is ignored.
func WithTrackerLogger(l Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

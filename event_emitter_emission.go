package libevents

import (
	"context"

	"go.uber.org/multierr"
)

// Emission is the completion handle of one Emit call. It resolves once every listener
// of the emission has run, after the WithDone callback (if any).
type Emission struct {
	event    string
	done     chan struct{}
	failures []*DeliveryError
	err      error
}

func newEmission(event string) *Emission {
	return &Emission{event: event, done: make(chan struct{})}
}

func (em *Emission) resolve(failures []*DeliveryError) {
	em.failures = failures
	for _, f := range failures {
		em.err = multierr.Append(em.err, f)
	}
	close(em.done)
}

// Event returns the resolved event name.
func (em *Emission) Event() string { return em.event }

// Done is closed when the emission has completed.
func (em *Emission) Done() <-chan struct{} { return em.done }

// Failures returns the ordered delivery failures. It returns nil both while the
// emission is pending and when it completed without failures; use Done or Wait first
// to tell the two apart.
func (em *Emission) Failures() []*DeliveryError {
	select {
	case <-em.done:
		return em.failures
	default:
		return nil
	}
}

// Err returns the delivery failures combined into one error, nil when there were none
// or the emission is still pending. multierr.Errors splits it back in order.
func (em *Emission) Err() error {
	select {
	case <-em.done:
		return em.err
	default:
		return nil
	}
}

// Wait blocks until the emission completes or ctx is done.
// Waiting from inside a listener of the same emitter never returns: the emission is
// queued behind the operation that is currently running that listener.
func (em *Emission) Wait(ctx context.Context) error {
	select {
	case <-em.done:
		return em.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

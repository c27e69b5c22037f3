package libevents

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyRecording = errors.New("tracker is already recording")
)

// DeliveryError describes a listener that failed while an event was being delivered to it.
// Failing means returning a non-nil error or panicking.
type DeliveryError struct {
	// Event is the resolved (possibly namespaced) event name.
	Event    string
	Arg      any
	Listener *Listener
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of event %q failed: %s", e.Event, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ErrorHandler observes delivery failures. It is called, never returned to.
type ErrorHandler func(*DeliveryError)

func invalidArgument(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func validateSubscription(event string, l *Listener) error {
	if event == "" {
		return invalidArgument("event name must not be empty")
	}
	if !l.callable() {
		return invalidArgument("listener for event %q is not callable", event)
	}
	return nil
}

func recoverAsError(r any) error {
	if err, ok := r.(error); ok {
		return errors.Wrap(err, "listener panicked")
	}
	return errors.Errorf("listener panicked: %v", r)
}

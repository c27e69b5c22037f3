package libevents

import (
	"sync"
	"weak"
)

// Recording is the log of the ListenTo calls made while a tracker was recording.
type Recording struct {
	mu      sync.Mutex
	tracker *Tracker
	entries []recordedSubscription
}

type recordedSubscription struct {
	emitter  weak.Pointer[Emitter]
	event    string
	listener *Listener
}

// StartRecording starts logging every subsequent ListenTo call.
// It fails with ErrAlreadyRecording when a recording is active.
func (t *Tracker) StartRecording() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.recording != nil {
		return ErrAlreadyRecording
	}
	t.recording = &Recording{tracker: t}

	return nil
}

// StopRecording detaches and returns the active recording. Without one it returns an
// empty recording.
func (t *Tracker) StopRecording() *Recording {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.recording
	t.recording = nil
	if rec == nil {
		rec = &Recording{tracker: t}
	}

	return rec
}

// Recording reports whether a recording is active.
func (t *Tracker) Recording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.recording != nil
}

func (r *Recording) add(e weak.Pointer[Emitter], event string, l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, recordedSubscription{emitter: e, event: event, listener: l})
}

// Len returns the number of recorded subscriptions not rolled back yet.
func (r *Recording) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Rollback releases the recorded subscriptions in the order they were made, then
// empties the log. Entries whose emitter was collected are skipped. Rolling back twice
// does nothing the second time.
func (r *Recording) Rollback() {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	for _, entry := range entries {
		e := entry.emitter.Value()
		if e == nil {
			continue
		}
		_ = r.tracker.StopListeningTo(e, entry.event, entry.listener)
	}
}

package topology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/sonirico/libevents"
)

// Topology is a live set of emitters and trackers built from a Config. Every tracked
// subscription prints the deliveries it receives to the output writer.
type Topology struct {
	Emitters map[string]*libevents.Emitter
	Trackers map[string]*libevents.Tracker

	names     map[*libevents.Emitter]string
	recording map[string]bool

	mu  sync.Mutex
	out io.Writer
}

// Build creates the emitters, wires the proxies and registers the tracker subscriptions,
// in the order they appear in cfg. cfg is expected to be valid.
func Build(cfg Config, logger libevents.Logger, out io.Writer) (*Topology, error) {
	t := &Topology{
		Emitters:  make(map[string]*libevents.Emitter, len(cfg.Emitters)),
		Trackers:  make(map[string]*libevents.Tracker, len(cfg.Trackers)),
		names:     make(map[*libevents.Emitter]string, len(cfg.Emitters)),
		recording: make(map[string]bool),
		out:       out,
	}

	for _, ec := range cfg.Emitters {
		e := libevents.NewEmitter(
			libevents.WithNamespace(ec.Namespace),
			libevents.WithLogger(logger.WithField("name", ec.Name)),
		)
		t.Emitters[ec.Name] = e
		t.names[e] = ec.Name
	}

	for _, ec := range cfg.Emitters {
		target := t.Emitters[ec.Name]
		for _, name := range ec.Proxies {
			source, found := t.Emitters[name]
			if !found {
				return nil, errors.Errorf("emitter %q proxies unknown emitter %q", ec.Name, name)
			}
			target.Proxy(source)
		}
	}

	for _, tc := range cfg.Trackers {
		tracker := libevents.NewTracker(libevents.WithTrackerLogger(logger.WithField("tracker", tc.Name)))
		t.Trackers[tc.Name] = tracker

		if tc.Record {
			if err := tracker.StartRecording(); err != nil {
				return nil, err
			}
			t.recording[tc.Name] = true
		}

		for _, sc := range tc.Subscriptions {
			e, found := t.Emitters[sc.Emitter]
			if !found {
				return nil, errors.Errorf("tracker %q listens to unknown emitter %q", tc.Name, sc.Emitter)
			}
			if err := tracker.ListenTo(e, sc.Event, t.printer(tc.Name, sc.Emitter)); err != nil {
				return nil, errors.Wrapf(err, "tracker %q", tc.Name)
			}
		}
	}

	return t, nil
}

func (t *Topology) printer(tracker, emitter string) *libevents.Listener {
	return libevents.NewAllListener(func(event string, arg any, source *libevents.Emitter) error {
		payload, err := json.Marshal(arg)
		if err != nil {
			return errors.Wrap(err, "cannot encode argument")
		}

		from := "-"
		if source != nil {
			from = t.names[source]
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		_, err = fmt.Fprintf(t.out, "tracker=%s emitter=%s event=%s arg=%s source=%s\n",
			tracker, emitter, event, payload, from)
		return err
	})
}

// Emit emits on the named emitter and waits for the emission to complete.
func (t *Topology) Emit(ctx context.Context, emitter, event string, arg any) error {
	e, found := t.Emitters[emitter]
	if !found {
		return errors.Errorf("unknown emitter %q", emitter)
	}

	return e.Emit(event, arg).Wait(ctx)
}

// Rollback stops the recordings of recording trackers and rolls them back. It returns
// how many subscriptions each tracker released.
func (t *Topology) Rollback() map[string]int {
	names := make([]string, 0, len(t.recording))
	for name := range t.recording {
		names = append(names, name)
	}
	sort.Strings(names)

	released := make(map[string]int, len(names))
	for _, name := range names {
		rec := t.Trackers[name].StopRecording()
		released[name] = rec.Len()
		rec.Rollback()
		delete(t.recording, name)
	}

	return released
}

package topology

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Replay reads one event per line, "<emitter> <event> [json-arg]", and emits it on t.
// Blank lines and lines starting with '#' are skipped. It returns the number of emitted
// events. Delivery failures do not stop the replay; they are reported by the emitters.
func Replay(ctx context.Context, t *Topology, r io.Reader) (int, error) {
	var (
		scanner = bufio.NewScanner(r)
		lineNo  int
		emitted int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		emitter, event, arg, err := parseLine(line)
		if err != nil {
			return emitted, errors.Wrapf(err, "line %d", lineNo)
		}

		if _, found := t.Emitters[emitter]; !found {
			return emitted, errors.Errorf("line %d: unknown emitter %q", lineNo, emitter)
		}

		if err := t.Emit(ctx, emitter, event, arg); err != nil && ctx.Err() != nil {
			return emitted, ctx.Err()
		}
		emitted++
	}

	return emitted, errors.Wrap(scanner.Err(), "cannot read events")
}

func parseLine(line string) (emitter, event string, arg any, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", nil, errors.Errorf("expected \"<emitter> <event> [json-arg]\", got %q", line)
	}
	emitter, event = fields[0], fields[1]

	rest := strings.TrimSpace(line[len(emitter):])
	rest = strings.TrimSpace(rest[len(event):])
	if rest == "" {
		return emitter, event, nil, nil
	}

	if err := json.Unmarshal([]byte(rest), &arg); err != nil {
		return "", "", nil, errors.Wrap(err, "invalid json argument")
	}
	return emitter, event, arg, nil
}

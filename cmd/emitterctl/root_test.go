package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topologyYAML = `
emitters:
  - name: orders
    namespace: shop
  - name: bus
    proxies: [orders]
trackers:
  - name: audit
    record: true
    subscriptions:
      - emitter: bus
        event: all
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTopology(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(topologyYAML), 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	stdout, _, err := run(t, "", "validate", "-c", writeTopology(t))

	require.NoError(t, err)
	assert.Equal(t, "ok: 2 emitters, 1 trackers\n", stdout)
}

func TestValidateCommandRequiresConfig(t *testing.T) {
	_, _, err := run(t, "", "validate")

	assert.Error(t, err)
}

func TestReplayCommandFromStdin(t *testing.T) {
	stdout, stderr, err := run(t, "orders created {\"id\": 3}\n", "replay", "-c", writeTopology(t), "--rollback")

	require.NoError(t, err)
	assert.Equal(t,
		"tracker=audit emitter=bus event=shop:created arg={\"id\":3} source=orders\n"+
			"rolled back tracker=audit subscriptions=1\n",
		stdout)
	assert.Contains(t, stderr, "replayed 1 events")
}

func TestReplayCommandFromFile(t *testing.T) {
	events := filepath.Join(t.TempDir(), "events.txt")
	require.NoError(t, os.WriteFile(events, []byte("bus ping\n"), 0o600))

	stdout, stderr, err := run(t, "", "replay", "-c", writeTopology(t), "-i", events, "--log-level", "error")

	require.NoError(t, err)
	assert.Equal(t, "tracker=audit emitter=bus event=ping arg=null source=-\n", stdout)
	assert.Empty(t, stderr)
}

func TestReplayCommandErrors(t *testing.T) {
	config := writeTopology(t)

	_, _, err := run(t, "", "replay", "-c", config, "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = run(t, "", "replay", "-c", config, "-i", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "cannot open events")

	_, _, err = run(t, "nobody x\n", "replay", "-c", config)
	assert.ErrorContains(t, err, `unknown emitter "nobody"`)
}

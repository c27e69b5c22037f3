package libevents

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriterLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf).(*writerLogger)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC) }

	l.WithField("b", 2).WithField("a", 1).Errorf("failed: %s", "boom")
	l.Info("plain")

	assert.Equal(t,
		"[2024-03-01 10:20:30] ERROR [a=1, b=2]: failed: boom\n"+
			"[2024-03-01 10:20:30] INFO: plain\n",
		buf.String())
}

func TestDefaultErrorHandlerLogsFailure(t *testing.T) {
	logger := &mockLogger{}
	logger.On("WithField", mock.Anything, mock.Anything).Return()
	logger.On("Errorf", "ERROR", "listener failed: boom").Return()

	emitter := NewEmitter(WithLogger(logger), WithNamespace("ns"))
	_ = emitter.On("x", NewListener(func(any, *Emitter) error { return errors.New("boom") }))
	emitter.Emit("x", nil)

	logger.AssertCalled(t, "WithField", "emitter", emitter.ID())
	logger.AssertCalled(t, "WithField", "namespace", "ns")
	logger.AssertCalled(t, "WithField", "event", "ns:x")
	logger.AssertNumberOfCalls(t, "Errorf", 1)
}

func TestDoneCallbackPanicIsLogged(t *testing.T) {
	logger := &mockLogger{}
	logger.On("WithField", mock.Anything, mock.Anything).Return()
	logger.On("Warnf", "WARN", "done callback panicked: oops").Return()

	emitter := NewEmitter(WithLogger(logger))
	emitter.Emit("x", nil, WithDone(func([]*DeliveryError) { panic("oops") }))

	logger.AssertExpectations(t)
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(zerolog.New(&buf))

	l.WithField("emitter", "e1").Warnf("queue %d", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "e1", entry["emitter"])
	assert.Equal(t, "queue 3", entry["message"])
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core).Sugar())

	l.WithField("event", "x").Error("listener failed")
	l.Debugf("proxying %s", "e2")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "listener failed", entries[0].Message)
	assert.Equal(t, "x", entries[0].ContextMap()["event"])
	assert.Equal(t, "proxying e2", entries[1].Message)
}

func TestNopLogger(t *testing.T) {
	l := NopLogger().WithField("k", "v")
	l.Error("ignored")
	assert.Equal(t, NopLogger(), l)
}

func TestEmitterLogsThroughWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(WithLogger(NewWriterLogger(&buf)))
	_ = emitter.On("x", NewListener(func(any, *Emitter) error { panic("kaboom") }))

	emitter.Emit("x", nil)

	line := buf.String()
	assert.True(t, strings.Contains(line, "ERROR"), line)
	assert.Contains(t, line, "event=x")
	assert.Contains(t, line, "emitter="+emitter.ID())
	assert.Contains(t, line, "listener panicked: kaboom")
}

package libevents

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyRoundTrip(t *testing.T) {
	source := NewEmitter()
	target := NewEmitter()
	l, got := recorder()
	_ = target.On("y", l)

	require.True(t, target.Proxy(source))
	assert.True(t, target.IsProxying(source))

	source.Emit("y", 1)
	require.Len(t, *got, 1)
	assert.Equal(t, 1, (*got)[0].arg)
	assert.Same(t, source, (*got)[0].source)

	target.Unproxy(source)
	assert.False(t, target.IsProxying(source))
	assert.Zero(t, source.ListenerCount(AllEvent))

	source.Emit("y", 1)
	assert.Len(t, *got, 1)
}

func TestProxyIsIdempotent(t *testing.T) {
	source := NewEmitter()
	target := NewEmitter()
	l, got := recorder()
	_ = target.On("y", l)

	assert.True(t, target.Proxy(source))
	assert.False(t, target.Proxy(source))
	assert.False(t, target.Proxy(target))
	assert.False(t, target.Proxy(nil))

	source.Emit("y", nil)
	assert.Len(t, *got, 1)
	assert.Equal(t, 1, source.ListenerCount(AllEvent))
}

func TestUnproxyUnknownSourceIsNoop(t *testing.T) {
	target := NewEmitter()
	other := NewEmitter()

	target.Unproxy(other)
	target.Unproxy(nil)

	assert.False(t, target.IsProxying(other))
	assert.False(t, target.IsProxying(nil))
}

func TestProxyForwardsNamespacedNameVerbatim(t *testing.T) {
	source := NewEmitter(WithNamespace("src"))
	target := NewEmitter(WithNamespace("dst"))
	target.Proxy(source)

	var seen []string
	_ = target.On(AllEvent, NewAllListener(func(event string, _ any, from *Emitter) error {
		seen = append(seen, event)
		assert.Same(t, source, from)
		return nil
	}))
	l, got := recorder()
	_ = target.On("src:y", l)

	source.Emit("y", 7)

	assert.Equal(t, []string{"src:y"}, seen)
	assert.Len(t, *got, 1)
}

func TestProxyChainReportsImmediateSource(t *testing.T) {
	root := NewEmitter()
	middle := NewEmitter()
	leaf := NewEmitter()
	middle.Proxy(root)
	leaf.Proxy(middle)

	l, got := recorder()
	_ = leaf.On("e", l)

	root.Emit("e", "v")

	require.Len(t, *got, 1)
	assert.Same(t, middle, (*got)[0].source)
}

func TestForwardedFailuresStayOnTarget(t *testing.T) {
	source := NewEmitter()
	target := NewEmitter(WithErrorHandler(func(*DeliveryError) {}))
	target.Proxy(source)
	_ = target.On("y", NewListener(func(any, *Emitter) error { return assert.AnError }))

	em := source.Emit("y", nil)

	assert.NoError(t, em.Err())
}

func TestProxyDoesNotKeepSourceAlive(t *testing.T) {
	target := NewEmitter()

	func() {
		source := NewEmitter()
		require.True(t, target.Proxy(source))
	}()

	st := target.current()
	require.Eventually(t, func() bool {
		runtime.GC()
		st.mu.RLock()
		defer st.mu.RUnlock()
		return len(st.proxies) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProxySurvivesEmancipate(t *testing.T) {
	source := NewEmitter()
	target := NewEmitter()

	require.True(t, target.Proxy(source))
	Emancipate(target)

	l, got := recorder()
	_ = target.On("y", l)

	assert.True(t, target.IsProxying(source))
	assert.False(t, target.Proxy(source))
	assert.Equal(t, 1, source.ListenerCount(AllEvent))

	source.Emit("y", 1)
	assert.Len(t, *got, 1)

	target.Unproxy(source)
	assert.False(t, target.IsProxying(source))
	assert.Zero(t, source.ListenerCount(AllEvent))

	source.Emit("y", 2)
	assert.Len(t, *got, 1)
}

func TestEmancipateLeavesOtherProxiesBehind(t *testing.T) {
	source := NewEmitter()
	template := NewEmitter()
	shared := NewEmitter(SharingStateWith(template))

	require.True(t, template.Proxy(source))
	assert.True(t, shared.IsProxying(source))
	assert.False(t, shared.Proxy(source))

	Emancipate(shared)

	assert.True(t, template.IsProxying(source))
	assert.False(t, shared.IsProxying(source))
	assert.Equal(t, 1, source.ListenerCount(AllEvent))
}

func TestProxyRejectsEmitterSharingState(t *testing.T) {
	a := NewEmitter()
	b := NewEmitter(SharingStateWith(a))
	l, got := recorder()
	_ = a.On("x", l)

	assert.False(t, b.Proxy(a))
	assert.False(t, a.Proxy(b))
	assert.Zero(t, a.ListenerCount(AllEvent))

	a.Emit("x", nil)
	assert.Len(t, *got, 1)

	Emancipate(b)
	assert.True(t, b.Proxy(a))
}

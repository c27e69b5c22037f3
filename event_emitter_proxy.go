package libevents

import (
	"runtime"
	"weak"
)

// proxyLink is the forwarding listener a proxying emitter registered on a source.
type proxyLink struct {
	owner    *Emitter
	listener *Listener
	cleanup  runtime.Cleanup
}

// Proxy re-emits every event observed on source on e, with the name verbatim and source
// as the listeners' source argument. It returns false, doing nothing, when source is nil,
// e itself, or already proxied.
//
// Emitters sharing state also share their proxies, and an emitter sharing state with
// source counts as source itself.
//
// e holds source only weakly: the relationship is dropped when source is collected.
func (e *Emitter) Proxy(source *Emitter) bool {
	if source == nil || source == e {
		return false
	}

	key := weak.Make(source)
	st := e.current()
	if source.current() == st {
		return false
	}

	st.mu.Lock()
	if _, found := st.proxies[key]; found {
		st.mu.Unlock()
		return false
	}
	link := &proxyLink{owner: e, listener: e.forwarder(key)}
	link.cleanup = runtime.AddCleanup(source, st.forgetProxy, key)
	st.proxies[key] = link
	st.mu.Unlock()

	e.logger.Debugf("proxying emitter %s", source.id)

	// the forwarder can never fail validation
	_ = source.On(AllEvent, link.listener)

	return true
}

// Unproxy undoes Proxy. It is a no-op when source is not proxied by e.
func (e *Emitter) Unproxy(source *Emitter) {
	if source == nil {
		return
	}

	key := weak.Make(source)
	st := e.current()

	st.mu.Lock()
	link, found := st.proxies[key]
	delete(st.proxies, key)
	st.mu.Unlock()

	if !found {
		return
	}

	link.cleanup.Stop()
	source.Off(AllEvent, link.listener)

	e.logger.Debugf("stopped proxying emitter %s", source.id)
}

// IsProxying reports whether e currently forwards source's events.
func (e *Emitter) IsProxying(source *Emitter) bool {
	if source == nil {
		return false
	}

	st := e.current()
	st.mu.RLock()
	defer st.mu.RUnlock()

	_, found := st.proxies[weak.Make(source)]
	return found
}

// forwarder must not capture the source strongly, or the link registered with
// runtime.AddCleanup would keep it alive forever.
func (e *Emitter) forwarder(source weak.Pointer[Emitter]) *Listener {
	return NewAllListener(func(event string, arg any, _ *Emitter) error {
		e.Emit(event, arg, IgnoreNamespace(), From(source.Value()))
		return nil
	})
}

func (st *emitterState) forgetProxy(key weak.Pointer[Emitter]) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.proxies, key)
}

// adoptProxies moves the proxies e created from st into fresh, so they can still be
// inspected and undone after e stops sharing st.
func (e *Emitter) adoptProxies(st, fresh *emitterState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for key, link := range st.proxies {
		if link.owner != e {
			continue
		}

		delete(st.proxies, key)
		link.cleanup.Stop()

		source := key.Value()
		if source == nil {
			continue
		}
		link.cleanup = runtime.AddCleanup(source, fresh.forgetProxy, key)
		fresh.proxies[key] = link
	}
}

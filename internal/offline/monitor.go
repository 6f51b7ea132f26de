package offline

import "sync"

// ConnectivityMonitor reports whether the remote backend is reachable and
// notifies subscribers on transitions.
type ConnectivityMonitor interface {
	Online() bool
	Subscribe(fn func(online bool))
}

// ManualMonitor is a ConnectivityMonitor driven by explicit SetOnline
// calls. Health probes or upstream error handling flip it; tests drive it
// directly.
type ManualMonitor struct {
	mu        sync.RWMutex
	online    bool
	listeners []func(online bool)
}

// NewManualMonitor creates a monitor in the given initial state.
func NewManualMonitor(online bool) *ManualMonitor {
	return &ManualMonitor{online: online}
}

// Online reports the current connectivity state.
func (m *ManualMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers a listener invoked on every state transition.
func (m *ManualMonitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// SetOnline updates the state, notifying listeners only when it changed.
func (m *ManualMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(online)
	}
}

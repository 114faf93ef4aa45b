// Package connectivity owns the process-wide network reachability state.
// It is a pure signal source: it never schedules retries itself, it only
// mirrors reachability into the store's network hooks and tells listeners.
package connectivity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m4rcusml/event-planner/internal/domain"
)

// Listener is notified with the new state on every reachability transition.
// Listeners run synchronously, in registration order.
type Listener func(online bool)

// Monitor observes the platform reachability signal and exposes the current
// state. The state starts optimistic (online) until the first signal
// arrives, and has exactly one writer: the signal goroutine.
type Monitor struct {
	store domain.RemoteStore
	log   *slog.Logger

	mu        sync.Mutex
	online    bool
	listeners []Listener
	startOnce sync.Once
}

// NewMonitor returns a Monitor reporting online until told otherwise.
func NewMonitor(store domain.RemoteStore, log *slog.Logger) *Monitor {
	return &Monitor{store: store, log: log, online: true}
}

// Start consumes the reachability signal. It subscribes exactly once per
// process lifetime; later calls are no-ops. The goroutine exits when signal
// closes or ctx is done.
func (m *Monitor) Start(ctx context.Context, signal <-chan bool) {
	m.startOnce.Do(func() {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case online, ok := <-signal:
					if !ok {
						return
					}
					m.handleChange(ctx, online)
				}
			}
		}()
	})
}

// IsConnected returns the current reachability state.
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// AddListener registers fn for reachability transitions. Registration order
// is notification order.
func (m *Monitor) AddListener(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Monitor) handleChange(ctx context.Context, online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.log.Info("network state changed", "online", online)

	// Keep the store's behavior in step with actual connectivity before
	// listeners react; listeners may immediately issue store calls.
	if err := m.store.SetNetworkEnabled(ctx, online); err != nil {
		m.log.Warn("toggle store network failed", "online", online, "error", err)
	}
	for _, fn := range listeners {
		fn(online)
	}
}

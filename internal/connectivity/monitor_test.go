package connectivity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rcusml/event-planner/internal/adapters/memstore"
)

func newTestMonitor() (*Monitor, *memstore.Store) {
	store := memstore.NewStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMonitor(store, log), store
}

func TestMonitor_StartsOnline(t *testing.T) {
	m, _ := newTestMonitor()
	assert.True(t, m.IsConnected())
}

func TestMonitor_TransitionNotifiesListenersInOrder(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMonitor()

	var order []string
	m.AddListener(func(online bool) { order = append(order, "first") })
	m.AddListener(func(online bool) { order = append(order, "second") })

	m.handleChange(ctx, false)

	assert.False(t, m.IsConnected())
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestMonitor_TransitionTogglesStoreNetwork(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMonitor()

	m.handleChange(ctx, false)
	err := store.Set(ctx, "events", "ev1", map[string]any{}, false)
	require.Error(t, err, "store writes must fail once offline")

	m.handleChange(ctx, true)
	assert.NoError(t, store.Set(ctx, "events", "ev1", map[string]any{}, false))
}

func TestMonitor_StoreToggledBeforeListenersRun(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMonitor()

	var writeErr error
	m.AddListener(func(online bool) {
		writeErr = store.Set(ctx, "events", "ev1", map[string]any{}, false)
	})

	m.handleChange(ctx, false)
	assert.Error(t, writeErr, "listener must observe the store already offline")
}

func TestMonitor_DuplicateStateIsIgnored(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMonitor()

	calls := 0
	m.AddListener(func(bool) { calls++ })

	m.handleChange(ctx, true) // already online
	assert.Equal(t, 0, calls)

	m.handleChange(ctx, false)
	m.handleChange(ctx, false)
	assert.Equal(t, 1, calls, "repeated identical signals notify once")
}

func TestMonitor_StartConsumesSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, _ := newTestMonitor()

	signal := make(chan bool)
	m.Start(ctx, signal)
	m.Start(ctx, signal) // second call is a no-op

	signal <- false
	require.Eventually(t, func() bool { return !m.IsConnected() }, time.Second, 5*time.Millisecond)

	signal <- true
	require.Eventually(t, func() bool { return m.IsConnected() }, time.Second, 5*time.Millisecond)
}

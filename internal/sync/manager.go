// Package sync keeps the local view of events consistent with the remote
// store: live-query subscriptions with upcoming/past partitioning, and
// optimistic local mutation with rollback on confirmed failure.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/m4rcusml/event-planner/internal/domain"
	"github.com/m4rcusml/event-planner/internal/metrics"
	"github.com/m4rcusml/event-planner/internal/repository/docstore"
)

// State is the lifecycle of one screen-scoped subscription.
type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateLive
	StateError
	StateUnsubscribed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	case StateUnsubscribed:
		return "unsubscribed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Partition splits a snapshot around "now": Upcoming holds events with date
// >= now sorted ascending, Past holds the rest sorted descending.
type Partition struct {
	Upcoming []*domain.Event
	Past     []*domain.Event
}

// All returns the full snapshot, upcoming first.
func (p Partition) All() []*domain.Event {
	out := make([]*domain.Event, 0, len(p.Upcoming)+len(p.Past))
	out = append(out, p.Upcoming...)
	out = append(out, p.Past...)
	return out
}

// SnapshotHandler receives each delivered partition. Last snapshot wins; no
// incremental diffing is performed.
type SnapshotHandler func(Partition)

// ErrorHandler receives stream errors. The manager does not auto-retry; the
// caller decides whether to resubscribe.
type ErrorHandler func(error)

type subscription struct {
	userID      string
	state       State
	generation  int
	unsubscribe domain.UnsubscribeFunc
	onChange    SnapshotHandler
	onError     ErrorHandler
}

// Manager owns the live queries for the current screen. One logical query
// has at most one live subscription; subscribing again for the same query
// tears the previous one down first, so snapshots are never delivered twice
// and channels never leak.
type Manager struct {
	store     domain.RemoteStore
	log       *slog.Logger
	collector *metrics.Collector
	now       func() time.Time

	mu      sync.Mutex
	subs    map[string]*subscription
	nextGen int
}

// NewManager returns a Manager over the given store.
func NewManager(store domain.RemoteStore, log *slog.Logger, collector *metrics.Collector) *Manager {
	return &Manager{
		store:     store,
		log:       log,
		collector: collector,
		now:       time.Now,
		subs:      make(map[string]*subscription),
	}
}

func queryKey(userID string) string {
	return domain.CollectionEvents + "/userId=" + userID
}

// SubscribeUserEvents opens (or replaces) the live query for the user's
// events. onChange fires with a fresh partition on the initial snapshot and
// on every subsequent change.
func (m *Manager) SubscribeUserEvents(ctx context.Context, userID string, onChange SnapshotHandler, onError ErrorHandler) error {
	key := queryKey(userID)

	m.mu.Lock()
	if prior, ok := m.subs[key]; ok {
		m.teardownLocked(key, prior)
	}
	m.nextGen++
	sub := &subscription{
		userID:     userID,
		state:      StateSubscribing,
		generation: m.nextGen,
		onChange:   onChange,
		onError:    onError,
	}
	m.subs[key] = sub
	generation := sub.generation
	m.mu.Unlock()

	filters := []domain.Filter{{Field: "userId", Value: userID}}
	unsubscribe, err := m.store.Subscribe(ctx, domain.CollectionEvents, filters,
		func(docs []*domain.Document) {
			m.handleSnapshot(key, generation, docs)
		},
		func(err error) {
			m.handleStreamError(key, generation, err)
		},
	)
	if err != nil {
		m.mu.Lock()
		if current, ok := m.subs[key]; ok && current == sub {
			sub.state = StateError
		}
		m.mu.Unlock()
		return fmt.Errorf("subscribe user events: %w", err)
	}

	m.mu.Lock()
	if current, ok := m.subs[key]; ok && current == sub && sub.state != StateUnsubscribed {
		sub.unsubscribe = unsubscribe
	} else {
		// Torn down while the subscribe call was in flight.
		unsubscribe()
	}
	m.mu.Unlock()
	return nil
}

// Unsubscribe tears down the user's live query. Idempotent.
func (m *Manager) Unsubscribe(userID string) {
	key := queryKey(userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[key]; ok {
		m.teardownLocked(key, sub)
	}
}

// UnsubscribeAll tears down every live query, e.g. on logout.
func (m *Manager) UnsubscribeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, sub := range m.subs {
		m.teardownLocked(key, sub)
	}
}

// State reports the lifecycle state for the user's query; Idle when the
// query was never subscribed.
func (m *Manager) State(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[queryKey(userID)]; ok {
		return sub.state
	}
	return StateIdle
}

// Resubscribe tears down and recreates every active subscription. This is
// the defined recovery action after a connectivity gap: the remote channel
// does not self-heal reliably, so a fresh subscribe is made instead.
func (m *Manager) Resubscribe(ctx context.Context) {
	m.mu.Lock()
	type rebind struct {
		userID   string
		onChange SnapshotHandler
		onError  ErrorHandler
	}
	var rebinds []rebind
	for key, sub := range m.subs {
		if sub.state == StateUnsubscribed {
			continue
		}
		rebinds = append(rebinds, rebind{userID: sub.userID, onChange: sub.onChange, onError: sub.onError})
		m.teardownLocked(key, sub)
	}
	m.mu.Unlock()

	for _, r := range rebinds {
		m.collector.RecordResubscribe()
		if err := m.SubscribeUserEvents(ctx, r.userID, r.onChange, r.onError); err != nil {
			m.log.Warn("resubscribe failed", "userId", r.userID, "error", err)
			if r.onError != nil {
				r.onError(err)
			}
		}
	}
}

// ConnectivityListener adapts Resubscribe to the connectivity monitor's
// listener shape: offline→online recreates every active subscription.
func (m *Manager) ConnectivityListener(ctx context.Context) func(online bool) {
	return func(online bool) {
		if online {
			m.Resubscribe(ctx)
		}
	}
}

func (m *Manager) handleSnapshot(key string, generation int, docs []*domain.Document) {
	m.mu.Lock()
	sub, ok := m.subs[key]
	if !ok || sub.generation != generation || sub.state == StateUnsubscribed || sub.state == StateError {
		m.mu.Unlock()
		return
	}
	sub.state = StateLive
	onChange := sub.onChange
	m.mu.Unlock()

	events := make([]*domain.Event, 0, len(docs))
	for _, doc := range docs {
		event, err := docstore.EventFromDocument(doc)
		if err != nil {
			// One malformed document must not blank the whole screen.
			m.log.Warn("skipping undecodable event document", "id", doc.ID, "error", err)
			continue
		}
		events = append(events, event)
	}

	m.collector.RecordSnapshot()
	if onChange != nil {
		onChange(PartitionEvents(events, m.now()))
	}
}

func (m *Manager) handleStreamError(key string, generation int, err error) {
	m.mu.Lock()
	sub, ok := m.subs[key]
	if !ok || sub.generation != generation || sub.state == StateUnsubscribed {
		m.mu.Unlock()
		return
	}
	sub.state = StateError
	onError := sub.onError
	m.mu.Unlock()

	m.log.Error("subscription stream failed", "key", key, "error", err)
	if onError != nil {
		onError(err)
	}
}

// teardownLocked stops delivery for sub and removes it from the table. Any
// in-flight callback for the old channel no-ops on the generation check.
func (m *Manager) teardownLocked(key string, sub *subscription) {
	sub.state = StateUnsubscribed
	if sub.unsubscribe != nil {
		sub.unsubscribe()
		sub.unsubscribe = nil
	}
	delete(m.subs, key)
}

// PartitionEvents splits events around now using normalized dates: upcoming
// (date >= now) ascending, past descending.
func PartitionEvents(events []*domain.Event, now time.Time) Partition {
	var p Partition
	for _, e := range events {
		if e.Date.Before(now) {
			p.Past = append(p.Past, e)
		} else {
			p.Upcoming = append(p.Upcoming, e)
		}
	}
	sort.SliceStable(p.Upcoming, func(i, j int) bool {
		return p.Upcoming[i].Date.Before(p.Upcoming[j].Date)
	})
	sort.SliceStable(p.Past, func(i, j int) bool {
		return p.Past[i].Date.After(p.Past[j].Date)
	})
	return p
}

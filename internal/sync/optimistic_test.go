package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rcusml/event-planner/internal/domain"
)

type staticAuth struct {
	identity *domain.Identity
}

func (s *staticAuth) CurrentUser() *domain.Identity { return s.identity }

func (s *staticAuth) OnAuthStateChanged(func(*domain.Identity)) func() { return func() {} }

type staticConn struct {
	online bool
}

func (s *staticConn) IsConnected() bool { return s.online }

type dispatchCall struct {
	op      string
	eventID string
	arg     string
}

// recordingEventService counts remote dispatches; the coordinator's local
// apply must never reach it when offline.
type recordingEventService struct {
	calls []dispatchCall
	fail  error
}

func (r *recordingEventService) CreateEvent(ctx context.Context, draft domain.EventDraft) (string, error) {
	return "", errors.New("not used")
}

func (r *recordingEventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingEventService) ListEventsForUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	return nil, nil
}

func (r *recordingEventService) UpdateEvent(ctx context.Context, id string, partial map[string]any) error {
	return errors.New("not used")
}

func (r *recordingEventService) DeleteEvent(ctx context.Context, id string) error {
	return errors.New("not used")
}

func (r *recordingEventService) AddGuest(ctx context.Context, eventID, email string) (*domain.Guest, error) {
	r.calls = append(r.calls, dispatchCall{op: "add", eventID: eventID, arg: email})
	if r.fail != nil {
		return nil, r.fail
	}
	return &domain.Guest{ID: "remote-id", Email: email, Confirmed: true}, nil
}

func (r *recordingEventService) RemoveGuest(ctx context.Context, eventID, guestID string) error {
	r.calls = append(r.calls, dispatchCall{op: "remove", eventID: eventID, arg: guestID})
	return r.fail
}

func (r *recordingEventService) SetGuestConfirmed(ctx context.Context, eventID, email string, confirmed bool) error {
	r.calls = append(r.calls, dispatchCall{op: "confirm", eventID: eventID, arg: email})
	return r.fail
}

type coordinatorFixture struct {
	coord    *Coordinator
	svc      *recordingEventService
	auth     *staticAuth
	conn     *staticConn
	views    [][]*domain.Event
	notices  []string
	refetches int
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		svc:  &recordingEventService{},
		auth: &staticAuth{identity: &domain.Identity{ID: "u1", Email: "owner@example.com"}},
		conn: &staticConn{online: true},
	}
	hooks := ViewHooks{
		OnChange: func(events []*domain.Event) { f.views = append(f.views, events) },
		OnNotice: func(msg string) { f.notices = append(f.notices, msg) },
		Refetch:  func(context.Context) { f.refetches++ },
	}
	f.coord = NewCoordinator(f.svc, f.auth, f.conn, hooks, discardLogger(), nil)
	return f
}

func (f *coordinatorFixture) seedView(events ...*domain.Event) {
	f.coord.ApplySnapshot(events)
	f.views = nil
}

func ownedEvent(id string, guests ...domain.Guest) *domain.Event {
	return &domain.Event{
		ID:     id,
		Title:  "Event " + id,
		Date:   time.Now().Add(24 * time.Hour),
		UserID: "u1",
		Guests: guests,
	}
}

func guestIDs(e *domain.Event) []string {
	out := make([]string, len(e.Guests))
	for i, g := range e.Guests {
		out[i] = g.ID
	}
	return out
}

func TestCoordinator_AddGuest_OnlineSuccess(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.seedView(ownedEvent("ev1"))

	require.NoError(t, f.coord.AddGuest(ctx, "ev1", "ana@example.com"))

	// Local apply is visible before (and regardless of) the remote result.
	require.NotEmpty(t, f.views)
	require.Len(t, f.views[0][0].Guests, 1)
	assert.True(t, f.views[0][0].Guests[0].Confirmed)

	require.Len(t, f.svc.calls, 1)
	assert.Equal(t, dispatchCall{op: "add", eventID: "ev1", arg: "ana@example.com"}, f.svc.calls[0])
	assert.Empty(t, f.notices)
	assert.Zero(t, f.refetches)
}

func TestCoordinator_AddGuest_OfflineDefersDispatch(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.conn.online = false
	f.seedView(ownedEvent("ev1"))

	require.NoError(t, f.coord.AddGuest(ctx, "ev1", "ana@example.com"))

	view := f.coord.View()
	require.Len(t, view[0].Guests, 1, "mutation applied locally while offline")
	assert.Empty(t, f.svc.calls, "no remote call while offline")
	require.Len(t, f.notices, 1)
	assert.Equal(t, SyncLaterNotice, f.notices[0])
	assert.Zero(t, f.refetches)
}

func TestCoordinator_AddGuest_OnlineFailureRollsBackAndRefetches(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.svc.fail = domain.ErrPermissionDenied
	f.seedView(ownedEvent("ev1", domain.Guest{ID: "g1", Email: "a@b.com", Confirmed: true}))

	err := f.coord.AddGuest(ctx, "ev1", "ana@example.com")
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	view := f.coord.View()
	require.Len(t, view[0].Guests, 1, "view restored to pre-mutation state")
	assert.Equal(t, "g1", view[0].Guests[0].ID)
	assert.Equal(t, 1, f.refetches, "confirmed failure forces a refetch")

	// Optimistic apply, then the rollback, each notified the view.
	require.GreaterOrEqual(t, len(f.views), 2)
	last := f.views[len(f.views)-1]
	assert.Len(t, last[0].Guests, 1)
}

func TestCoordinator_AddGuest_PreChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("not authenticated", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		f.auth.identity = nil
		f.seedView(ownedEvent("ev1"))

		err := f.coord.AddGuest(ctx, "ev1", "ana@example.com")
		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
		assert.Empty(t, f.svc.calls)
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		f.seedView(ownedEvent("ev1"))

		assert.ErrorIs(t, f.coord.AddGuest(ctx, "ev1", "nope"), domain.ErrInvalidInput)
	})

	t.Run("event not in view", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		f.seedView(ownedEvent("ev1"))

		assert.ErrorIs(t, f.coord.AddGuest(ctx, "missing", "ana@example.com"), domain.ErrNotFound)
	})

	t.Run("not owner", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		e := ownedEvent("ev1")
		e.UserID = "someone-else"
		f.seedView(e)

		assert.ErrorIs(t, f.coord.AddGuest(ctx, "ev1", "ana@example.com"), domain.ErrNotOwner)
		assert.Empty(t, f.views, "rejected mutation must not touch the view")
	})

	t.Run("past event", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		e := ownedEvent("ev1")
		e.Date = time.Now().Add(-24 * time.Hour)
		f.seedView(e)

		assert.ErrorIs(t, f.coord.AddGuest(ctx, "ev1", "ana@example.com"), domain.ErrEventInPast)
	})

	t.Run("duplicate guest", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		f.seedView(ownedEvent("ev1", domain.Guest{ID: "g1", Email: "Ana@Example.com"}))

		assert.ErrorIs(t, f.coord.AddGuest(ctx, "ev1", "ana@example.com"), domain.ErrDuplicateGuest)
		assert.Empty(t, f.svc.calls)
	})
}

func TestCoordinator_RemoveGuest(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.seedView(ownedEvent("ev1",
		domain.Guest{ID: "g1", Email: "a@b.com"},
		domain.Guest{ID: "g2", Email: "c@d.com"},
	))

	require.NoError(t, f.coord.RemoveGuest(ctx, "ev1", "g1"))

	view := f.coord.View()
	assert.Equal(t, []string{"g2"}, guestIDs(view[0]))
	require.Len(t, f.svc.calls, 1)
	assert.Equal(t, "remove", f.svc.calls[0].op)
}

func TestCoordinator_SetGuestConfirmed_FlipsInPlace(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.seedView(ownedEvent("ev1",
		domain.Guest{ID: "g1", Email: "a@b.com", Confirmed: true},
		domain.Guest{ID: "g2", Email: "c@d.com", Confirmed: true},
	))

	require.NoError(t, f.coord.SetGuestConfirmed(ctx, "ev1", "A@B.com", false))

	view := f.coord.View()
	require.Len(t, view[0].Guests, 2, "matching by email flips, never inserts")
	assert.False(t, view[0].Guests[0].Confirmed)
	assert.True(t, view[0].Guests[1].Confirmed)
}

func TestCoordinator_SetGuestConfirmed_InsertsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.seedView(ownedEvent("ev1"))

	require.NoError(t, f.coord.SetGuestConfirmed(ctx, "ev1", "new@example.com", true))

	view := f.coord.View()
	require.Len(t, view[0].Guests, 1)
	assert.Equal(t, "new@example.com", view[0].Guests[0].Email)
}

func TestCoordinator_ApplySnapshot_SupersedesOptimisticState(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.conn.online = false
	f.seedView(ownedEvent("ev1"))

	require.NoError(t, f.coord.AddGuest(ctx, "ev1", "ana@example.com"))
	require.Len(t, f.coord.View()[0].Guests, 1)

	// Reconnect resubscribe delivers the authoritative result set, which does
	// not include the deferred mutation.
	f.coord.ApplySnapshot([]*domain.Event{ownedEvent("ev1")})

	assert.Empty(t, f.coord.View()[0].Guests, "authoritative snapshot wins over optimistic state")
}

func TestCoordinator_View_ReturnsCopy(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.seedView(ownedEvent("ev1", domain.Guest{ID: "g1", Email: "a@b.com"}))

	view := f.coord.View()
	view[0].Guests[0].Email = "mutated@example.com"

	assert.Equal(t, "a@b.com", f.coord.View()[0].Guests[0].Email)
}

package sync

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m4rcusml/event-planner/internal/domain"
	"github.com/m4rcusml/event-planner/internal/metrics"
	"github.com/m4rcusml/event-planner/internal/repository/docstore"
)

// SyncLaterNotice is surfaced when a mutation is applied locally while
// offline and no store call is attempted.
const SyncLaterNotice = "You're offline. This change will sync when the connection is back."

// Connectivity reports the current reachability state. Satisfied by
// *connectivity.Monitor.
type Connectivity interface {
	IsConnected() bool
}

// ViewHooks are the coordinator's outputs: OnChange receives every local
// view replacement (optimistic or authoritative), OnNotice receives
// non-blocking user notices, and Refetch triggers the full refresh that
// follows a confirmed remote failure (equivalent to resubscribing).
type ViewHooks struct {
	OnChange func([]*domain.Event)
	OnNotice func(string)
	Refetch  func(context.Context)
}

// Coordinator applies guest-list mutations to the in-memory view
// immediately, then reconciles against the remote result: the subscription
// feed supersedes optimistic state on success, and a confirmed failure
// rolls the view back and forces a refetch. Offline mutations are
// optimistic until the next reconnect-triggered resubscribe; they are never
// queued across restarts.
type Coordinator struct {
	events    domain.EventService
	auth      domain.AuthProvider
	conn      Connectivity
	hooks     ViewHooks
	log       *slog.Logger
	collector *metrics.Collector
	now       func() time.Time

	mu   sync.Mutex
	view []*domain.Event
}

// NewCoordinator wires a Coordinator. hooks fields may be nil.
func NewCoordinator(
	events domain.EventService,
	auth domain.AuthProvider,
	conn Connectivity,
	hooks ViewHooks,
	log *slog.Logger,
	collector *metrics.Collector,
) *Coordinator {
	return &Coordinator{
		events:    events,
		auth:      auth,
		conn:      conn,
		hooks:     hooks,
		log:       log,
		collector: collector,
		now:       time.Now,
	}
}

// ApplySnapshot replaces the view with the authoritative result set from
// the live query. Any optimistic discrepancy is superseded here.
func (c *Coordinator) ApplySnapshot(events []*domain.Event) {
	c.mu.Lock()
	c.view = cloneView(events)
	c.mu.Unlock()
	c.notifyView()
}

// View returns a copy of the current in-memory view.
func (c *Coordinator) View() []*domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneView(c.view)
}

// AddGuest optimistically appends a guest, then dispatches the remote add.
// Application-level rejections (not owner, past event, duplicate) surface
// before any local or remote effect.
func (c *Coordinator) AddGuest(ctx context.Context, eventID, email string) error {
	email = strings.TrimSpace(email)
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}
	guest := domain.Guest{
		ID:        docstore.NewGuestID(email),
		Email:     email,
		Confirmed: true,
	}
	return c.mutate(ctx, "add", eventID, func(event *domain.Event) error {
		if event.HasGuest(email) {
			return domain.ErrDuplicateGuest
		}
		event.Guests = append(event.CloneGuests(), guest)
		return nil
	}, func(ctx context.Context) error {
		_, err := c.events.AddGuest(ctx, eventID, email)
		return err
	})
}

// RemoveGuest optimistically filters the guest out, then dispatches the
// remote removal.
func (c *Coordinator) RemoveGuest(ctx context.Context, eventID, guestID string) error {
	return c.mutate(ctx, "remove", eventID, func(event *domain.Event) error {
		guests := make([]domain.Guest, 0, len(event.Guests))
		for _, g := range event.Guests {
			if g.ID != guestID {
				guests = append(guests, g)
			}
		}
		event.Guests = guests
		return nil
	}, func(ctx context.Context) error {
		return c.events.RemoveGuest(ctx, eventID, guestID)
	})
}

// SetGuestConfirmed optimistically flips the RSVP flag (inserting the guest
// if absent), then dispatches the remote confirmation.
func (c *Coordinator) SetGuestConfirmed(ctx context.Context, eventID, email string, confirmed bool) error {
	email = strings.TrimSpace(email)
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}
	return c.mutate(ctx, "confirm", eventID, func(event *domain.Event) error {
		guests := event.CloneGuests()
		for i := range guests {
			if strings.EqualFold(guests[i].Email, email) {
				guests[i].Confirmed = confirmed
				event.Guests = guests
				return nil
			}
		}
		event.Guests = append(guests, domain.Guest{
			ID:        docstore.NewGuestID(email),
			Email:     email,
			Confirmed: confirmed,
		})
		return nil
	}, func(ctx context.Context) error {
		return c.events.SetGuestConfirmed(ctx, eventID, email, confirmed)
	})
}

// mutate is the optimistic sequence shared by every guest-list operation:
// pre-check, synchronous local apply, then either an offline deferral or a
// remote dispatch with rollback-and-refetch on failure.
func (c *Coordinator) mutate(ctx context.Context, op, eventID string, apply func(*domain.Event) error, dispatch func(context.Context) error) error {
	caller := c.auth.CurrentUser()
	if caller == nil {
		return domain.ErrNotAuthenticated
	}

	c.mu.Lock()
	prior := cloneView(c.view)
	target := findEvent(c.view, eventID)
	if target == nil {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	if target.UserID != caller.ID {
		c.mu.Unlock()
		return domain.ErrNotOwner
	}
	if target.IsPast(c.now()) {
		c.mu.Unlock()
		return domain.ErrEventInPast
	}
	next := target.Clone()
	if err := apply(next); err != nil {
		c.mu.Unlock()
		return err
	}
	c.view = replaceEvent(c.view, next)
	c.mu.Unlock()

	// UI reflects the change before any network round-trip.
	c.collector.RecordOptimisticApply(op)
	c.notifyView()

	if !c.conn.IsConnected() {
		c.collector.RecordOfflineDeferred()
		c.log.Info("mutation deferred while offline", "op", op, "eventId", eventID)
		c.notify(SyncLaterNotice)
		return nil
	}

	if err := dispatch(ctx); err != nil {
		// Confirmed failure while online: restore the pre-mutation view,
		// then force a full refetch so the view matches the remote state.
		c.mu.Lock()
		c.view = prior
		c.mu.Unlock()
		c.collector.RecordRollback()
		c.log.Error("remote mutation failed, rolled back", "op", op, "eventId", eventID, "error", err)
		c.notifyView()
		if c.hooks.Refetch != nil {
			c.hooks.Refetch(ctx)
		}
		return err
	}
	// Success needs no further action: the next snapshot is the source of
	// truth and reconciles any remaining discrepancy.
	return nil
}

func (c *Coordinator) notifyView() {
	if c.hooks.OnChange != nil {
		c.hooks.OnChange(c.View())
	}
}

func (c *Coordinator) notify(msg string) {
	if c.hooks.OnNotice != nil {
		c.hooks.OnNotice(msg)
	}
}

func cloneView(events []*domain.Event) []*domain.Event {
	out := make([]*domain.Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

func findEvent(events []*domain.Event, id string) *domain.Event {
	for _, e := range events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func replaceEvent(events []*domain.Event, next *domain.Event) []*domain.Event {
	out := make([]*domain.Event, len(events))
	for i, e := range events {
		if e.ID == next.ID {
			out[i] = next
		} else {
			out[i] = e
		}
	}
	return out
}

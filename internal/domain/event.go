package domain

import (
	"context"
	"strings"
	"time"
)

// Guest is an invited email on an event's guest list. Guests have no
// identity outside their parent event document.
type Guest struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

// Event represents a planned event and its guest list. Date is always held
// as an absolute instant; wire forms (epoch, ISO string, timestamp object)
// are normalized at the repository boundary before any comparison runs.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Local       string    `json:"local,omitempty"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Guests      []Guest   `json:"guests"`
}

// EventDraft carries user-submitted fields for event creation. Date is left
// untyped because callers hand it over in whatever wire form they received.
type EventDraft struct {
	ID          string
	Title       string
	Date        any
	Local       string
	Description string
}

// IsPast reports whether the event date is strictly before now.
func (e *Event) IsPast(now time.Time) bool {
	return e.Date.Before(now)
}

// HasGuest reports whether email is already on the guest list,
// case-insensitively.
func (e *Event) HasGuest(email string) bool {
	return e.FindGuest(email) != nil
}

// FindGuest returns the guest with the given email (case-insensitive), or
// nil if absent.
func (e *Event) FindGuest(email string) *Guest {
	for i := range e.Guests {
		if strings.EqualFold(e.Guests[i].Email, email) {
			return &e.Guests[i]
		}
	}
	return nil
}

// CloneGuests returns an independent copy of the guest list. Mutation paths
// always replace the whole slice, never edit entries in place.
func (e *Event) CloneGuests() []Guest {
	if e.Guests == nil {
		return nil
	}
	out := make([]Guest, len(e.Guests))
	copy(out, e.Guests)
	return out
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	c.Guests = e.CloneGuests()
	return &c
}

// EventRepository defines storage operations for event documents. The
// underlying store has no per-element list mutation, so guest-list writes
// replace the whole array; MutateGuests serializes that read-modify-write
// through the store's transaction primitive.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByUserID(ctx context.Context, userID string) ([]*Event, error)
	Update(ctx context.Context, id string, partial map[string]any) error
	Delete(ctx context.Context, id string) error
	// MutateGuests reads the event inside a transaction, passes it to fn,
	// and writes back the returned guest list as a whole-array replacement
	// along with a fresh updatedAt. An error from fn aborts the transaction
	// and is returned unchanged.
	MutateGuests(ctx context.Context, id string, fn func(event *Event) ([]Guest, error)) error
}

// EventService owns the domain rules for events: ownership, date
// normalization, guest uniqueness, and the past-event guard.
type EventService interface {
	CreateEvent(ctx context.Context, draft EventDraft) (string, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEventsForUser(ctx context.Context, userID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, id string, partial map[string]any) error
	DeleteEvent(ctx context.Context, id string) error
	AddGuest(ctx context.Context, eventID, email string) (*Guest, error)
	RemoveGuest(ctx context.Context, eventID, guestID string) error
	SetGuestConfirmed(ctx context.Context, eventID, email string, confirmed bool) error
}

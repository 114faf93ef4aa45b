package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m4rcusml/event-planner/internal/domain"
)

type eventRepository struct {
	store domain.RemoteStore
	now   func() time.Time
}

// NewEventRepository returns an EventRepository backed by the given store.
func NewEventRepository(store domain.RemoteStore) domain.EventRepository {
	return &eventRepository{store: store, now: time.Now}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = NewEventID()
	}
	// Merge-set matches the store's upsert semantics for creation.
	if err := r.store.Set(ctx, domain.CollectionEvents, e.ID, EventToData(e), true); err != nil {
		return fmt.Errorf("create event %s: %w", e.ID, err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	doc, err := r.store.Get(ctx, domain.CollectionEvents, id)
	if err != nil {
		return nil, err
	}
	return EventFromDocument(doc)
}

func (r *eventRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Event, error) {
	docs, err := r.store.Query(ctx, domain.CollectionEvents, domain.Filter{Field: "userId", Value: userID})
	if err != nil {
		return nil, fmt.Errorf("list events for user %s: %w", userID, err)
	}
	events := make([]*domain.Event, 0, len(docs))
	for _, doc := range docs {
		e, err := EventFromDocument(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, id string, partial map[string]any) error {
	data := make(map[string]any, len(partial)+1)
	for k, v := range partial {
		data[k] = v
	}
	data["updatedAt"] = r.now()
	return r.store.Update(ctx, domain.CollectionEvents, id, data)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, domain.CollectionEvents, id)
}

// MutateGuests runs fn against the transaction-read event and writes the
// returned guest list back as a whole-array replacement. The transaction
// serializes concurrent guest-list edits on the same event; a plain update
// here would let the last writer clobber unrelated entries.
func (r *eventRepository) MutateGuests(ctx context.Context, id string, fn func(event *domain.Event) ([]domain.Guest, error)) error {
	return r.store.RunTransaction(ctx, func(tx domain.Tx) error {
		doc, err := tx.Get(domain.CollectionEvents, id)
		if err != nil {
			return err
		}
		event, err := EventFromDocument(doc)
		if err != nil {
			return err
		}
		guests, err := fn(event)
		if err != nil {
			return err
		}
		event.Guests = guests
		event.UpdatedAt = r.now()
		return tx.Set(domain.CollectionEvents, id, EventToData(event))
	})
}

// NewEventID generates a client-supplied event id.
func NewEventID() string {
	return "event_" + uuid.NewString()
}

// NewGuestID derives a guest id from the email's local part plus a random
// disambiguator, so re-inviting a removed email never reuses an id.
func NewGuestID(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	local = strings.ToLower(local)
	return fmt.Sprintf("guest_%s_%s", local, uuid.NewString()[:8])
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m4rcusml/event-planner/internal/domain"
	"github.com/m4rcusml/event-planner/internal/metrics"
	"github.com/m4rcusml/event-planner/internal/repository/docstore"
)

type eventService struct {
	events         domain.EventRepository
	auth           domain.AuthProvider
	email          domain.EmailService
	log            *slog.Logger
	collector      *metrics.Collector
	now            func() time.Time
	contextTimeout time.Duration
}

// NewEventService wires the event rules over the given repository. email may
// be nil when invitation delivery is not configured; collector may be nil.
func NewEventService(
	events domain.EventRepository,
	auth domain.AuthProvider,
	email domain.EmailService,
	log *slog.Logger,
	collector *metrics.Collector,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		events:         events,
		auth:           auth,
		email:          email,
		log:            log,
		collector:      collector,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, draft domain.EventDraft) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller := s.auth.CurrentUser()
	if caller == nil {
		return "", domain.ErrNotAuthenticated
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	date, err := domain.NormalizeTime(draft.Date)
	if err != nil {
		return "", err
	}

	now := s.now()
	event := &domain.Event{
		ID:          draft.ID,
		Title:       title,
		Date:        date,
		Local:       strings.TrimSpace(draft.Local),
		Description: strings.TrimSpace(draft.Description),
		UserID:      caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return "", err
	}
	s.log.Info("event created", "eventId", event.ID, "userId", caller.ID)
	return event.ID, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.events.GetByID(ctx, id)
}

func (s *eventService) ListEventsForUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.events.ListByUserID(ctx, userID)
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, partial map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller := s.auth.CurrentUser()
	if caller == nil {
		return domain.ErrNotAuthenticated
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.UserID != caller.ID {
		return domain.ErrNotOwner
	}
	// userId is set once at creation and never client-editable afterward.
	delete(partial, "userId")
	return s.events.Update(ctx, id, partial)
}

func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller := s.auth.CurrentUser()
	if caller == nil {
		return domain.ErrNotAuthenticated
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.UserID != caller.ID {
		return domain.ErrNotOwner
	}
	return s.events.Delete(ctx, id)
}

// AddGuest appends a new guest to the event's list. Ownership, the
// past-event guard, and case-insensitive email uniqueness are all checked
// against the transaction-read state, so concurrent adds cannot slip a
// duplicate past the check. New guests are marked confirmed at invite time.
func (s *eventService) AddGuest(ctx context.Context, eventID, email string) (*domain.Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller := s.auth.CurrentUser()
	if caller == nil {
		return nil, domain.ErrNotAuthenticated
	}
	email = strings.TrimSpace(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	var added *domain.Guest
	var eventTitle, eventLocal string
	var eventDate time.Time
	err := s.events.MutateGuests(ctx, eventID, func(event *domain.Event) ([]domain.Guest, error) {
		if event.UserID != caller.ID {
			return nil, domain.ErrNotOwner
		}
		if event.IsPast(s.now()) {
			return nil, domain.ErrEventInPast
		}
		if event.HasGuest(email) {
			return nil, domain.ErrDuplicateGuest
		}
		guest := domain.Guest{
			ID:        docstore.NewGuestID(email),
			Email:     email,
			Confirmed: true,
		}
		added = &guest
		eventTitle, eventLocal, eventDate = event.Title, event.Local, event.Date
		return append(event.CloneGuests(), guest), nil
	})
	if err != nil {
		return nil, err
	}

	s.collector.RecordGuestMutation("add")
	s.log.Info("guest added", "eventId", eventID, "guestId", added.ID)
	s.sendInvitation(ctx, added.Email, eventTitle, eventLocal, eventDate)
	return added, nil
}

// RemoveGuest filters the guest out and persists the whole updated list.
// Removing an id that is no longer present is a successful no-op.
func (s *eventService) RemoveGuest(ctx context.Context, eventID, guestID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller := s.auth.CurrentUser()
	if caller == nil {
		return domain.ErrNotAuthenticated
	}

	err := s.events.MutateGuests(ctx, eventID, func(event *domain.Event) ([]domain.Guest, error) {
		if event.UserID != caller.ID {
			return nil, domain.ErrNotOwner
		}
		if event.IsPast(s.now()) {
			return nil, domain.ErrEventInPast
		}
		guests := make([]domain.Guest, 0, len(event.Guests))
		for _, g := range event.Guests {
			if g.ID != guestID {
				guests = append(guests, g)
			}
		}
		return guests, nil
	})
	if err != nil {
		return err
	}
	s.collector.RecordGuestMutation("remove")
	s.log.Info("guest removed", "eventId", eventID, "guestId", guestID)
	return nil
}

// SetGuestConfirmed maps the matching email to the new confirmed value,
// inserting the guest if absent, and writes the whole list back inside the
// transaction so two concurrent confirmations never clobber each other's
// unrelated entries.
func (s *eventService) SetGuestConfirmed(ctx context.Context, eventID, email string, confirmed bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	caller := s.auth.CurrentUser()
	if caller == nil {
		return domain.ErrNotAuthenticated
	}
	email = strings.TrimSpace(email)
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}

	err := s.events.MutateGuests(ctx, eventID, func(event *domain.Event) ([]domain.Guest, error) {
		if event.UserID != caller.ID {
			return nil, domain.ErrNotOwner
		}
		if event.IsPast(s.now()) {
			return nil, domain.ErrEventInPast
		}
		guests := event.CloneGuests()
		for i := range guests {
			if strings.EqualFold(guests[i].Email, email) {
				guests[i].Confirmed = confirmed
				return guests, nil
			}
		}
		return append(guests, domain.Guest{
			ID:        docstore.NewGuestID(email),
			Email:     email,
			Confirmed: confirmed,
		}), nil
	})
	if err != nil {
		return err
	}
	s.collector.RecordGuestMutation("confirm")
	s.log.Info("guest confirmation updated", "eventId", eventID, "email", email, "confirmed", confirmed)
	return nil
}

// sendInvitation delivers the invite email best-effort; a delivery failure
// never fails the guest add that triggered it.
func (s *eventService) sendInvitation(ctx context.Context, email, title, local string, date time.Time) {
	if s.email == nil {
		return
	}
	err := s.email.SendInvitation(ctx, &domain.InvitationEmailData{
		Email:      email,
		EventTitle: title,
		EventDate:  date.Format("02/01/2006 15:04"),
		EventLocal: local,
	})
	if err != nil {
		s.log.Warn("invitation email failed", "email", email, "error", err)
	}
}

// IsPermissionDenied reports whether err is a store-level authorization
// failure. These are surfaced to the user and never retried.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, domain.ErrPermissionDenied)
}

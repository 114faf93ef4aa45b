// Package docstore implements the domain repositories on top of the
// abstract document store. It owns the mapping between domain types and
// JSON-like documents, including timestamp normalization at the read
// boundary.
package docstore

import (
	"fmt"

	"github.com/m4rcusml/event-planner/internal/domain"
)

// EventFromDocument decodes an event document. The date and audit fields are
// normalized into absolute instants here, so nothing downstream ever
// compares a raw wire value.
func EventFromDocument(doc *domain.Document) (*domain.Event, error) {
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	e := &domain.Event{
		ID:          doc.ID,
		Title:       stringField(doc.Data, "title"),
		Local:       stringField(doc.Data, "local"),
		Description: stringField(doc.Data, "description"),
		UserID:      stringField(doc.Data, "userId"),
	}

	date, err := domain.NormalizeTime(doc.Data["date"])
	if err != nil {
		return nil, fmt.Errorf("event %s: date: %w", doc.ID, err)
	}
	e.Date = date

	// createdAt/updatedAt may be absent on documents written by older
	// clients; absence is not an error.
	if v, ok := doc.Data["createdAt"]; ok {
		if t, err := domain.NormalizeTime(v); err == nil {
			e.CreatedAt = t
		}
	}
	if v, ok := doc.Data["updatedAt"]; ok {
		if t, err := domain.NormalizeTime(v); err == nil {
			e.UpdatedAt = t
		}
	}

	e.Guests = guestsFromValue(doc.Data["guests"])
	return e, nil
}

// EventToData encodes an event into document fields. The id lives in the
// document key, never in the data.
func EventToData(e *domain.Event) map[string]any {
	return map[string]any{
		"title":       e.Title,
		"date":        e.Date,
		"local":       e.Local,
		"description": e.Description,
		"userId":      e.UserID,
		"createdAt":   e.CreatedAt,
		"updatedAt":   e.UpdatedAt,
		"guests":      GuestsToData(e.Guests),
	}
}

// GuestsToData encodes a guest list as the store's array-of-objects form.
func GuestsToData(guests []domain.Guest) []any {
	out := make([]any, 0, len(guests))
	for _, g := range guests {
		out = append(out, map[string]any{
			"id":        g.ID,
			"email":     g.Email,
			"confirmed": g.Confirmed,
		})
	}
	return out
}

func guestsFromValue(v any) []domain.Guest {
	switch list := v.(type) {
	case nil:
		return nil
	case []domain.Guest:
		out := make([]domain.Guest, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]domain.Guest, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, domain.Guest{
				ID:        stringField(m, "id"),
				Email:     stringField(m, "email"),
				Confirmed: boolField(m, "confirmed"),
			})
		}
		return out
	default:
		return nil
	}
}

// ProfileFromDocument decodes a users-collection document.
func ProfileFromDocument(doc *domain.Document) (*domain.Profile, error) {
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return &domain.Profile{
		ID:        doc.ID,
		FullName:  stringField(doc.Data, "fullName"),
		Email:     stringField(doc.Data, "email"),
		BirthDate: stringField(doc.Data, "birthDate"),
		CreatedAt: stringField(doc.Data, "createdAt"),
	}, nil
}

// ProfileToData encodes a profile into document fields.
func ProfileToData(p *domain.Profile) map[string]any {
	return map[string]any{
		"fullName":  p.FullName,
		"email":     p.Email,
		"birthDate": p.BirthDate,
		"createdAt": p.CreatedAt,
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return false
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent_HasGuest_CaseInsensitive(t *testing.T) {
	e := &Event{Guests: []Guest{{ID: "g1", Email: "Ana@Example.com"}}}

	assert.True(t, e.HasGuest("ana@example.com"))
	assert.True(t, e.HasGuest("ANA@EXAMPLE.COM"))
	assert.False(t, e.HasGuest("bob@example.com"))
}

func TestEvent_IsPast(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&Event{Date: now.Add(-time.Minute)}).IsPast(now))
	assert.False(t, (&Event{Date: now}).IsPast(now), "date exactly at now is not past")
	assert.False(t, (&Event{Date: now.Add(time.Minute)}).IsPast(now))
}

func TestEvent_Clone_Independent(t *testing.T) {
	e := &Event{ID: "ev1", Guests: []Guest{{ID: "g1", Email: "a@b.com", Confirmed: false}}}

	c := e.Clone()
	c.Guests[0].Confirmed = true
	c.Guests = append(c.Guests, Guest{ID: "g2", Email: "c@d.com"})

	assert.False(t, e.Guests[0].Confirmed, "clone mutation leaked into original")
	assert.Len(t, e.Guests, 1)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("guest@example.com"))
	assert.ErrorIs(t, ValidateEmail(""), ErrInvalidInput)
	assert.ErrorIs(t, ValidateEmail("no-at-sign.com"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateEmail("no-dot@com"), ErrInvalidInput)
}

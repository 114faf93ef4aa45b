package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rcusml/event-planner/internal/domain"
)

type recordingMailer struct {
	to, subject, html, text string
	fail                    error
}

func (m *recordingMailer) Send(to, subject, html, text string) error {
	if m.fail != nil {
		return m.fail
	}
	m.to, m.subject, m.html, m.text = to, subject, html, text
	return nil
}

func TestEmailService_SendInvitation(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewEmailService(mailer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := svc.SendInvitation(context.Background(), &domain.InvitationEmailData{
		Email:      "ana@example.com",
		EventTitle: "Launch Party",
		EventDate:  "01/09/2026 19:00",
		EventLocal: "Rooftop",
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", mailer.to)
	assert.Equal(t, "You're invited: Launch Party", mailer.subject)
	assert.Contains(t, mailer.text, "01/09/2026 19:00")
	assert.Contains(t, mailer.text, "Rooftop")
	assert.Contains(t, mailer.html, "<strong>Launch Party</strong>")
}

func TestEmailService_SendInvitation_NoLocation(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewEmailService(mailer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := svc.SendInvitation(context.Background(), &domain.InvitationEmailData{
		Email:      "ana@example.com",
		EventTitle: "Launch Party",
		EventDate:  "01/09/2026 19:00",
	})
	require.NoError(t, err)
	assert.NotContains(t, mailer.text, "Location:")
}

func TestEmailService_SendInvitation_NilData(t *testing.T) {
	svc := NewEmailService(&recordingMailer{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, svc.SendInvitation(context.Background(), nil))
}

func TestEmailService_SendInvitation_MailerFailure(t *testing.T) {
	boom := errors.New("smtp down")
	svc := NewEmailService(&recordingMailer{fail: boom}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := svc.SendInvitation(context.Background(), &domain.InvitationEmailData{
		Email: "ana@example.com", EventTitle: "X", EventDate: "y",
	})
	assert.ErrorIs(t, err, boom)
}

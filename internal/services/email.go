package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m4rcusml/event-planner/internal/domain"
)

type emailService struct {
	mailer domain.Mailer
	log    *slog.Logger
}

// NewEmailService returns an EmailService that sends invitations through the
// given Mailer.
func NewEmailService(mailer domain.Mailer, log *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, log: log}
}

// SendInvitation sends the guest invitation email.
func (s *emailService) SendInvitation(ctx context.Context, data *domain.InvitationEmailData) error {
	if data == nil {
		return fmt.Errorf("invitation data is nil")
	}
	subject := fmt.Sprintf("You're invited: %s", data.EventTitle)
	text := fmt.Sprintf(
		"You have been invited to %s on %s.",
		data.EventTitle, data.EventDate,
	)
	if data.EventLocal != "" {
		text += fmt.Sprintf(" Location: %s.", data.EventLocal)
	}
	html := fmt.Sprintf(
		"<p>You have been invited to <strong>%s</strong> on %s.</p>",
		data.EventTitle, data.EventDate,
	)
	if err := s.mailer.Send(data.Email, subject, html, text); err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}
	s.log.Info("invitation email sent", "email", data.Email, "event", data.EventTitle)
	return nil
}

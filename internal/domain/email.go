package domain

import (
	"context"
	"fmt"
	"strings"
)

// ValidateEmail applies the minimal shape check: an @ and a dot. Full RFC
// validation is out of scope.
func ValidateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	return nil
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// InvitationEmailData holds data for the guest invitation email.
type InvitationEmailData struct {
	Email      string
	EventTitle string
	EventDate  string
	EventLocal string
}

// EmailService defines the contract for sending domain-level emails.
// Invitation delivery is best-effort: callers log failures and move on, a
// failed email never fails the guest mutation that triggered it.
type EmailService interface {
	SendInvitation(ctx context.Context, data *InvitationEmailData) error
}

// Package email provides Mailer implementations for invitation delivery.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/m4rcusml/event-planner/internal/domain"
)

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// MailerConfig holds configuration for creating a mailer.
type MailerConfig struct {
	Provider    string
	FromAddress string
	FromName    string
	SES         SESConfig
}

// NewMailer creates a mailer from config. Provider "ses" uses AWS SES;
// "noop" or unknown uses a no-op mailer, so invitation delivery degrades
// cleanly when email is not configured.
func NewMailer(config MailerConfig, log *slog.Logger) (domain.Mailer, error) {
	switch config.Provider {
	case "ses":
		awsCfg := aws.Config{
			Region: config.SES.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					config.SES.AccessKeyID,
					config.SES.SecretAccessKey,
					"",
				),
			),
		}
		return &sesMailer{
			client:      ses.NewFromConfig(awsCfg),
			fromAddress: config.FromAddress,
			fromName:    config.FromName,
			log:         log,
		}, nil
	case "noop":
		return &noopMailer{log: log}, nil
	default:
		log.Warn("unknown email provider, using noop", "provider", config.Provider)
		return &noopMailer{log: log}, nil
	}
}

type sesMailer struct {
	client      *ses.Client
	fromAddress string
	fromName    string
	log         *slog.Logger
}

func (s *sesMailer) Send(to, subject, html, text string) error {
	source := s.fromAddress
	if s.fromName != "" {
		source = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}
	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}
	if html != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(html),
			Charset: aws.String("UTF-8"),
		}
	}
	if text != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(text),
			Charset: aws.String("UTF-8"),
		}
	}
	result, err := s.client.SendEmail(context.Background(), input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	s.log.Debug("email sent via SES", "messageId", aws.ToString(result.MessageId))
	return nil
}

type noopMailer struct {
	log *slog.Logger
}

func (n *noopMailer) Send(to, subject, html, text string) error {
	n.log.Info("email would be sent (noop)", "to", to, "subject", subject)
	return nil
}

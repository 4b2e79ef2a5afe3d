package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/templui/fractional/internal/model"
)

type EmailService struct {
	client  *resend.Client
	from    string
	isDev   bool
	appURL  string
	appName string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:  client,
		from:    fromEmail,
		isDev:   isDev,
		appURL:  appURL,
		appName: appName,
	}
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email, name string) error {
	subject, body := welcomeEmailTemplate(name, s.appURL, s.appName)
	return s.send(ctx, "welcome", email, subject, body)
}

// SendInsightDigest mails the new high-priority insights of a generation
// run. It does nothing when insights is empty.
func (s *EmailService) SendInsightDigest(ctx context.Context, email, name string, insights []*model.UserInsight) error {
	if len(insights) == 0 {
		return nil
	}
	subject, body := insightDigestEmailTemplate(name, insights, s.appURL, s.appName)
	return s.send(ctx, "insight_digest", email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", to)
	}
	return err
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sethvargo/go-retry"
	"github.com/skyreport/skyreport/internal/metrics"
)

// EmailService sends the lifecycle emails through Resend. In development
// it logs instead of sending, so the flows are testable without an API
// key. Verification sends are retried with exponential backoff because a
// lost verification email strands a fresh account; reset emails are sent
// once, the caller can always ask again.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	appURL    string
	appName   string
	isDev     bool
	delivery  *DeliveryTracker
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		appURL:    appURL,
		appName:   appName,
		isDev:     isDev,
		delivery:  NewDeliveryTracker(time.Hour),
	}
}

// Delivery exposes the diagnostic delivery tracker.
func (s *EmailService) Delivery() *DeliveryTracker {
	return s.delivery
}

func (s *EmailService) SendVerificationEmail(email, token string) error {
	verifyURL := fmt.Sprintf("%s/verify?token=%s", s.appURL, token)
	subject, body := verificationEmailTemplate(verifyURL, s.appName)

	entryID := s.delivery.Begin(email)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "verification", "to", email, "subject", subject, "url", verifyURL)
		s.delivery.Finish(entryID, true, 1)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	// Up to 3 attempts with exponential backoff (1s, 2s).
	attempts := 0
	backoff := retry.WithMaxRetries(2, retry.NewExponential(time.Second))
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		attempts++
		_, sendErr := s.client.Emails.SendWithContext(ctx, params)
		if sendErr != nil {
			slog.Warn("verification email send failed", "error", sendErr, "to", email, "attempt", attempts)
			return retry.RetryableError(sendErr)
		}
		return nil
	})

	s.delivery.Finish(entryID, err == nil, attempts)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("verification", "failed").Inc()
		return fmt.Errorf("failed to send verification email after %d attempts: %w", attempts, err)
	}
	metrics.EmailsSent.WithLabelValues("verification", "sent").Inc()

	slog.Info("email sent", "type", "verification", "to", email, "attempts", attempts)
	return nil
}

func (s *EmailService) SendPasswordResetEmail(email, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)
	subject, body := passwordResetEmailTemplate(resetURL, s.appName)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "password_reset", "to", email, "subject", subject, "url", resetURL)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("password_reset", "failed").Inc()
		return err
	}
	metrics.EmailsSent.WithLabelValues("password_reset", "sent").Inc()
	slog.Info("email sent", "type", "password_reset", "to", email)
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// Sender delivers a reminder email. Delivery infrastructure is external to
// billfold; this interface is the seam.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender relays mail through a plain SMTP host (Mailpit locally, the
// provider relay in production).
type SMTPSender struct {
	Addr string
	From string
}

// Send delivers one message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender records sends without delivering, for environments without SMTP.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs the message instead of delivering it.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail send (log only)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(body)),
	)
	return nil
}

// NewSendEmailHandler builds the asynq handler for TaskTypeSendEmail.
func NewSendEmailHandler(sender Sender, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.To == "" {
			return asynq.SkipRetry
		}
		if err := sender.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			logger.Error("send email failed", slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		return nil
	}
}

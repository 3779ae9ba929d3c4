package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to      string
	subject string
	body    string
	err     error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.to, f.subject, f.body = to, subject, body
	return nil
}

func TestSendEmailHandler(t *testing.T) {
	sender := &fakeSender{}
	handler := NewSendEmailHandler(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := NewSendEmailTask(SendEmailPayload{
		To:      "billing@acme.test",
		Subject: "Payment reminder",
		Body:    "Please pay.",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, "billing@acme.test", sender.to)
	require.Equal(t, "Payment reminder", sender.subject)
	require.Equal(t, "Please pay.", sender.body)
}

func TestSendEmailHandlerSkipsBadPayload(t *testing.T) {
	handler := NewSendEmailHandler(&fakeSender{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := handler(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewSendEmailTask(SendEmailPayload{Subject: "no recipient"})
	require.NoError(t, err)
	err = handler(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendEmailHandlerPropagatesSendFailure(t *testing.T) {
	sendErr := errors.New("relay refused")
	handler := NewSendEmailHandler(&fakeSender{err: sendErr}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := NewSendEmailTask(SendEmailPayload{To: "billing@acme.test"})
	require.NoError(t, err)
	require.ErrorIs(t, handler(context.Background(), task), sendErr)
}

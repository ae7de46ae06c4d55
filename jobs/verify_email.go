package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/member-hub/member-hub/internal/jobs"
)

// Sender delivers transactional email. Implementations wrap whatever
// relay the deployment uses.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes emails to the log instead of delivering them, for
// development and test environments.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs the email instead of sending it.
func (s LogSender) Send(ctx context.Context, to, subject, body string) error {
	if s.Logger != nil {
		s.Logger.Info("email (not delivered)",
			slog.String("to", to), slog.String("subject", subject))
	}
	return nil
}

// VerifyEmailJob delivers address verification codes.
type VerifyEmailJob struct {
	Sender  Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewVerifyEmailJob initialises the verification email handler.
func NewVerifyEmailJob(sender Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *VerifyEmailJob {
	return &VerifyEmailJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle executes a TaskTypeVerifyEmail task.
func (j *VerifyEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sender == nil {
		return errors.New("verify email: handler not configured")
	}
	var payload VerifyEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" || payload.Code < 10000 || payload.Code > 99999 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeVerifyEmail)
	body := fmt.Sprintf(`Your email verification code is:

%d

Enter this on the website to continue.

If you were not expecting this code, please delete this email.`, payload.Code)

	err := j.Sender.Send(ctx, payload.To, "Email verification code", body)
	if err != nil && j.Logger != nil {
		j.Logger.Error("send verification email",
			slog.String("to", payload.To), slog.Any("error", err))
	}
	return tracker.End(err)
}

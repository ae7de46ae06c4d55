package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/member-hub/member-hub/internal/jobs"
	"github.com/member-hub/member-hub/internal/roles"
)

// ExpiringSource lists grants whose end date falls inside a window.
// Implemented by roles.Repository.
type ExpiringSource interface {
	ExpiringWithin(ctx context.Context, asOf time.Time, days int) ([]roles.Grant, error)
}

// RoleExpirySweepJob walks grants around their end date once a day. Roles
// expire by date comparison alone, so the sweep changes nothing; it exists
// to surface expiries in logs and metrics and to flag upcoming renewals.
type RoleExpirySweepJob struct {
	Source  ExpiringSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRoleExpirySweepJob initialises the expiry sweep handler.
func NewRoleExpirySweepJob(source ExpiringSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *RoleExpirySweepJob {
	return &RoleExpirySweepJob{
		Source:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes a TaskTypeRoleExpirySweep task.
func (j *RoleExpirySweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("role expiry sweep: handler not configured")
	}
	var payload RoleExpirySweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WarnDays <= 0 {
		payload.WarnDays = 30
	}

	tracker := j.Metrics.Track(TaskTypeRoleExpirySweep)
	asOf := j.clock()

	// Window opens a day back so grants that lapsed since the previous
	// daily run are counted exactly once.
	grants, err := j.Source.ExpiringWithin(ctx, asOf.AddDate(0, 0, -1), payload.WarnDays+1)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("role expiry sweep", slog.Any("error", err))
		}
		return tracker.End(err)
	}

	expired := 0
	for _, g := range grants {
		if g.Role.EndsOn == nil {
			continue
		}
		if !g.Role.ActiveAt(asOf) {
			expired++
			if j.Logger != nil {
				j.Logger.Info("role grant expired",
					slog.String("member", g.Role.MemberID),
					slog.String("role", g.RoleType.Title),
					slog.Time("ended_on", *g.Role.EndsOn))
			}
			continue
		}
		if j.Logger != nil {
			daysLeft := int(g.Role.EndsOn.Sub(asOf).Hours() / 24)
			j.Logger.Warn("role grant expiring soon",
				slog.String("member", g.Role.MemberID),
				slog.String("role", g.RoleType.Title),
				slog.Int("days_left", daysLeft))
		}
	}
	j.Metrics.AddExpiredRoles(expired)

	if j.Logger != nil {
		j.Logger.Info("role expiry sweep finished",
			slog.Int("expired", expired),
			slog.Int("expiring_soon", len(grants)-expired))
	}
	return tracker.End(nil)
}

package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeVerifyEmail is the task type for sending address verification emails.
	TaskTypeVerifyEmail = "mail:verify"
	// TaskTypeRoleExpirySweep is the task type for the nightly role expiry sweep.
	TaskTypeRoleExpirySweep = "roles:expiry_sweep"
)

// VerifyEmailPayload describes a verification code delivery.
type VerifyEmailPayload struct {
	To   string `json:"to"`
	Code int    `json:"code"`
}

// NewVerifyEmailTask constructs an Asynq task.
func NewVerifyEmailTask(payload VerifyEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeVerifyEmail, data), nil
}

// RoleExpirySweepPayload bounds the sweep. WarnDays widens the window to
// include grants expiring soon, not only ones already past.
type RoleExpirySweepPayload struct {
	WarnDays int `json:"warn_days"`
}

// NewRoleExpirySweepTask constructs an Asynq task.
func NewRoleExpirySweepTask(payload RoleExpirySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRoleExpirySweep, data), nil
}

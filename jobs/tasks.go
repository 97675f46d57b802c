package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/healthcompanion/companion/internal/accounts"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAccountCreated records a completed signup.
	TaskAccountCreated = "account:created"
	// TaskAccountLocked records a sign-in failure that locked the account.
	TaskAccountLocked = "account:locked"
)

// AccountEventPayload describes an account lifecycle event.
type AccountEventPayload struct {
	AccountID  string     `json:"accountId"`
	Email      string     `json:"email"`
	OccurredAt time.Time  `json:"occurredAt"`
	LockUntil  *time.Time `json:"lockUntil,omitempty"`
}

// NewAccountCreatedTask constructs an account:created task.
func NewAccountCreatedTask(account accounts.Account, at time.Time) (*asynq.Task, error) {
	return newAccountTask(TaskAccountCreated, AccountEventPayload{
		AccountID:  account.ID,
		Email:      account.Email,
		OccurredAt: at.UTC(),
	})
}

// NewAccountLockedTask constructs an account:locked task.
func NewAccountLockedTask(account accounts.Account, at time.Time) (*asynq.Task, error) {
	return newAccountTask(TaskAccountLocked, AccountEventPayload{
		AccountID:  account.ID,
		Email:      account.Email,
		OccurredAt: at.UTC(),
		LockUntil:  account.Login.LockUntil,
	})
}

func newAccountTask(taskType string, payload AccountEventPayload) (*asynq.Task, error) {
	if payload.AccountID == "" {
		return nil, fmt.Errorf("jobs: %s: account id required", taskType)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

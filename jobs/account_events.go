package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/healthcompanion/companion/internal/jobs"
	"github.com/healthcompanion/companion/internal/shared"
)

// EventRecorder persists account events.
type EventRecorder interface {
	Record(ctx context.Context, event shared.AccountEvent) error
}

// AccountEventsJob stores account lifecycle tasks in account_events.
type AccountEventsJob struct {
	Recorder EventRecorder
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewAccountEventsJob initialises the account events handler.
func NewAccountEventsJob(recorder EventRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccountEventsJob {
	return &AccountEventsJob{Recorder: recorder, Logger: logger, Metrics: metrics}
}

// Handlers returns the task registrations served by the job.
func (j *AccountEventsJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskAccountCreated, Handler: j.Handle},
		{Type: TaskAccountLocked, Handler: j.Handle},
	}
}

// Handle records one account event. Malformed payloads are skipped without
// retry.
func (j *AccountEventsJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Recorder == nil {
		return errors.New("account events: handler not configured")
	}
	var payload AccountEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.AccountID == "" {
		j.logger().Warn("skip malformed account event", slog.String("type", t.Type()))
		return fmt.Errorf("account events: decode %s: %w", t.Type(), asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(t.Type())
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	kind := strings.TrimPrefix(t.Type(), "account:")
	meta := map[string]any{}
	if payload.LockUntil != nil {
		meta["lockUntil"] = payload.LockUntil.UTC()
	}
	event := shared.AccountEvent{
		AccountID: payload.AccountID,
		Kind:      kind,
		Email:     payload.Email,
		Meta:      meta,
		At:        payload.OccurredAt,
	}
	if err := j.Recorder.Record(ctx, event); err != nil {
		j.logger().Error("record account event", slog.String("kind", kind), slog.String("account_id", payload.AccountID), slog.Any("error", err))
		return fmt.Errorf("account events: record %s: %w", kind, err)
	}
	j.Metrics.AddEvent(kind)
	j.logger().Info("account event recorded", slog.String("kind", kind), slog.String("account_id", payload.AccountID))
	return nil
}

func (j *AccountEventsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationScan looks for low stock and overdue orders.
	TaskNotificationScan = "notifications:scan"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ErrScanQueued is returned when a manual scan is already waiting to run.
var ErrScanQueued = fmt.Errorf("%w: jobs: a notification scan is already queued", httpx.ErrConflict)

// NewNotificationScanTask builds the scan task. It carries no payload: the
// scan always covers the whole catalog and every open order.
func NewNotificationScanTask() *asynq.Task {
	return asynq.NewTask(TaskNotificationScan, nil, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
}

// IdempotencyCleanupPayload carries how long keys are retained.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("%w: jobs: retention must be positive", httpx.ErrValidation)
	}
	payload, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, payload, asynq.MaxRetry(1)), nil
}

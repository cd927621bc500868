package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/inkworks/inkworks/internal/jobs"
	"github.com/inkworks/inkworks/internal/notifications"
)

// Scanner runs one notification scan.
type Scanner interface {
	Scan(ctx context.Context, now time.Time) (notifications.ScanResult, error)
}

// NotificationScanJob emits low stock and overdue order notifications.
type NotificationScanJob struct {
	Scanner Scanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewNotificationScanJob initialises the scan handler.
func NewNotificationScanJob(scanner Scanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationScanJob {
	return &NotificationScanJob{
		Scanner: scanner,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// Handle executes the scan.
func (j *NotificationScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Scanner == nil {
		return errors.New("notification scan: handler not configured")
	}
	start := j.clock()
	tracker := j.Metrics.Track(TaskNotificationScan)
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	res, err := j.Scanner.Scan(ctx, start)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}
	if res.Skipped {
		logger.Info("no active superuser to notify, scan skipped")
		return nil
	}
	j.Metrics.AddNotifications("created", res.Created)
	j.Metrics.AddNotifications("resurfaced", res.Resurfaced)
	logger.Info("completed notification scan",
		slog.Int("created", res.Created),
		slog.Int("resurfaced", res.Resurfaced),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *NotificationScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskNotificationScan))
	}
	return slog.Default().With(slog.String("job", TaskNotificationScan))
}

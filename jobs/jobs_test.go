package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/inkworks/inkworks/internal/jobs"
	"github.com/inkworks/inkworks/internal/notifications"
)

type fakeScanner struct {
	res notifications.ScanResult
	err error
	at  time.Time
}

func (f *fakeScanner) Scan(_ context.Context, now time.Time) (notifications.ScanResult, error) {
	f.at = now
	return f.res, f.err
}

func newJob(t *testing.T, scanner Scanner) (*NotificationScanJob, *prometheus.Registry, *bytes.Buffer) {
	t.Helper()
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	job := NewNotificationScanJob(scanner, slog.New(slog.NewTextHandler(&logs, nil)), jobmetrics.NewMetrics(reg))
	job.clock = func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }
	return job, reg, &logs
}

func TestNotificationScanRecordsMetrics(t *testing.T) {
	scanner := &fakeScanner{res: notifications.ScanResult{Created: 3, Resurfaced: 1}}
	job, reg, logs := newJob(t, scanner)

	require.NoError(t, job.Handle(context.Background(), NewNotificationScanTask()))
	require.Equal(t, 2024, scanner.at.Year())
	require.Contains(t, logs.String(), "created=3")

	count, err := testutil.GatherAndCount(reg, "inkworks_jobs_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	expected := `
# HELP inkworks_notifications_emitted_total Notifications created or resurfaced by scans, by outcome.
# TYPE inkworks_notifications_emitted_total counter
inkworks_notifications_emitted_total{kind="created"} 3
inkworks_notifications_emitted_total{kind="resurfaced"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "inkworks_notifications_emitted_total"))
}

func TestNotificationScanFailureIsCounted(t *testing.T) {
	boom := errors.New("db down")
	job, reg, _ := newJob(t, &fakeScanner{err: boom})

	require.ErrorIs(t, job.Handle(context.Background(), NewNotificationScanTask()), boom)
	expected := `
# HELP inkworks_jobs_failures_total Total failures observed for background jobs.
# TYPE inkworks_jobs_failures_total counter
inkworks_jobs_failures_total{job="notifications:scan"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "inkworks_jobs_failures_total"))
}

func TestNotificationScanSkippedWithoutRecipient(t *testing.T) {
	job, reg, logs := newJob(t, &fakeScanner{res: notifications.ScanResult{Skipped: true}})
	require.NoError(t, job.Handle(context.Background(), NewNotificationScanTask()))
	require.Contains(t, logs.String(), "scan skipped")
	count, err := testutil.GatherAndCount(reg, "inkworks_notifications_emitted_total")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestUnconfiguredJobFails(t *testing.T) {
	var job *NotificationScanJob
	require.Error(t, job.Handle(context.Background(), NewNotificationScanTask()))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		body      string
	}{
		{"no inspector", nil, http.StatusOK, `"pending":0`},
		{"queue info", fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Retry: 1}}, http.StatusOK, `"pending":4`},
		{"queue not created yet", fakeInspector{err: asynq.ErrQueueNotFound}, http.StatusOK, `"queue":"default"`},
		{"redis down", fakeInspector{err: errors.New("dial tcp")}, http.StatusServiceUnavailable, "queue inspector unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, slog.Default()).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rec.Code)
			require.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

type fakeCleaner struct {
	olderThan time.Duration
	err       error
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.olderThan = olderThan
	return f.err
}

func TestIdempotencyCleanup(t *testing.T) {
	cleaner := &fakeCleaner{}
	reg := prometheus.NewRegistry()
	job := NewIdempotencyCleanupJob(cleaner, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), jobmetrics.NewMetrics(reg))

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 48*time.Hour, cleaner.olderThan)

	cleaner.err = errors.New("timeout")
	require.ErrorIs(t, job.Handle(context.Background(), task), cleaner.err)
	expected := `
# HELP inkworks_jobs_total Total job executions partitioned by job name and status.
# TYPE inkworks_jobs_total counter
inkworks_jobs_total{job="idempotency:cleanup",status="failure"} 1
inkworks_jobs_total{job="idempotency:cleanup",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "inkworks_jobs_total"))
}

func TestIdempotencyCleanupRejectsBadPayload(t *testing.T) {
	job := NewIdempotencyCleanupJob(&fakeCleaner{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewIdempotencyCleanupTask(0)
	require.Error(t, err)
}

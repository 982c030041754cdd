package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/internal/notifications"
	"github.com/feedlift/feedlift-backend/internal/sync"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubSyncRunner struct {
	batch  *sync.BatchResult
	err    error
	forced []bool
}

func (s *stubSyncRunner) AutoSync(ctx context.Context, force bool) (*sync.BatchResult, error) {
	s.forced = append(s.forced, force)
	if s.err != nil {
		return nil, s.err
	}
	return s.batch, nil
}

type stubCleaner struct {
	result *notifications.CleanupResult
	err    error
	calls  int
}

func (s *stubCleaner) Cleanup(ctx context.Context, userID *uuid.UUID) (*notifications.CleanupResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubRetentionRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (s *stubRetentionRepo) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	if s.err != nil {
		return 0, s.err
	}
	return s.deleted, nil
}

func TestAutoSyncJobRunsUnforced(t *testing.T) {
	runner := &stubSyncRunner{batch: &sync.BatchResult{Checked: 5, Updated: 2}}
	job, err := NewAutoSyncJob(AutoSyncJobParams{Logger: testLogger(), Sync: runner})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "order-auto-sync" {
		t.Fatalf("name = %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(runner.forced) != 1 || runner.forced[0] {
		t.Fatalf("scheduled runs must not force, got %v", runner.forced)
	}
}

func TestAutoSyncJobPropagatesError(t *testing.T) {
	runner := &stubSyncRunner{err: errors.New("db down")}
	job, _ := NewAutoSyncJob(AutoSyncJobParams{Logger: testLogger(), Sync: runner})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotificationCleanupJob(t *testing.T) {
	cleaner := &stubCleaner{result: &notifications.CleanupResult{
		SubscriptionsDeactivated: 2,
		NotificationsDeleted:     9,
	}}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        testLogger(),
		Subscriptions: cleaner,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if cleaner.calls != 1 {
		t.Fatalf("cleanup calls = %d", cleaner.calls)
	}
}

func TestOutboxRetentionJobCutoff(t *testing.T) {
	repo := &stubRetentionRepo{deleted: 4}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if diff := repo.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff %v too far from %v", repo.cutoff, want)
	}
}

func TestOutboxRetentionJobDefaultWindow(t *testing.T) {
	repo := &stubRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := time.Now().UTC().Add(-time.Duration(outboxRetentionDays) * 24 * time.Hour)
	if diff := repo.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff %v too far from default %v", repo.cutoff, want)
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	job, _ := NewAutoSyncJob(AutoSyncJobParams{Logger: testLogger(), Sync: &stubSyncRunner{batch: &sync.BatchResult{}}})
	registry := NewRegistry(nil, job, nil)
	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("jobs = %d, want 1", got)
	}
	registry.Register(nil)
	registry.Register(job)
	if got := len(registry.Jobs()); got != 2 {
		t.Fatalf("jobs = %d, want 2", got)
	}
}

package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubLock struct {
	granted  bool
	err      error
	acquires int
	releases int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) {
	l.acquires++
	return l.granted, l.err
}

func (l *stubLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

type recordingJob struct {
	name string
	runs int
	err  error
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestRunCycleExecutesEveryJob(t *testing.T) {
	lock := &stubLock{granted: true}
	first := &recordingJob{name: "first"}
	failing := &recordingJob{name: "failing", err: errors.New("boom")}
	last := &recordingJob{name: "last"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, failing, last),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if first.runs != 1 || failing.runs != 1 || last.runs != 1 {
		t.Fatalf("every job must run despite failures: %d %d %d", first.runs, failing.runs, last.runs)
	}
	if lock.releases != 1 {
		t.Fatal("lock must be released after the cycle")
	}
}

func TestRunCycleSkipsWithoutLock(t *testing.T) {
	lock := &stubLock{granted: false}
	job := &recordingJob{name: "job"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run when another replica holds the lock")
	}
	if lock.releases != 0 {
		t.Fatal("an unheld lock must not be released")
	}
}

func TestRunCycleSurfacesLockError(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Lock:   &stubLock{err: errors.New("redis down")},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
}

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (s *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, held := s.values[key]; held {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestRedisLockMutualExclusion(t *testing.T) {
	store := newFakeRedisStore()
	lockA, err := NewRedisLock(store, "fl:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	lockB, err := NewRedisLock(store, "fl:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := lockA.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}
	ok, err = lockB.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("second acquire should be denied, got %v, %v", ok, err)
	}

	if err := lockA.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = lockB.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("acquire after release = %v, %v", ok, err)
	}
}

func TestRedisLockReleaseOnlyWhenOwned(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "fl:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	// Never acquired: release is a no-op.
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release without ownership: %v", err)
	}

	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// Simulate TTL expiry plus takeover by another owner.
	store.values["fl:test:lock"] = "someone-else"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release after takeover: %v", err)
	}
	if store.values["fl:test:lock"] != "someone-else" {
		t.Fatal("release must not delete a lock it no longer owns")
	}
}

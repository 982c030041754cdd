package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/outbox"
	"github.com/feedlift/feedlift-backend/pkg/outbox/payloads"
	"github.com/feedlift/feedlift-backend/pkg/outbox/registry"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	fetchErr  error
}

func (r *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return r.events, nil
}

func (r *fakeRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *fakeRepo) MarkTerminal(id uuid.UUID, err error, attempts int) error {
	r.terminal = append(r.terminal, id)
	return nil
}

type fakePubSub struct {
	pingErr error
}

func (p *fakePubSub) Ping(ctx context.Context) error        { return p.pingErr }
func (p *fakePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type fakeResult struct {
	err error
}

func (r *fakeResult) Get(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	err      error
	attempts int
	lastMsg  *gcppubsub.Message
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.attempts++
	p.lastMsg = msg
	return &fakeResult{err: p.err}
}

func newTestService(t *testing.T, repo *fakeRepo, pub publisher) *Service {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{NotificationTopic: "fl-notifications"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     testLogger(),
		Repository: repo,
		PubSub:     &fakePubSub{},
		Registry:   reg,
		PublisherFactory: func(topic string) publisher {
			return pub
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func orderCreatedEvent(t *testing.T) models.OutboxEvent {
	t.Helper()
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:     orderID,
		UserID:      uuid.New(),
		ServiceName: "Seguidores Instagram",
		Quantity:    1000,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestProcessBatchPublishesEvent(t *testing.T) {
	event := orderCreatedEvent(t)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected processed batch")
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("published = %v", repo.published)
	}
	if pub.lastMsg == nil {
		t.Fatal("message not published")
	}
	attrs := pub.lastMsg.Attributes
	if attrs["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("event_type attribute = %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("aggregate_id attribute = %q", attrs["aggregate_id"])
	}
}

func TestProcessBatchEmptyIsIdle(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakePublisher{})
	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatal("empty batch must report idle")
	}
}

func TestProcessBatchUnknownEventIsTerminal(t *testing.T) {
	event := orderCreatedEvent(t)
	event.EventType = "order.shipped"
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %v", repo.terminal)
	}
	if pub.attempts != 0 {
		t.Fatal("undecodable rows must not reach the broker")
	}
}

func TestProcessBatchTransientFailureMarksFailed(t *testing.T) {
	event := orderCreatedEvent(t)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{err: errors.New("deadline exceeded")}
	svc := newTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.failed) != 1 || repo.failed[0] != event.ID {
		t.Fatalf("failed = %v", repo.failed)
	}
	if len(repo.terminal) != 0 {
		t.Fatal("transient failures below the cap must stay retryable")
	}
	if pub.attempts < 2 {
		t.Fatalf("expected in-process retries, attempts = %d", pub.attempts)
	}
}

func TestProcessBatchNonRetryablePublishIsTerminal(t *testing.T) {
	event := orderCreatedEvent(t)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{err: registry.NewNonRetryableError(errors.New("topic deleted"))}
	svc := newTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got failed=%v terminal=%v", repo.failed, repo.terminal)
	}
	if pub.attempts != 1 {
		t.Fatalf("non-retryable errors must not be retried, attempts = %d", pub.attempts)
	}
}

func TestProcessBatchExhaustedAttemptsAreTerminal(t *testing.T) {
	event := orderCreatedEvent(t)
	event.AttemptCount = defaultMaxAttempts - 1
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	svc := newTestService(t, repo, &fakePublisher{err: errors.New("deadline exceeded")})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 || len(repo.failed) != 0 {
		t.Fatalf("expected terminal at the attempt cap, failed=%v terminal=%v", repo.failed, repo.terminal)
	}
}

func TestRunFailsFastOnPingError(t *testing.T) {
	reg, err := registry.NewEventRegistry(config.PubSubConfig{NotificationTopic: "fl-notifications"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     testLogger(),
		Repository: &fakeRepo{},
		PubSub:     &fakePubSub{pingErr: errors.New("unreachable")},
		Registry:   reg,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected ping failure to abort the run")
	}
}

func TestNextBackoffDoublesUpToMax(t *testing.T) {
	base := 500 * time.Millisecond
	current := nextBackoff(0, base, maxBackoff)
	if current != time.Second {
		t.Fatalf("first backoff = %v", current)
	}
	for i := 0; i < 10; i++ {
		current = nextBackoff(current, base, maxBackoff)
	}
	if current != maxBackoff {
		t.Fatalf("backoff must cap at %v, got %v", maxBackoff, current)
	}
}

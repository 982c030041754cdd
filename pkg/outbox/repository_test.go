package outbox

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database keeps every pooled connection on the same
	// store while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func insertEvent(t *testing.T, db *gorm.DB, created time.Time, attempts int, published *time.Time) models.OutboxEvent {
	t.Helper()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		CreatedAt:     created,
		PublishedAt:   published,
		AttemptCount:  attempts,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

func TestFetchUnpublishedOrdersAndFilters(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	second := insertEvent(t, db, now, 0, nil)
	first := insertEvent(t, db, now.Add(-time.Minute), 2, nil)
	insertEvent(t, db, now.Add(-2*time.Minute), 10, nil)
	publishedAt := now.Add(-time.Hour)
	insertEvent(t, db, now.Add(-3*time.Minute), 0, &publishedAt)

	rows, err := repo.FetchUnpublished(50, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	limited, err := repo.FetchUnpublished(1, 10)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestMarkPublishedRemovesFromBacklog(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := insertEvent(t, db, time.Now().UTC(), 0, nil)
	require.NoError(t, repo.MarkPublished(event.ID))

	rows, err := repo.FetchUnpublished(50, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := insertEvent(t, db, time.Now().UTC(), 0, nil)
	require.NoError(t, repo.MarkFailed(event.ID, errors.New("broker timeout")))
	require.NoError(t, repo.MarkFailed(event.ID, errors.New("broker timeout")))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "broker timeout", *row.LastError)
}

func TestMarkTerminalExcludesRowPermanently(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := insertEvent(t, db, time.Now().UTC(), 3, nil)
	require.NoError(t, repo.MarkTerminal(event.ID, errors.New("undecodable payload"), 10))

	rows, err := repo.FetchUnpublished(50, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 10, row.AttemptCount)
	assert.Nil(t, row.PublishedAt)
}

func TestDeletePublishedBefore(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	oldPublish := now.Add(-30 * 24 * time.Hour)
	recentPublish := now.Add(-time.Hour)
	insertEvent(t, db, now.Add(-31*24*time.Hour), 0, &oldPublish)
	kept := insertEvent(t, db, now.Add(-2*time.Hour), 0, &recentPublish)
	pending := insertEvent(t, db, now.Add(-40*24*time.Hour), 0, nil)

	deleted, err := repo.DeletePublishedBefore(now.Add(-14 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := map[uuid.UUID]bool{remaining[0].ID: true, remaining[1].ID: true}
	assert.True(t, ids[kept.ID], "recently published row must survive")
	assert.True(t, ids[pending.ID], "unpublished rows are never pruned")
}

func TestInsertRequiresTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	err := repo.Insert(nil, models.OutboxEvent{})
	require.Error(t, err)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.Insert(tx, models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{"version":1}`),
		})
	}))

	exists := false
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		exists, err = repo.ExistsTx(tx, enums.EventOrderPaid, enums.AggregateOrder, uuid.New())
		return err
	}))
	assert.False(t, exists)
}

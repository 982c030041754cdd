package notifications

import (
	"context"
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

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	notifications := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  payload TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	subscriptions := `
CREATE TABLE IF NOT EXISTS push_subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  endpoint TEXT NOT NULL,
  p256dh TEXT NOT NULL,
  auth TEXT NOT NULL,
  user_agent TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, endpoint)
);`
	preferences := `
CREATE TABLE IF NOT EXISTS notification_preferences (
  user_id TEXT PRIMARY KEY,
  push_enabled INTEGER NOT NULL DEFAULT 1,
  whatsapp_enabled INTEGER NOT NULL DEFAULT 1,
  email_enabled INTEGER NOT NULL DEFAULT 1,
  order_updates INTEGER NOT NULL DEFAULT 1,
  marketing INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(notifications).Error)
	require.NoError(t, db.Exec(subscriptions).Error)
	require.NoError(t, db.Exec(preferences).Error)
	return db
}

func createSubscription(t *testing.T, repo Repository, userID uuid.UUID, endpoint string) *models.PushSubscription {
	t.Helper()

	sub := &models.PushSubscription{
		ID:       uuid.New(),
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   "p256dh-key",
		Auth:     "auth-secret",
		IsActive: true,
	}
	require.NoError(t, repo.UpsertSubscription(context.Background(), sub))
	return sub
}

func TestRepositoryUpsertSubscriptionRotatesKeys(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	createSubscription(t, repo, userID, "https://push.example/endpoint")

	rotated := &models.PushSubscription{
		ID:       uuid.New(),
		UserID:   userID,
		Endpoint: "https://push.example/endpoint",
		P256dh:   "new-p256dh",
		Auth:     "new-auth",
		IsActive: true,
	}
	require.NoError(t, repo.UpsertSubscription(context.Background(), rotated))

	subs, err := repo.ActiveSubscriptions(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "new-p256dh", subs[0].P256dh)
	assert.Equal(t, "new-auth", subs[0].Auth)
}

func TestRepositoryUpsertReactivatesDeadEndpoint(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	sub := createSubscription(t, repo, userID, "https://push.example/endpoint")
	require.NoError(t, repo.DeactivateSubscriptionByID(context.Background(), sub.ID))

	subs, err := repo.ActiveSubscriptions(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	createSubscription(t, repo, userID, "https://push.example/endpoint")
	subs, err = repo.ActiveSubscriptions(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestRepositoryDeactivateScopes(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	other := uuid.New()

	createSubscription(t, repo, userID, "https://push.example/a")
	createSubscription(t, repo, userID, "https://push.example/b")
	createSubscription(t, repo, other, "https://push.example/c")

	affected, err := repo.DeactivateSubscription(context.Background(), userID, "https://push.example/a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.DeactivateAllSubscriptions(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	subs, err := repo.ActiveSubscriptions(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, subs, 1, "other users' subscriptions must be untouched")
}

func TestRepositoryDeactivateSubscriptionsInactiveSince(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	stale := createSubscription(t, repo, userID, "https://push.example/stale")
	createSubscription(t, repo, userID, "https://push.example/fresh")

	past := time.Now().UTC().Add(-120 * 24 * time.Hour)
	require.NoError(t, db.Model(&models.PushSubscription{}).
		Where("id = ?", stale.ID).
		UpdateColumn("updated_at", past).Error)

	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	affected, err := repo.DeactivateSubscriptionsInactiveSince(context.Background(), nil, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	subs, err := repo.ActiveSubscriptions(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example/fresh", subs[0].Endpoint)
}

func TestRepositoryNotificationQueries(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	now := time.Now().UTC()
	readAt := now.Add(-time.Hour)
	rows := []models.Notification{
		{ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeOrderCreated, Title: "a", Message: "m", CreatedAt: now},
		{ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeSystem, Title: "b", Message: "m", ReadAt: &readAt, CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeSystem, Title: "c", Message: "m", CreatedAt: now.Add(-60 * 24 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, repo.CreateNotification(context.Background(), &rows[i]))
	}

	recent, err := repo.ListNotificationsSince(context.Background(), userID, now.Add(-30*24*time.Hour), 50)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].Title)

	unread, err := repo.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	deleted, err := repo.DeleteNotificationsBefore(context.Background(), nil, now.Add(-45*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRepositoryUpsertPreferences(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	_, err := repo.GetPreferences(context.Background(), userID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.UpsertPreferences(context.Background(), userID, map[string]any{
		"marketing": true,
	}))
	prefs, err := repo.GetPreferences(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, prefs.Marketing)
	assert.True(t, prefs.PushEnabled, "untouched toggles keep their defaults")

	require.NoError(t, repo.UpsertPreferences(context.Background(), userID, map[string]any{
		"push_enabled": false,
	}))
	prefs, err = repo.GetPreferences(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, prefs.PushEnabled)
	assert.True(t, prefs.Marketing, "unrelated toggles survive later updates")
}

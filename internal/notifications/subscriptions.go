package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/internal/audit"
	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/db/models"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

// preferenceColumns whitelists the boolean preference fields callers may
// update. Anything else in the request body is dropped.
var preferenceColumns = map[string]string{
	"push_enabled":     "push_enabled",
	"whatsapp_enabled": "whatsapp_enabled",
	"email_enabled":    "email_enabled",
	"order_updates":    "order_updates",
	"marketing":        "marketing",
}

// SubscribeInput registers one browser push endpoint for a user.
type SubscribeInput struct {
	UserID    uuid.UUID
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
}

// UnsubscribeInput deactivates one endpoint, or all of them when Endpoint is
// empty and All is set.
type UnsubscribeInput struct {
	UserID   uuid.UUID
	Endpoint string
	All      bool
}

// Overview aggregates a user's subscription state for the get action.
type Overview struct {
	Subscriptions []models.PushSubscription      `json:"subscriptions"`
	Preferences   *models.NotificationPreference `json:"preferences"`
	Recent        []models.Notification          `json:"recent_notifications"`
	UnreadCount   int64                          `json:"unread_count"`
	ActiveCount   int                            `json:"active_count"`
}

// CleanupResult reports how many rows each retention rule touched.
type CleanupResult struct {
	SubscriptionsDeactivated int64 `json:"subscriptions_deactivated"`
	NotificationsDeleted     int64 `json:"notifications_deleted"`
}

// Subscriptions manages push subscription registration, channel preferences
// and age-based retention.
type Subscriptions interface {
	Subscribe(ctx context.Context, input SubscribeInput) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context, input UnsubscribeInput) (int64, error)
	Get(ctx context.Context, userID uuid.UUID) (*Overview, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, updates map[string]bool) (*models.NotificationPreference, error)
	Cleanup(ctx context.Context, userID *uuid.UUID) (*CleanupResult, error)
}

type subscriptions struct {
	repo      Repository
	audit     audit.Recorder
	logg      *logger.Logger
	retention config.RetentionConfig
	now       func() time.Time
}

// SubscriptionsParams wires the subscription manager dependencies.
type SubscriptionsParams struct {
	Repo      Repository
	Audit     audit.Recorder
	Logger    *logger.Logger
	Retention config.RetentionConfig
	Now       func() time.Time
}

// NewSubscriptions builds the subscription manager.
func NewSubscriptions(params SubscriptionsParams) (Subscriptions, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Audit == nil {
		params.Audit = audit.Noop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptions{
		repo:      params.Repo,
		audit:     params.Audit,
		logg:      params.Logger,
		retention: params.Retention,
		now:       now,
	}, nil
}

func (s *subscriptions) Subscribe(ctx context.Context, input SubscribeInput) (*models.PushSubscription, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(input.Endpoint) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endpoint required")
	}
	if input.P256dh == "" || input.Auth == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription keys required")
	}

	row := &models.PushSubscription{
		UserID:   input.UserID,
		Endpoint: strings.TrimSpace(input.Endpoint),
		P256dh:   input.P256dh,
		Auth:     input.Auth,
		IsActive: true,
	}
	if ua := strings.TrimSpace(input.UserAgent); ua != "" {
		row.UserAgent = &ua
	}

	if err := s.repo.UpsertSubscription(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save subscription")
	}

	s.logg.Info(s.logg.WithUserID(ctx, input.UserID.String()), "push subscription registered")
	return row, nil
}

func (s *subscriptions) Unsubscribe(ctx context.Context, input UnsubscribeInput) (int64, error) {
	if input.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.All && strings.TrimSpace(input.Endpoint) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "endpoint required unless unsubscribing all")
	}

	var (
		affected int64
		err      error
	)
	if input.All {
		affected, err = s.repo.DeactivateAllSubscriptions(ctx, input.UserID)
	} else {
		affected, err = s.repo.DeactivateSubscription(ctx, input.UserID, strings.TrimSpace(input.Endpoint))
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate subscription")
	}

	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, input.UserID.String()), map[string]any{
		"all":      input.All,
		"affected": affected,
	})
	s.logg.Info(logCtx, "push subscription deactivated")
	return affected, nil
}

func (s *subscriptions) Get(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	subs, err := s.repo.ActiveSubscriptions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
	}

	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preferences")
	}
	if prefs == nil {
		prefs = defaultPreferences(userID)
	}

	since := s.now().UTC().AddDate(0, 0, -30)
	recent, err := s.repo.ListNotificationsSince(ctx, userID, since, 50)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notifications")
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread")
	}

	return &Overview{
		Subscriptions: subs,
		Preferences:   prefs,
		Recent:        recent,
		UnreadCount:   unread,
		ActiveCount:   len(subs),
	}, nil
}

// UpdatePreferences applies whitelisted boolean toggles. Disabling push also
// deactivates every registered push subscription so stale endpoints don't
// keep receiving sends.
func (s *subscriptions) UpdatePreferences(ctx context.Context, userID uuid.UUID, updates map[string]bool) (*models.NotificationPreference, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	fields := make(map[string]any, len(updates))
	for key, value := range updates {
		column, ok := preferenceColumns[key]
		if !ok {
			continue
		}
		fields[column] = value
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no valid preference fields provided")
	}

	if err := s.repo.UpsertPreferences(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save preferences")
	}

	if disabled, ok := fields["push_enabled"].(bool); ok && !disabled {
		if _, err := s.repo.DeactivateAllSubscriptions(ctx, userID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate subscriptions")
		}
	}

	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload preferences")
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "notification preferences updated")
	return prefs, nil
}

// Cleanup deactivates subscriptions untouched for the retention window and
// deletes old notification rows, scoped to one user or global.
func (s *subscriptions) Cleanup(ctx context.Context, userID *uuid.UUID) (*CleanupResult, error) {
	now := s.now().UTC()

	subCutoff := now.Add(-retentionWindow(s.retention.SubscriptionDays, defaultSubscriptionRetention))
	deactivated, err := s.repo.DeactivateSubscriptionsInactiveSince(ctx, userID, subCutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate stale subscriptions")
	}

	notifCutoff := now.Add(-retentionWindow(s.retention.NotificationDays, defaultNotificationRetention))
	deleted, err := s.repo.DeleteNotificationsBefore(ctx, userID, notifCutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete old notifications")
	}

	result := &CleanupResult{
		SubscriptionsDeactivated: deactivated,
		NotificationsDeleted:     deleted,
	}

	s.audit.Record(ctx, audit.Entry{
		Endpoint:   "notifications/cleanup",
		Response:   result,
		StatusCode: 200,
		UserID:     userID,
	})

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"subscriptions_deactivated": deactivated,
		"notifications_deleted":     deleted,
	})
	s.logg.Info(logCtx, "notification cleanup finished")
	return result, nil
}

func retentionWindow(days int, fallback time.Duration) time.Duration {
	if days <= 0 {
		return fallback
	}
	return time.Duration(days) * 24 * time.Hour
}

func defaultPreferences(userID uuid.UUID) *models.NotificationPreference {
	return &models.NotificationPreference{
		UserID:          userID,
		PushEnabled:     true,
		WhatsAppEnabled: true,
		EmailEnabled:    true,
		OrderUpdates:    true,
	}
}

package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/internal/notifications"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

type subscriptionCleaner interface {
	Cleanup(ctx context.Context, userID *uuid.UUID) (*notifications.CleanupResult, error)
}

// NotificationCleanupJobParams configure the retention job covering stale
// push subscriptions and old notification rows.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionCleaner
}

// NewNotificationCleanupJob builds the global notification retention job.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	return &notificationCleanupJob{
		logg: params.Logger,
		subs: params.Subscriptions,
	}, nil
}

type notificationCleanupJob struct {
	logg *logger.Logger
	subs subscriptionCleaner
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	result, err := j.subs.Cleanup(ctx, nil)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"subscriptions_deactivated": result.SubscriptionsDeactivated,
		"notifications_deleted":     result.NotificationsDeleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}

package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
)

// Repository exposes persistence for notifications, push subscriptions and
// per-user channel preferences.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListNotificationsSince(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotificationsBefore(ctx context.Context, userID *uuid.UUID, cutoff time.Time) (int64, error)

	UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error
	ActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error)
	DeactivateSubscription(ctx context.Context, userID uuid.UUID, endpoint string) (int64, error)
	DeactivateAllSubscriptions(ctx context.Context, userID uuid.UUID) (int64, error)
	DeactivateSubscriptionByID(ctx context.Context, id uuid.UUID) error
	DeactivateSubscriptionsInactiveSince(ctx context.Context, userID *uuid.UUID, cutoff time.Time) (int64, error)

	GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error)
	UpsertPreferences(ctx context.Context, userID uuid.UUID, fields map[string]any) error

	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) ListNotificationsSince(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return rows, query.Find(&rows).Error
}

func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("read_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) DeleteNotificationsBefore(ctx context.Context, userID *uuid.UUID, cutoff time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Where("created_at < ?", cutoff)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	result := query.Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// UpsertSubscription re-registers an endpoint the user already has, rotating
// its keys and reactivating it instead of erroring on the unique index.
func (r *repositoryImpl) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
			DoUpdates: clause.Assignments(map[string]any{
				"p256dh":     sub.P256dh,
				"auth":       sub.Auth,
				"user_agent": sub.UserAgent,
				"is_active":  true,
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(sub).Error
}

func (r *repositoryImpl) ActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	var rows []models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) DeactivateSubscription(ctx context.Context, userID uuid.UUID, endpoint string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("user_id = ?", userID).
		Where("endpoint = ?", endpoint).
		Where("is_active = ?", true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeactivateAllSubscriptions(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeactivateSubscriptionByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *repositoryImpl) DeactivateSubscriptionsInactiveSince(ctx context.Context, userID *uuid.UUID, cutoff time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("is_active = ?", true).
		Where("updated_at < ?", cutoff)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	result := query.Update("is_active", false)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error) {
	var prefs models.NotificationPreference
	if err := r.db.WithContext(ctx).First(&prefs, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *repositoryImpl) UpsertPreferences(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	row := models.NotificationPreference{UserID: userID}
	assignments := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		assignments[key] = value
	}
	assignments["updated_at"] = time.Now().UTC()
	applyPreferenceFields(&row, fields)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
}

// applyPreferenceFields maps column updates onto a fresh row so an insert
// lands with the requested values instead of the column defaults.
func applyPreferenceFields(row *models.NotificationPreference, fields map[string]any) {
	row.PushEnabled = true
	row.WhatsAppEnabled = true
	row.EmailEnabled = true
	row.OrderUpdates = true
	for key, value := range fields {
		enabled, ok := value.(bool)
		if !ok {
			continue
		}
		switch key {
		case "push_enabled":
			row.PushEnabled = enabled
		case "whatsapp_enabled":
			row.WhatsAppEnabled = enabled
		case "email_enabled":
			row.EmailEnabled = enabled
		case "order_updates":
			row.OrderUpdates = enabled
		case "marketing":
			row.Marketing = enabled
		}
	}
}

func (r *repositoryImpl) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription stores a browser push endpoint plus its encryption keys.
// Deactivated on permanent delivery failure, explicit unsubscribe, or by the
// age-based cleanup job.
type PushSubscription struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_push_subscriptions_user_endpoint"`
	Endpoint  string    `gorm:"column:endpoint;not null;uniqueIndex:idx_push_subscriptions_user_endpoint"`
	P256dh    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"column:auth;not null"`
	UserAgent *string   `gorm:"column:user_agent"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

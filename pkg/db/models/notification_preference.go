package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreference holds per-user delivery channel toggles. One row per
// user; absent rows mean all channels enabled.
type NotificationPreference struct {
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	PushEnabled     bool      `gorm:"column:push_enabled;not null;default:true"`
	WhatsAppEnabled bool      `gorm:"column:whatsapp_enabled;not null;default:true"`
	EmailEnabled    bool      `gorm:"column:email_enabled;not null;default:true"`
	OrderUpdates    bool      `gorm:"column:order_updates;not null;default:true"`
	Marketing       bool      `gorm:"column:marketing;not null;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

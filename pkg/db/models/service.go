package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is a purchasable growth package. Rows are seeded by migrations and
// treated as read-only by the request handlers.
type Service struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string          `gorm:"column:name;not null"`
	Description          *string         `gorm:"column:description"`
	PricePerUnit         decimal.Decimal `gorm:"column:price_per_unit;type:numeric(12,4);not null"`
	MinQuantity          int             `gorm:"column:min_quantity;not null;default:1"`
	MaxQuantity          int             `gorm:"column:max_quantity;not null"`
	DeliverySpeedPerHour int             `gorm:"column:delivery_speed_per_hour;not null;default:100"`
	IsActive             bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

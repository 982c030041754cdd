package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feedlift/feedlift-backend/pkg/enums"
)

// Order is a customer's request for a quantity of a growth service against a
// target profile or URL. Created at intake; mutated by the payment webhook,
// the status sync jobs, and manual admin action. Never hard-deleted.
type Order struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	ServiceID           uuid.UUID            `gorm:"column:service_id;type:uuid;not null"`
	Quantity            int                  `gorm:"column:quantity;not null"`
	TargetURL           string               `gorm:"column:target_url;not null"`
	TotalAmount         decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DiscountAmount      decimal.Decimal      `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	CouponCode          *string              `gorm:"column:coupon_code"`
	Status              enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentID           *string              `gorm:"column:payment_id;index"`
	PaymentStatus       *enums.PaymentStatus `gorm:"column:payment_status;type:payment_status"`
	PaymentMethod       *string              `gorm:"column:payment_method"`
	StartedAt           *time.Time           `gorm:"column:started_at"`
	EstimatedCompletion *time.Time           `gorm:"column:estimated_completion"`
	Service             *Service             `gorm:"foreignKey:ServiceID"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime;index"`
}

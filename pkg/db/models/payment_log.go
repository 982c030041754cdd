package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feedlift/feedlift-backend/pkg/enums"
)

// PaymentLog tracks one remote payment intent per order, keyed on the
// provider's payment id. Created at initiation, updated by the webhook.
type PaymentLog struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ProviderPaymentID string              `gorm:"column:provider_payment_id;not null;uniqueIndex"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status            enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaymentMethod     string              `gorm:"column:payment_method;not null;default:'pix'"`
	QRCode            *string             `gorm:"column:qr_code"`
	TicketURL         *string             `gorm:"column:ticket_url"`
	RawPayload        json.RawMessage     `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

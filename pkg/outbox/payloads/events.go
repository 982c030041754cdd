package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feedlift/feedlift-backend/pkg/enums"
)

// OrderCreatedEvent signals a freshly persisted order awaiting payment.
type OrderCreatedEvent struct {
	OrderID             uuid.UUID       `json:"order_id"`
	UserID              uuid.UUID       `json:"user_id"`
	ServiceName         string          `json:"service_name"`
	Quantity            int             `json:"quantity"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	EstimatedCompletion *time.Time      `json:"estimated_completion,omitempty"`
}

// PaymentInitiatedEvent is emitted once a remote payment intent exists.
type PaymentInitiatedEvent struct {
	OrderID           uuid.UUID       `json:"order_id"`
	UserID            uuid.UUID       `json:"user_id"`
	ProviderPaymentID string          `json:"provider_payment_id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentMethod     string          `json:"payment_method"`
}

// OrderPaidEvent is emitted when the provider confirms payment approval and
// fulfillment begins.
type OrderPaidEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	UserID            uuid.UUID `json:"user_id"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	StartedAt         time.Time `json:"started_at"`
}

// PaymentFailedEvent is emitted when the provider reports rejection or
// cancellation.
type PaymentFailedEvent struct {
	OrderID           uuid.UUID           `json:"order_id"`
	UserID            uuid.UUID           `json:"user_id"`
	ProviderPaymentID string              `json:"provider_payment_id"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
}

// OrderProgressedEvent reports a fulfillment status transition observed by the
// sync jobs or the webhook.
type OrderProgressedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	OccurredAt time.Time         `json:"occurred_at"`
}

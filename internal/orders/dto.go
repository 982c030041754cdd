package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
)

// CreateInput captures an order intake request.
type CreateInput struct {
	UserID     uuid.UUID
	ServiceID  uuid.UUID
	Quantity   int
	TargetURL  string
	CouponCode string
}

// CreateResult is returned after a successful intake.
type CreateResult struct {
	OrderID             uuid.UUID         `json:"order_id"`
	Status              enums.OrderStatus `json:"status"`
	TotalAmount         decimal.Decimal   `json:"total_amount"`
	DiscountAmount      decimal.Decimal   `json:"discount_amount"`
	EstimatedCompletion time.Time         `json:"estimated_completion"`
}

// OrderView is the read model exposed to clients.
type OrderView struct {
	ID                  uuid.UUID            `json:"id"`
	ServiceID           uuid.UUID            `json:"service_id"`
	ServiceName         string               `json:"service_name,omitempty"`
	Quantity            int                  `json:"quantity"`
	TargetURL           string               `json:"target_url"`
	TotalAmount         decimal.Decimal      `json:"total_amount"`
	DiscountAmount      decimal.Decimal      `json:"discount_amount"`
	CouponCode          *string              `json:"coupon_code,omitempty"`
	Status              enums.OrderStatus    `json:"status"`
	PaymentID           *string              `json:"payment_id,omitempty"`
	PaymentStatus       *enums.PaymentStatus `json:"payment_status,omitempty"`
	StartedAt           *time.Time           `json:"started_at,omitempty"`
	EstimatedCompletion *time.Time           `json:"estimated_completion,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

func newOrderRow(input CreateInput, svc *models.Service, pricing pricingResult, eta time.Time) *models.Order {
	return &models.Order{
		UserID:              input.UserID,
		ServiceID:           svc.ID,
		Quantity:            input.Quantity,
		TargetURL:           input.TargetURL,
		TotalAmount:         pricing.Total,
		DiscountAmount:      pricing.Discount,
		CouponCode:          pricing.Coupon,
		Status:              enums.OrderStatusPending,
		EstimatedCompletion: &eta,
	}
}

func toOrderView(order models.Order) OrderView {
	view := OrderView{
		ID:                  order.ID,
		ServiceID:           order.ServiceID,
		Quantity:            order.Quantity,
		TargetURL:           order.TargetURL,
		TotalAmount:         order.TotalAmount,
		DiscountAmount:      order.DiscountAmount,
		CouponCode:          order.CouponCode,
		Status:              order.Status,
		PaymentID:           order.PaymentID,
		PaymentStatus:       order.PaymentStatus,
		StartedAt:           order.StartedAt,
		EstimatedCompletion: order.EstimatedCompletion,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
	if order.Service != nil {
		view.ServiceName = order.Service.Name
	}
	return view
}

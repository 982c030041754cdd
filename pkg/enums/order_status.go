package enums

import "fmt"

// OrderStatus tracks the lifecycle of a growth order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusPendingPayment    OrderStatus = "pending_payment"
	OrderStatusProcessingPayment OrderStatus = "processing_payment"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusPaymentFailed     OrderStatus = "payment_failed"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusFailed            OrderStatus = "failed"
	OrderStatusCancelled         OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPendingPayment,
	OrderStatusProcessingPayment,
	OrderStatusPaid,
	OrderStatusPaymentFailed,
	OrderStatusProcessing,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusFailed,
	OrderStatusCancelled,
}

// orderTransitions is the single allowed-transition table for order statuses.
// Every status mutation in the codebase goes through CanTransitionTo.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:           {OrderStatusPendingPayment, OrderStatusProcessingPayment, OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusPendingPayment:    {OrderStatusProcessingPayment, OrderStatusPaid, OrderStatusPaymentFailed, OrderStatusCancelled},
	OrderStatusProcessingPayment: {OrderStatusPaid, OrderStatusPendingPayment, OrderStatusPaymentFailed, OrderStatusCancelled},
	OrderStatusPaid:              {OrderStatusProcessing},
	OrderStatusPaymentFailed:     {OrderStatusPendingPayment, OrderStatusProcessingPayment, OrderStatusCancelled},
	OrderStatusProcessing:        {OrderStatusInProgress, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusInProgress:        {OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusCompleted:         {},
	OrderStatusFailed:            {},
	OrderStatusCancelled:         {},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether moving from s to target is allowed.
// Self-transitions are permitted so idempotent updates stay cheap.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s == target {
		return true
	}
	for _, candidate := range orderTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

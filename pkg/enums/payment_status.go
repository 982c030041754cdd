package enums

// PaymentStatus mirrors the provider-reported payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusInProcess  PaymentStatus = "in_process"
	PaymentStatusApproved   PaymentStatus = "approved"
	PaymentStatusRejected   PaymentStatus = "rejected"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusChargeback PaymentStatus = "charged_back"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusInProcess,
	PaymentStatusApproved,
	PaymentStatusRejected,
	PaymentStatusCancelled,
	PaymentStatusRefunded,
	PaymentStatusChargeback,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus normalizes raw provider input into a PaymentStatus.
// Unknown provider statuses map to pending rather than failing: the webhook
// contract treats anything unrecognized as "not yet approved".
func ParsePaymentStatus(value string) PaymentStatus {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate
		}
	}
	return PaymentStatusPending
}

// OrderStatusFor maps a provider payment status onto the order lifecycle.
func (p PaymentStatus) OrderStatusFor() OrderStatus {
	switch p {
	case PaymentStatusApproved:
		return OrderStatusPaid
	case PaymentStatusPending:
		return OrderStatusPendingPayment
	case PaymentStatusInProcess:
		return OrderStatusProcessingPayment
	case PaymentStatusRejected, PaymentStatusCancelled:
		return OrderStatusPaymentFailed
	default:
		return OrderStatusPendingPayment
	}
}

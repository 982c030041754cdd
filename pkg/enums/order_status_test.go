package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusPendingPayment, true},
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusInProgress, false},
		{OrderStatusPending, OrderStatusPaid, false},
		{OrderStatusPendingPayment, OrderStatusPaid, true},
		{OrderStatusPendingPayment, OrderStatusProcessing, false},
		{OrderStatusProcessingPayment, OrderStatusPendingPayment, true},
		{OrderStatusProcessingPayment, OrderStatusPaid, true},
		{OrderStatusPaid, OrderStatusProcessing, true},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusPaymentFailed, OrderStatusPendingPayment, true},
		{OrderStatusPaymentFailed, OrderStatusPaid, false},
		{OrderStatusProcessing, OrderStatusInProgress, true},
		{OrderStatusProcessing, OrderStatusCompleted, true},
		{OrderStatusInProgress, OrderStatusCompleted, true},
		{OrderStatusInProgress, OrderStatusProcessing, false},
		{OrderStatusCompleted, OrderStatusProcessing, false},
		{OrderStatusFailed, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderStatusSelfTransitionsAllowed(t *testing.T) {
	for _, status := range validOrderStatuses {
		if !status.CanTransitionTo(status) {
			t.Errorf("%s: self-transition must be allowed", status)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusCompleted: true,
		OrderStatusFailed:    true,
		OrderStatusCancelled: true,
	}
	for _, status := range validOrderStatuses {
		if got := status.IsTerminal(); got != terminal[status] {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, terminal[status])
		}
	}
	if OrderStatus("bogus").IsTerminal() {
		t.Error("unknown status must not be terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("in_progress")
	if err != nil || status != OrderStatusInProgress {
		t.Fatalf("ParseOrderStatus(in_progress) = %v, %v", status, err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("unknown status must error")
	}
}

func TestPaymentStatusOrderMapping(t *testing.T) {
	cases := []struct {
		payment PaymentStatus
		want    OrderStatus
	}{
		{PaymentStatusApproved, OrderStatusPaid},
		{PaymentStatusPending, OrderStatusPendingPayment},
		{PaymentStatusInProcess, OrderStatusProcessingPayment},
		{PaymentStatusRejected, OrderStatusPaymentFailed},
		{PaymentStatusCancelled, OrderStatusPaymentFailed},
		{PaymentStatusRefunded, OrderStatusPendingPayment},
	}
	for _, tc := range cases {
		if got := tc.payment.OrderStatusFor(); got != tc.want {
			t.Errorf("%s.OrderStatusFor() = %s, want %s", tc.payment, got, tc.want)
		}
	}
}

func TestParsePaymentStatusUnknownDefaultsToPending(t *testing.T) {
	if got := ParsePaymentStatus("authorized"); got != PaymentStatusPending {
		t.Fatalf("ParsePaymentStatus(authorized) = %s, want pending", got)
	}
	if got := ParsePaymentStatus("approved"); got != PaymentStatusApproved {
		t.Fatalf("ParsePaymentStatus(approved) = %s", got)
	}
}

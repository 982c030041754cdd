package enums

// OutboxEventType names a domain event emitted via the transactional outbox.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order.created"
	EventOrderPaid        OutboxEventType = "order.paid"
	EventOrderProgressed  OutboxEventType = "order.progressed"
	EventPaymentInitiated OutboxEventType = "payment.initiated"
	EventPaymentFailed    OutboxEventType = "payment.failed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// String implements fmt.Stringer.
func (a OutboxAggregateType) String() string {
	return string(a)
}

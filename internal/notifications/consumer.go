package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/pkg/enums"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/outbox"
	"github.com/feedlift/feedlift-backend/pkg/outbox/idempotency"
	"github.com/feedlift/feedlift-backend/pkg/outbox/payloads"
)

const fanoutConsumer = "notification-fanout"

// statusLabels translate internal statuses into customer-facing wording.
var statusLabels = map[enums.OrderStatus]string{
	enums.OrderStatusPending:           "aguardando",
	enums.OrderStatusPendingPayment:    "aguardando pagamento",
	enums.OrderStatusProcessingPayment: "processando pagamento",
	enums.OrderStatusPaid:              "pago",
	enums.OrderStatusPaymentFailed:     "pagamento recusado",
	enums.OrderStatusProcessing:        "em processamento",
	enums.OrderStatusInProgress:        "em andamento",
	enums.OrderStatusCompleted:         "concluído",
	enums.OrderStatusFailed:            "falhou",
	enums.OrderStatusCancelled:         "cancelado",
}

// Consumer turns published domain events into customer notifications: an
// in-app row plus push, and WhatsApp for the order milestones.
type Consumer struct {
	dispatcher   Dispatcher
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification fan-out consumer.
func NewConsumer(dispatcher Dispatcher, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		dispatcher:   dispatcher,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType.String(),
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, fanoutConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification fan-out failed", err)
		_ = c.idempotency.Delete(ctx, fanoutConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderCreated:
		return c.handleOrderCreated(ctx, data)
	case enums.EventPaymentInitiated:
		return c.handlePaymentInitiated(ctx, data)
	case enums.EventOrderPaid:
		return c.handleOrderPaid(ctx, data)
	case enums.EventPaymentFailed:
		return c.handlePaymentFailed(ctx, data)
	case enums.EventOrderProgressed:
		return c.handleOrderProgressed(ctx, data)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) handleOrderCreated(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order created payload: %w", err)
	}

	message := fmt.Sprintf("Seu pedido de %d %s foi criado e aguarda pagamento.",
		payload.Quantity, payload.ServiceName)
	_, err := c.dispatcher.Dispatch(ctx, DispatchInput{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderCreated,
		Title:   "Pedido recebido",
		Message: message,
		Tag:     "order-" + payload.OrderID.String(),
		Payload: orderPayload(payload.OrderID),
	})
	if err != nil {
		return err
	}

	_, err = c.dispatcher.SendWhatsApp(ctx, payload.UserID,
		fmt.Sprintf("✅ Pedido recebido! %s Assim que o pagamento for confirmado, começamos a entrega.", message))
	return err
}

func (c *Consumer) handlePaymentInitiated(ctx context.Context, data json.RawMessage) error {
	var payload payloads.PaymentInitiatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse payment initiated payload: %w", err)
	}

	_, err := c.dispatcher.Dispatch(ctx, DispatchInput{
		UserID: payload.UserID,
		Type:   enums.NotificationTypePaymentUpdate,
		Title:  "Pagamento iniciado",
		Message: fmt.Sprintf("Aguardando a confirmação do pagamento de R$ %s via %s.",
			payload.Amount.StringFixed(2), payload.PaymentMethod),
		Tag:     "order-" + payload.OrderID.String(),
		Payload: orderPayload(payload.OrderID),
	})
	return err
}

func (c *Consumer) handleOrderPaid(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderPaidEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order paid payload: %w", err)
	}

	_, err := c.dispatcher.Dispatch(ctx, DispatchInput{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypePaymentUpdate,
		Title:   "Pagamento aprovado",
		Message: "Pagamento confirmado! Seu pedido entrou em processamento.",
		Tag:     "order-" + payload.OrderID.String(),
		Payload: orderPayload(payload.OrderID),
	})
	if err != nil {
		return err
	}

	_, err = c.dispatcher.SendWhatsApp(ctx, payload.UserID,
		"🎉 Pagamento aprovado! Seu pedido já está em processamento e em breve você verá os resultados.")
	return err
}

func (c *Consumer) handlePaymentFailed(ctx context.Context, data json.RawMessage) error {
	var payload payloads.PaymentFailedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse payment failed payload: %w", err)
	}

	_, err := c.dispatcher.Dispatch(ctx, DispatchInput{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypePaymentUpdate,
		Title:   "Pagamento não aprovado",
		Message: "Não foi possível confirmar o pagamento do seu pedido. Tente novamente.",
		Tag:     "order-" + payload.OrderID.String(),
		Payload: orderPayload(payload.OrderID),
	})
	return err
}

func (c *Consumer) handleOrderProgressed(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderProgressedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order progressed payload: %w", err)
	}

	label := statusLabels[payload.ToStatus]
	if label == "" {
		label = payload.ToStatus.String()
	}

	_, err := c.dispatcher.Dispatch(ctx, DispatchInput{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderProgress,
		Title:   "Pedido atualizado",
		Message: fmt.Sprintf("Seu pedido agora está %s.", label),
		Tag:     "order-" + payload.OrderID.String(),
		Payload: orderPayload(payload.OrderID),
	})
	if err != nil {
		return err
	}

	if payload.ToStatus == enums.OrderStatusCompleted {
		_, err = c.dispatcher.SendWhatsApp(ctx, payload.UserID,
			"🚀 Pedido concluído! Obrigado por comprar com a gente.")
	}
	return err
}

func orderPayload(orderID uuid.UUID) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"order_id": orderID.String()})
	return raw
}

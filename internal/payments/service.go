package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/internal/orders"
	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/mercadopago"
	"github.com/feedlift/feedlift-backend/pkg/outbox"
	"github.com/feedlift/feedlift-backend/pkg/outbox/payloads"
)

// webhookConsumer scopes the replay guard keys.
const webhookConsumer = "mp-webhook"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentProvider interface {
	CreatePayment(ctx context.Context, params mercadopago.PaymentCreateParams) (*mercadopago.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type replayGuard interface {
	CheckAndMarkScoped(ctx context.Context, consumer, id string) (bool, error)
	DeleteScoped(ctx context.Context, consumer, id string) error
}

// Service defines payment initiation and webhook processing.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	ProcessWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error)
}

// InitiateInput carries a payment creation request for an existing order.
type InitiateInput struct {
	OrderID       uuid.UUID
	UserID        uuid.UUID
	Description   string
	PaymentMethod string
}

// InitiateResult returns the provider payment linkage.
type InitiateResult struct {
	PaymentID string              `json:"payment_id"`
	Status    enums.PaymentStatus `json:"status"`
	QRCode    string              `json:"qr_code,omitempty"`
	TicketURL string              `json:"ticket_url,omitempty"`
}

// WebhookInput is the provider callback body, already signature-verified.
type WebhookInput struct {
	Type   string
	DataID string
}

// WebhookResult reports what the webhook handler did.
type WebhookResult struct {
	Processed   bool              `json:"processed"`
	Replayed    bool              `json:"replayed"`
	OrderStatus enums.OrderStatus `json:"order_status,omitempty"`
}

type service struct {
	repo     Repository
	orders   orders.Repository
	tx       txRunner
	outbox   outboxPublisher
	provider paymentProvider
	guard    replayGuard
	logg     *logger.Logger
	notify   string
	now      func() time.Time
}

// ServiceParams wires the payment service dependencies.
type ServiceParams struct {
	Repo            Repository
	Orders          orders.Repository
	Tx              txRunner
	Outbox          outboxPublisher
	Provider        paymentProvider
	Guard           replayGuard
	Logger          *logger.Logger
	NotificationURL string
	Now             func() time.Time
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("replay guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		tx:       params.Tx,
		outbox:   params.Outbox,
		provider: params.Provider,
		guard:    params.Guard,
		logg:     params.Logger,
		notify:   params.NotificationURL,
		now:      now,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusPendingPayment) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %s cannot start payment", order.Status))
	}

	user, err := s.orders.FindUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	method := strings.TrimSpace(input.PaymentMethod)
	if method == "" {
		method = "pix"
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fmt.Sprintf("Pedido %s", order.ID)
	}

	firstName, lastName := splitName(user.FullName)
	payment, err := s.provider.CreatePayment(ctx, mercadopago.PaymentCreateParams{
		TransactionAmount: order.TotalAmount,
		Description:       description,
		PaymentMethodID:   method,
		ExternalReference: order.ID.String(),
		NotificationURL:   s.notify,
		PayerEmail:        user.Email,
		PayerFirstName:    firstName,
		PayerLastName:     lastName,
		IdempotencyKey:    fmt.Sprintf("%s-%d", order.ID, s.now().UnixNano()),
	})
	if err != nil {
		return nil, err
	}

	providerID := strconv.FormatInt(payment.ID, 10)
	status := enums.ParsePaymentStatus(payment.Status)
	qr := payment.QRCode()
	ticket := payment.TicketURL()

	// The remote payment already exists at this point. A local persistence
	// failure leaves it dangling with no compensating cancel. Known gap.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row := &models.PaymentLog{
			OrderID:           order.ID,
			UserID:            user.ID,
			ProviderPaymentID: providerID,
			Amount:            order.TotalAmount,
			Status:            status,
			PaymentMethod:     method,
			RawPayload:        payment.Raw,
		}
		if qr != "" {
			row.QRCode = &qr
		}
		if ticket != "" {
			row.TicketURL = &ticket
		}
		if err := repo.Create(ctx, row); err != nil {
			return err
		}

		orderFields := map[string]any{
			"payment_id":     providerID,
			"payment_status": status,
			"payment_method": method,
			"status":         status.OrderStatusFor(),
		}
		if err := s.orders.WithTx(tx).UpdateFields(ctx, order.ID, orderFields); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentInitiated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID},
			Version:       1,
			Data: payloads.PaymentInitiatedEvent{
				OrderID:           order.ID,
				UserID:            user.ID,
				ProviderPaymentID: providerID,
				Amount:            order.TotalAmount,
				PaymentMethod:     method,
			},
		})
	})
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"payment_id": providerID,
		})
		s.logg.Error(logCtx, "payment created remotely but local persist failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, "payment initiated")

	return &InitiateResult{
		PaymentID: providerID,
		Status:    status,
		QRCode:    qr,
		TicketURL: ticket,
	}, nil
}

// ProcessWebhook handles asynchronous payment-status callbacks. The webhook
// body is never trusted for amounts or statuses: the authoritative state is
// re-fetched from the provider by id. Replayed deliveries for the same
// payment id + status are suppressed via the redis guard.
func (s *service) ProcessWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error) {
	if input.Type != "payment" {
		// Acknowledge receipt so the provider stops retrying.
		return &WebhookResult{Processed: false}, nil
	}
	if strings.TrimSpace(input.DataID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing from webhook")
	}

	payment, err := s.provider.GetPayment(ctx, input.DataID)
	if err != nil {
		return nil, err
	}

	providerID := strconv.FormatInt(payment.ID, 10)
	status := enums.ParsePaymentStatus(payment.Status)

	guardKey := providerID + ":" + status.String()
	already, err := s.guard.CheckAndMarkScoped(ctx, webhookConsumer, guardKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook replay check")
	}
	if already {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id": providerID,
			"status":     status.String(),
		})
		s.logg.Info(logCtx, "webhook replay suppressed")
		return &WebhookResult{Processed: false, Replayed: true}, nil
	}

	order, err := s.orders.FindByPaymentID(ctx, providerID)
	if err != nil {
		// The delivery may be racing Initiate's commit, so the order row can
		// be briefly invisible. Clear the guard so the provider's retry is not
		// suppressed as a replay.
		_ = s.guard.DeleteScoped(ctx, webhookConsumer, guardKey)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by payment")
	}

	now := s.now().UTC()
	next := status.OrderStatusFor()
	approved := status == enums.PaymentStatusApproved
	if approved {
		// Approval starts fulfillment immediately: paid is passed through
		// and the order lands in processing with started_at set.
		next = enums.OrderStatusProcessing
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		logFields := map[string]any{
			"status":      status,
			"raw_payload": payment.Raw,
		}
		if _, err := repo.UpdateByProviderPaymentID(ctx, providerID, logFields); err != nil {
			return err
		}

		orderFields := map[string]any{
			"payment_status": status,
			"status":         next,
		}
		if approved && order.StartedAt == nil {
			orderFields["started_at"] = now
		}
		if err := s.orders.WithTx(tx).UpdateFields(ctx, order.ID, orderFields); err != nil {
			return err
		}

		switch {
		case approved:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.OrderPaidEvent{
					OrderID:           order.ID,
					UserID:            order.UserID,
					ProviderPaymentID: providerID,
					StartedAt:         now,
				},
			})
		case status == enums.PaymentStatusRejected || status == enums.PaymentStatusCancelled:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregatePayment,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.PaymentFailedEvent{
					OrderID:           order.ID,
					UserID:            order.UserID,
					ProviderPaymentID: providerID,
					PaymentStatus:     status,
				},
			})
		case order.Status != next:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderProgressed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.OrderProgressedEvent{
					OrderID:    order.ID,
					UserID:     order.UserID,
					FromStatus: order.Status,
					ToStatus:   next,
					OccurredAt: now,
				},
			})
		}
		return nil
	})
	if err != nil {
		// Let the provider retry the delivery; the guard key is already set,
		// so clear it to avoid suppressing the retry.
		_ = s.guard.DeleteScoped(ctx, webhookConsumer, guardKey)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply webhook update")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"payment_id": providerID,
		"status":     status.String(),
		"next":       next.String(),
	})
	s.logg.Info(logCtx, "payment webhook applied")

	return &WebhookResult{Processed: true, OrderStatus: next}, nil
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

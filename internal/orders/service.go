package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/outbox"
	"github.com/feedlift/feedlift-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order intake and read operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]OrderView, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ServiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}
	if strings.TrimSpace(input.TargetURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target url required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	svc, err := s.repo.FindService(ctx, input.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	if !svc.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service is not active")
	}
	if input.Quantity < svc.MinQuantity || input.Quantity > svc.MaxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity must be between %d and %d", svc.MinQuantity, svc.MaxQuantity)).
			WithDetails(map[string]int{"min": svc.MinQuantity, "max": svc.MaxQuantity})
	}

	now := s.now().UTC()
	pricing := s.price(ctx, svc, input, now)
	eta := now.Add(estimatedDuration(input.Quantity, svc.DeliverySpeedPerHour))

	row := newOrderRow(input, svc, pricing, eta)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, row); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:             row.ID,
				UserID:              row.UserID,
				ServiceName:         svc.Name,
				Quantity:            row.Quantity,
				TotalAmount:         row.TotalAmount,
				EstimatedCompletion: row.EstimatedCompletion,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	logCtx := s.logg.WithOrderID(ctx, row.ID.String())
	s.logg.Info(logCtx, "order created")

	return &CreateResult{
		OrderID:             row.ID,
		Status:              row.Status,
		TotalAmount:         row.TotalAmount,
		DiscountAmount:      row.DiscountAmount,
		EstimatedCompletion: *row.EstimatedCompletion,
	}, nil
}

type pricingResult struct {
	Total    decimal.Decimal
	Discount decimal.Decimal
	Coupon   *string
}

// price computes the order total and applies the coupon when its validity
// window covers now. Discounts are not clamped at zero: a large fixed coupon
// can drive the total negative. Observed storefront behavior, kept and
// logged instead of corrected.
func (s *service) price(ctx context.Context, svc *models.Service, input CreateInput, now time.Time) pricingResult {
	total := svc.PricePerUnit.Mul(decimal.NewFromInt(int64(input.Quantity)))
	result := pricingResult{Total: total, Discount: decimal.Zero}

	code := strings.TrimSpace(input.CouponCode)
	if code == "" {
		return result
	}

	coupon, err := s.repo.FindCoupon(ctx, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(ctx, "coupon lookup failed", err)
		}
		return result
	}
	if !coupon.ValidAt(now) {
		logCtx := s.logg.WithField(ctx, "coupon", code)
		s.logg.Info(logCtx, "coupon expired or inactive; skipping discount")
		return result
	}

	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		result.Discount = total.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
	case enums.DiscountTypeFixed:
		result.Discount = coupon.DiscountValue
	}
	result.Total = total.Sub(result.Discount)
	result.Coupon = &coupon.Code

	if result.Total.IsNegative() {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"coupon": code,
			"total":  result.Total.String(),
		})
		s.logg.Warn(logCtx, "discount exceeds order total; total is negative")
	}
	return result
}

// estimatedDuration returns ceil(quantity / speed) hours.
func estimatedDuration(quantity, speedPerHour int) time.Duration {
	if speedPerHour <= 0 {
		speedPerHour = 1
	}
	hours := (quantity + speedPerHour - 1) / speedPerHour
	return time.Duration(hours) * time.Hour
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := toOrderView(*order)
	return &view, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]OrderView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]OrderView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toOrderView(row))
	}
	return views, nil
}

package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/outbox"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubOrdersRepo struct {
	service *models.Service
	coupon  *models.Coupon
	order   *models.Order
	orders  []models.Order
	err     error

	created *models.Order
}

func (r *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	if r.err != nil {
		return r.err
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.created = order
	return nil
}

func (r *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.order, nil
}

func (r *stubOrdersRepo) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return r.FindByID(ctx, uuid.Nil)
}

func (r *stubOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	return r.orders, r.err
}

func (r *stubOrdersRepo) RecentByEmail(ctx context.Context, email string, limit int) ([]models.Order, error) {
	return r.orders, r.err
}

func (r *stubOrdersRepo) Update(ctx context.Context, order *models.Order) error { return r.err }

func (r *stubOrdersRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.err
}

func (r *stubOrdersRepo) TouchUpdatedAt(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.err
}

func (r *stubOrdersRepo) ListStale(ctx context.Context, statuses []enums.OrderStatus, cutoff time.Time, limit int) ([]models.Order, error) {
	return r.orders, r.err
}

func (r *stubOrdersRepo) FindService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	if r.service == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.service, nil
}

func (r *stubOrdersRepo) FindCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	if r.coupon == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.coupon, nil
}

func (r *stubOrdersRepo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubTxRunner struct {
	err error
}

func (t stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.err != nil {
		return t.err
	}
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (o *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if o.err != nil {
		return o.err
	}
	o.events = append(o.events, event)
	return nil
}

func baseService() *models.Service {
	return &models.Service{
		ID:                   uuid.New(),
		Name:                 "Seguidores Instagram",
		PricePerUnit:         decimal.RequireFromString("0.05"),
		MinQuantity:          100,
		MaxQuantity:          10000,
		DeliverySpeedPerHour: 500,
		IsActive:             true,
	}
}

func newTestService(t *testing.T, repo Repository, ob *stubOutbox) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Tx:     stubTxRunner{},
		Outbox: ob,
		Logger: testLogger(),
		Now:    func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Tx: stubTxRunner{}, Outbox: &stubOutbox{}, Logger: testLogger()})
	if err == nil {
		t.Fatal("expected error without repo")
	}
	_, err = NewService(ServiceParams{Repo: &stubOrdersRepo{}, Outbox: &stubOutbox{}, Logger: testLogger()})
	if err == nil {
		t.Fatal("expected error without tx runner")
	}
	_, err = NewService(ServiceParams{Repo: &stubOrdersRepo{}, Tx: stubTxRunner{}, Logger: testLogger()})
	if err == nil {
		t.Fatal("expected error without outbox")
	}
	_, err = NewService(ServiceParams{Repo: &stubOrdersRepo{}, Tx: stubTxRunner{}, Outbox: &stubOutbox{}})
	if err == nil {
		t.Fatal("expected error without logger")
	}
}

func TestCreateComputesTotalAndETA(t *testing.T) {
	repo := &stubOrdersRepo{service: baseService()}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob)

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:    uuid.New(),
		ServiceID: repo.service.ID,
		Quantity:  1000,
		TargetURL: "https://instagram.com/feedlift",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if !result.TotalAmount.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected total 50, got %s", result.TotalAmount)
	}
	if !result.DiscountAmount.IsZero() {
		t.Fatalf("expected zero discount, got %s", result.DiscountAmount)
	}
	if result.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", result.Status)
	}
	// 1000 at 500/hour is 2 hours.
	wantETA := testNow.Add(2 * time.Hour)
	if !result.EstimatedCompletion.Equal(wantETA) {
		t.Fatalf("expected eta %s, got %s", wantETA, result.EstimatedCompletion)
	}

	if len(ob.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(ob.events))
	}
	if ob.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected order.created event, got %s", ob.events[0].EventType)
	}
	if ob.events[0].AggregateID != result.OrderID {
		t.Fatal("outbox aggregate does not match created order")
	}
}

func TestCreateRoundsETAUp(t *testing.T) {
	repo := &stubOrdersRepo{service: baseService()}
	svc := newTestService(t, repo, &stubOutbox{})

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:    uuid.New(),
		ServiceID: repo.service.ID,
		Quantity:  501,
		TargetURL: "https://instagram.com/feedlift",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// 501 at 500/hour rounds up to 2 hours.
	wantETA := testNow.Add(2 * time.Hour)
	if !result.EstimatedCompletion.Equal(wantETA) {
		t.Fatalf("expected eta %s, got %s", wantETA, result.EstimatedCompletion)
	}
}

func TestCreateAppliesPercentageCoupon(t *testing.T) {
	repo := &stubOrdersRepo{
		service: baseService(),
		coupon: &models.Coupon{
			Code:          "PROMO10",
			DiscountType:  enums.DiscountTypePercentage,
			DiscountValue: decimal.RequireFromString("10"),
			ValidFrom:     testNow.Add(-time.Hour),
			ValidUntil:    testNow.Add(time.Hour),
			IsActive:      true,
		},
	}
	svc := newTestService(t, repo, &stubOutbox{})

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:     uuid.New(),
		ServiceID:  repo.service.ID,
		Quantity:   1000,
		TargetURL:  "https://instagram.com/feedlift",
		CouponCode: "PROMO10",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !result.DiscountAmount.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected discount 5, got %s", result.DiscountAmount)
	}
	if !result.TotalAmount.Equal(decimal.RequireFromString("45")) {
		t.Fatalf("expected total 45, got %s", result.TotalAmount)
	}
	if repo.created.CouponCode == nil || *repo.created.CouponCode != "PROMO10" {
		t.Fatal("expected coupon code persisted on the order")
	}
}

func TestCreateFixedCouponCanDriveTotalNegative(t *testing.T) {
	repo := &stubOrdersRepo{
		service: baseService(),
		coupon: &models.Coupon{
			Code:          "MEGA100",
			DiscountType:  enums.DiscountTypeFixed,
			DiscountValue: decimal.RequireFromString("100"),
			ValidFrom:     testNow.Add(-time.Hour),
			ValidUntil:    testNow.Add(time.Hour),
			IsActive:      true,
		},
	}
	svc := newTestService(t, repo, &stubOutbox{})

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:     uuid.New(),
		ServiceID:  repo.service.ID,
		Quantity:   1000,
		TargetURL:  "https://instagram.com/feedlift",
		CouponCode: "MEGA100",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !result.TotalAmount.Equal(decimal.RequireFromString("-50")) {
		t.Fatalf("expected total -50, got %s", result.TotalAmount)
	}
}

func TestCreateSkipsExpiredCoupon(t *testing.T) {
	repo := &stubOrdersRepo{
		service: baseService(),
		coupon: &models.Coupon{
			Code:          "OLD",
			DiscountType:  enums.DiscountTypePercentage,
			DiscountValue: decimal.RequireFromString("50"),
			ValidFrom:     testNow.Add(-48 * time.Hour),
			ValidUntil:    testNow.Add(-24 * time.Hour),
			IsActive:      true,
		},
	}
	svc := newTestService(t, repo, &stubOutbox{})

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:     uuid.New(),
		ServiceID:  repo.service.ID,
		Quantity:   1000,
		TargetURL:  "https://instagram.com/feedlift",
		CouponCode: "OLD",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !result.DiscountAmount.IsZero() {
		t.Fatalf("expected no discount for expired coupon, got %s", result.DiscountAmount)
	}
	if !result.TotalAmount.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected full total 50, got %s", result.TotalAmount)
	}
}

func TestCreateUnknownCouponIsIgnored(t *testing.T) {
	repo := &stubOrdersRepo{service: baseService()}
	svc := newTestService(t, repo, &stubOutbox{})

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:     uuid.New(),
		ServiceID:  repo.service.ID,
		Quantity:   1000,
		TargetURL:  "https://instagram.com/feedlift",
		CouponCode: "NOPE",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !result.DiscountAmount.IsZero() {
		t.Fatalf("expected no discount, got %s", result.DiscountAmount)
	}
}

func TestCreateRejectsQuantityOutOfRange(t *testing.T) {
	repo := &stubOrdersRepo{service: baseService()}
	svc := newTestService(t, repo, &stubOutbox{})

	for _, qty := range []int{99, 10001} {
		_, err := svc.Create(context.Background(), CreateInput{
			UserID:    uuid.New(),
			ServiceID: repo.service.ID,
			Quantity:  qty,
			TargetURL: "https://instagram.com/feedlift",
		})
		if err == nil {
			t.Fatalf("expected error for quantity %d", qty)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for quantity %d, got %v", qty, err)
		}
	}
}

func TestCreateRejectsInactiveService(t *testing.T) {
	inactive := baseService()
	inactive.IsActive = false
	repo := &stubOrdersRepo{service: inactive}
	svc := newTestService(t, repo, &stubOutbox{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:    uuid.New(),
		ServiceID: inactive.ID,
		Quantity:  1000,
		TargetURL: "https://instagram.com/feedlift",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for inactive service, got %v", err)
	}
}

func TestCreateServiceNotFound(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc := newTestService(t, repo, &stubOutbox{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:    uuid.New(),
		ServiceID: uuid.New(),
		Quantity:  1000,
		TargetURL: "https://instagram.com/feedlift",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreatePersistFailureIsDependencyError(t *testing.T) {
	repo := &stubOrdersRepo{service: baseService(), err: errors.New("boom")}
	svc := newTestService(t, repo, &stubOutbox{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:    uuid.New(),
		ServiceID: repo.service.ID,
		Quantity:  1000,
		TargetURL: "https://instagram.com/feedlift",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	owner := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{
		ID:     uuid.New(),
		UserID: owner,
		Status: enums.OrderStatusPending,
	}}
	svc := newTestService(t, repo, &stubOutbox{})

	if _, err := svc.Get(context.Background(), owner, repo.order.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}

	_, err := svc.Get(context.Background(), uuid.New(), repo.order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for other user, got %v", err)
	}
}

func TestListForUserRequiresUser(t *testing.T) {
	svc := newTestService(t, &stubOrdersRepo{}, &stubOutbox{})
	_, err := svc.ListForUser(context.Background(), uuid.Nil, 10)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/internal/audit"
	"github.com/feedlift/feedlift-backend/internal/orders"
	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/outbox"
	"github.com/feedlift/feedlift-backend/pkg/outbox/payloads"
)

// syncableStatuses are the statuses auto-sync polls the provider for.
var syncableStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusProcessing,
	enums.OrderStatusInProgress,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Result describes the outcome of syncing a single order.
type Result struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Changed    bool              `json:"changed"`
	Error      string            `json:"error,omitempty"`
}

// BatchResult summarizes one auto-sync run.
type BatchResult struct {
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// Service advances order fulfillment status, manually per order or in
// batches across stale orders.
type Service interface {
	SyncOrder(ctx context.Context, orderID uuid.UUID) (*Result, error)
	AutoSync(ctx context.Context, force bool) (*BatchResult, error)
}

type service struct {
	repo    orders.Repository
	checker StatusChecker
	tx      txRunner
	outbox  outboxPublisher
	audit   audit.Recorder
	logg    *logger.Logger
	cfg     config.SyncConfig
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// ServiceParams wires the sync service dependencies.
type ServiceParams struct {
	Repo    orders.Repository
	Checker StatusChecker
	Tx      txRunner
	Outbox  outboxPublisher
	Audit   audit.Recorder
	Logger  *logger.Logger
	Config  config.SyncConfig
	Now     func() time.Time
}

// NewService builds the sync service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Checker == nil {
		return nil, fmt.Errorf("status checker required")
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
	if params.Audit == nil {
		params.Audit = audit.Noop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		checker: params.Checker,
		tx:      params.Tx,
		outbox:  params.Outbox,
		audit:   params.Audit,
		logg:    params.Logger,
		cfg:     params.Config,
		now:     now,
		sleep:   sleepCtx,
	}, nil
}

func (s *service) SyncOrder(ctx context.Context, orderID uuid.UUID) (*Result, error) {
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
	return s.syncOne(ctx, *order)
}

// syncOne checks one order against the provider and applies the transition.
// An unchanged status only refreshes updated_at so the order drops out of the
// stale window.
func (s *service) syncOne(ctx context.Context, order models.Order) (*Result, error) {
	result := &Result{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   order.Status,
	}
	if order.Status.IsTerminal() {
		return result, nil
	}

	now := s.now().UTC()
	next, err := s.checker.CheckStatus(ctx, order, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check provider status")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())

	if next == order.Status {
		if err := s.repo.TouchUpdatedAt(ctx, order.ID, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch order")
		}
		return result, nil
	}

	if !order.Status.CanTransitionTo(next) {
		s.logg.Warn(s.logg.WithField(logCtx, "reported_status", next.String()),
			"provider reported a disallowed transition; keeping current status")
		if err := s.repo.TouchUpdatedAt(ctx, order.ID, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch order")
		}
		return result, nil
	}

	fields := map[string]any{"status": next, "updated_at": now}
	if next == enums.OrderStatusProcessing && order.StartedAt == nil {
		fields["started_at"] = now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, order.ID, fields); err != nil {
			return err
		}
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
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply status transition")
	}

	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"from_status": order.Status.String(),
		"to_status":   next.String(),
	}), "order status advanced")

	result.ToStatus = next
	result.Changed = true
	return result, nil
}

// AutoSync polls every stale fulfillment-track order once, strictly
// sequentially with a fixed delay between provider calls. One order's
// failure is recorded and the batch continues.
func (s *service) AutoSync(ctx context.Context, force bool) (*BatchResult, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.cfg.StaleAfter)
	if force {
		cutoff = now
	}

	stale, err := s.repo.ListStale(ctx, syncableStatuses, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}

	batch := &BatchResult{Checked: len(stale), Results: make([]Result, 0, len(stale))}
	for i, order := range stale {
		if i > 0 && s.cfg.InterOrderDelay > 0 {
			if err := s.sleep(ctx, s.cfg.InterOrderDelay); err != nil {
				return nil, err
			}
		}

		result, err := s.syncOne(ctx, order)
		if err != nil {
			batch.Failed++
			batch.Results = append(batch.Results, Result{
				OrderID:    order.ID,
				FromStatus: order.Status,
				ToStatus:   order.Status,
				Error:      err.Error(),
			})
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "order sync failed", err)
			continue
		}
		if result.Changed {
			batch.Updated++
		}
		batch.Results = append(batch.Results, *result)
	}

	s.audit.Record(ctx, audit.Entry{
		Endpoint:   "sync/auto",
		Request:    map[string]any{"force": force, "cutoff": cutoff},
		Response:   batch,
		StatusCode: 200,
	})

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"checked": batch.Checked,
		"updated": batch.Updated,
		"failed":  batch.Failed,
	})
	s.logg.Info(logCtx, "auto sync run finished")
	return batch, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
)

// Repository exposes persistence helpers for payment logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, log *models.PaymentLog) error
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.PaymentLog, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLog, error)
	UpdateByProviderPaymentID(ctx context.Context, providerPaymentID string, fields map[string]any) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payment log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, log *models.PaymentLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repositoryImpl) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*models.PaymentLog, error) {
	var row models.PaymentLog
	err := r.db.WithContext(ctx).
		First(&row, "provider_payment_id = ?", providerPaymentID).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentLog, error) {
	var rows []models.PaymentLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) UpdateByProviderPaymentID(ctx context.Context, providerPaymentID string, fields map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentLog{}).
		Where("provider_payment_id = ?", providerPaymentID).
		Updates(fields)
	return result.RowsAffected, result.Error
}

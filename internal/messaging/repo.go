package messaging

import (
	"context"

	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
)

// Repository persists the chat transcript.
type Repository interface {
	Insert(ctx context.Context, msg *models.WhatsAppMessage) error
	RecentByPhone(ctx context.Context, phone string, limit int) ([]models.WhatsAppMessage, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a messaging repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Insert(ctx context.Context, msg *models.WhatsAppMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repositoryImpl) RecentByPhone(ctx context.Context, phone string, limit int) ([]models.WhatsAppMessage, error) {
	var rows []models.WhatsAppMessage
	query := r.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return rows, query.Find(&rows).Error
}

package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

// Entry is one audit trail row before serialization.
type Entry struct {
	Endpoint   string
	Request    any
	Response   any
	StatusCode int
	UserID     *uuid.UUID
}

// Recorder appends audit rows. Failures are swallowed and logged; the audit
// trail is a secondary side effect and must never surface to callers.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

type recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewRecorder binds the audit recorder to the shared connection.
func NewRecorder(db *gorm.DB, logg *logger.Logger) Recorder {
	return &recorder{db: db, logg: logg}
}

func (r *recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.db == nil {
		return
	}
	row := models.APILog{
		Endpoint:   entry.Endpoint,
		StatusCode: entry.StatusCode,
		UserID:     entry.UserID,
	}
	if entry.Request != nil {
		if raw, err := json.Marshal(entry.Request); err == nil {
			row.Request = raw
		}
	}
	if entry.Response != nil {
		if raw, err := json.Marshal(entry.Response); err == nil {
			row.Response = raw
		}
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil && r.logg != nil {
		logCtx := r.logg.WithField(ctx, "endpoint", entry.Endpoint)
		r.logg.Error(logCtx, "audit log write failed", err)
	}
}

// Noop returns a recorder that drops every entry, for tests and tools.
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, Entry) {}

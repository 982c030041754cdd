package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// APILog is the append-only audit trail written by the handlers and jobs.
// Never read back by the application itself.
type APILog struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Endpoint   string          `gorm:"column:endpoint;not null;index"`
	Request    json.RawMessage `gorm:"column:request;type:jsonb"`
	Response   json.RawMessage `gorm:"column:response;type:jsonb"`
	StatusCode int             `gorm:"column:status_code;not null"`
	UserID     *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

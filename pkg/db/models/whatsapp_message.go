package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/feedlift/feedlift-backend/pkg/enums"
)

// WhatsAppMessage records an inbound or outbound chat message. Duplicate
// provider message ids are silently ignored on insert.
type WhatsAppMessage struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderMessageID string                 `gorm:"column:provider_message_id;not null;uniqueIndex"`
	PhoneNumber       string                 `gorm:"column:phone_number;not null"`
	SenderName        *string                `gorm:"column:sender_name"`
	Body              string                 `gorm:"column:body;type:text;not null"`
	Direction         enums.MessageDirection `gorm:"column:direction;type:message_direction;not null"`
	IsOrderInquiry    bool                   `gorm:"column:is_order_inquiry;not null;default:false"`
	IsSupportRequest  bool                   `gorm:"column:is_support_request;not null;default:false"`
	RawPayload        json.RawMessage        `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
}

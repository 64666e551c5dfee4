package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/pkg/enums"
)

// Notification is an in-app notification row. Delivery beyond this table
// (push, socket) happens downstream of the outbox and is best-effort.
type Notification struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID   uuid.UUID               `gorm:"column:recipient_id;type:uuid;not null"`
	RecipientKind enums.RecipientKind     `gorm:"column:recipient_kind;type:text;not null"`
	Event         enums.NotificationEvent `gorm:"column:event;type:text;not null"`
	Title         string                  `gorm:"column:title;not null"`
	Message       string                  `gorm:"column:message;not null"`
	BookingID     *uuid.UUID              `gorm:"column:booking_id;type:uuid"`
	Metadata      json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	ReadAt        *time.Time              `gorm:"column:read_at"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}

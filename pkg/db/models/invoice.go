package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice records a generated invoice reference for a fully paid booking.
// Rendering happens in an external service; failure to generate never rolls
// back the payment state.
type Invoice struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID     uuid.UUID `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	InvoiceNumber string    `gorm:"column:invoice_number;not null;uniqueIndex"`
	URL           string    `gorm:"column:url"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aquafindr/aquafindr-backend/pkg/enums"
)

// WalletTransaction is an immutable vendor earnings ledger row. A FAILED row
// keeps the original credit parameters so the retry sweep can re-attempt the
// exact same credit later. At most one SUCCESS row may exist per
// (vendor, booking, type) triple, enforced by a partial unique index.
type WalletTransaction struct {
	ID        uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID  uuid.UUID                     `gorm:"column:vendor_id;type:uuid;not null"`
	BookingID uuid.UUID                     `gorm:"column:booking_id;type:uuid;not null"`
	Type      enums.WalletTransactionType   `gorm:"column:type;type:text;not null"`
	Status    enums.WalletTransactionStatus `gorm:"column:status;type:text;not null"`
	Amount    decimal.Decimal               `gorm:"column:amount;type:numeric(12,4);not null"`
	Error     *string                       `gorm:"column:error"`
	Attempts  int                           `gorm:"column:attempts;not null;default:1"`
	Metadata  json.RawMessage               `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}

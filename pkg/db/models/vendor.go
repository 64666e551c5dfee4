package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

// Vendor is a surveyor profile. Rating, success ratio and experience drive
// the reassignment ranking; WalletBalance is maintained atomically by the
// wallet ledger and never written directly by other services.
type Vendor struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null"`

	DisplayName     string          `gorm:"column:display_name;not null"`
	Phone           string          `gorm:"column:phone"`
	AverageRating   float64         `gorm:"column:average_rating;not null;default:0"`
	SuccessRatio    float64         `gorm:"column:success_ratio;not null;default:0"`
	ExperienceYears int             `gorm:"column:experience_years;not null;default:0"`
	Location        *types.GeoPoint `gorm:"column:location;type:text"`

	Active   bool `gorm:"column:active;not null;default:true"`
	Approved bool `gorm:"column:approved;not null;default:false"`

	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,4);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SurveyService is a vendor's published offering. Equivalence for
// reassignment purposes is (name, category); price is the vendor's base fee
// before travel surcharge and tax.
type SurveyService struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`

	Name     string          `gorm:"column:name;not null"`
	Category string          `gorm:"column:category;not null"`
	Price    decimal.Decimal `gorm:"column:price;type:numeric(12,4);not null"`

	Active   bool `gorm:"column:active;not null;default:true"`
	Approved bool `gorm:"column:approved;not null;default:false"`

	Vendor *Vendor `gorm:"foreignKey:VendorID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

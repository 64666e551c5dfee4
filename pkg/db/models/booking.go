package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/aquafindr/aquafindr-backend/pkg/db/types"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

// Booking is the aggregate root for one survey engagement. The three status
// columns usually move together but diverge deliberately around the remaining
// payment: after the customer pays, UserStatus is PAYMENT_SUCCESS while
// VendorStatus stays REPORT_UPLOADED until an operator releases the second
// installment. All three are mutated only through the transition table in
// internal/bookings.
type Booking struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`
	VendorID   uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	ServiceID  uuid.UUID `gorm:"column:service_id;type:uuid;not null"`

	Status       enums.BookingStatus `gorm:"column:status;type:text;not null;default:'AWAITING_ADVANCE'"`
	VendorStatus enums.BookingStatus `gorm:"column:vendor_status;type:text;not null;default:'AWAITING_ADVANCE'"`
	UserStatus   enums.BookingStatus `gorm:"column:user_status;type:text;not null;default:'AWAITING_ADVANCE'"`

	ScheduledFor time.Time       `gorm:"column:scheduled_for;not null"`
	Address      string          `gorm:"column:address;not null"`
	Location     *types.GeoPoint `gorm:"column:location;type:text"`

	Payment              types.PaymentDetails        `gorm:"column:payment;type:jsonb;serializer:json"`
	Report               *types.SurveyReport         `gorm:"column:report;type:jsonb;serializer:json"`
	BorewellResult       *types.BorewellResult       `gorm:"column:borewell_result;type:jsonb;serializer:json"`
	TravelChargesRequest *types.TravelChargesRequest `gorm:"column:travel_charges_request;type:jsonb;serializer:json"`

	RejectedVendors dbtypes.UUIDArray `gorm:"column:rejected_vendors;type:uuid[]"`

	RejectionReason  *string `gorm:"column:rejection_reason"`
	CancellationNote *string `gorm:"column:cancellation_note"`

	AssignedAt  *time.Time `gorm:"column:assigned_at"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	VisitedAt   *time.Time `gorm:"column:visited_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HasRejectedVendor reports whether the vendor already rejected this booking.
func (b *Booking) HasRejectedVendor(vendorID uuid.UUID) bool {
	return b.RejectedVendors.Contains(vendorID)
}

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aquafindr/aquafindr-backend/pkg/enums"
)

// BookingCreatedEvent signals a new survey request entering the pipeline.
type BookingCreatedEvent struct {
	BookingID   uuid.UUID       `json:"booking_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	ServiceID   uuid.UUID       `json:"service_id"`
	VendorID    *uuid.UUID      `json:"vendor_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// BookingAssignedEvent is emitted when a booking lands on a vendor, either
// at creation or after reassignment.
type BookingAssignedEvent struct {
	BookingID    uuid.UUID `json:"booking_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	VendorID     uuid.UUID `json:"vendor_id"`
	Reassignment bool      `json:"reassignment"`
}

// BookingDecisionEvent covers vendor accept/reject outcomes.
type BookingDecisionEvent struct {
	BookingID  uuid.UUID           `json:"booking_id"`
	CustomerID uuid.UUID           `json:"customer_id"`
	VendorID   uuid.UUID           `json:"vendor_id"`
	Status     enums.BookingStatus `json:"status"`
	Reason     string              `json:"reason,omitempty"`
}

// BookingCancelledEvent is emitted when the customer or a vendor cancels.
type BookingCancelledEvent struct {
	BookingID   uuid.UUID       `json:"booking_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	VendorID    *uuid.UUID      `json:"vendor_id,omitempty"`
	CancelledBy enums.ActorRole `json:"cancelled_by"`
	CancelledAt time.Time       `json:"cancelled_at"`
	Note        string          `json:"note,omitempty"`
}

// BookingFailedEvent fires once when no replacement vendor could be found.
type BookingFailedEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	CustomerID      uuid.UUID `json:"customer_id"`
	RejectedVendors int       `json:"rejected_vendors"`
}

// SiteVisitedEvent marks the vendor's arrival at the survey location.
type SiteVisitedEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	VisitedAt time.Time `json:"visited_at"`
}

// ReportUploadedEvent is emitted when survey findings are attached.
type ReportUploadedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	WaterFound bool      `json:"water_found"`
	MediaCount int       `json:"media_count"`
}

// ReportApprovedEvent signals operator approval of a survey report, which
// releases the vendor's second wallet installment.
type ReportApprovedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	ApprovedBy uuid.UUID `json:"approved_by"`
}

// BorewellUploadedEvent carries the drilling outcome attached after payment.
type BorewellUploadedEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
}

// BookingCompletedEvent closes out the booking lifecycle.
type BookingCompletedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// PaymentRecordedEvent is emitted when an installment settles.
type PaymentRecordedEvent struct {
	BookingID uuid.UUID       `json:"booking_id"`
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Purpose   string          `json:"purpose"`
}

// PaymentFailedEvent reports a rejected or unverifiable payment callback.
type PaymentFailedEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason"`
}

// WalletCreditedEvent is published after a vendor installment lands.
type WalletCreditedEvent struct {
	TransactionID uuid.UUID                   `json:"transaction_id"`
	VendorID      uuid.UUID                   `json:"vendor_id"`
	BookingID     uuid.UUID                   `json:"booking_id"`
	Type          enums.WalletTransactionType `json:"type"`
	Amount        decimal.Decimal             `json:"amount"`
}

// WalletCreditFailedEvent flags a credit that needs the retry sweep.
type WalletCreditFailedEvent struct {
	TransactionID uuid.UUID                   `json:"transaction_id"`
	VendorID      uuid.UUID                   `json:"vendor_id"`
	BookingID     uuid.UUID                   `json:"booking_id"`
	Type          enums.WalletTransactionType `json:"type"`
	Error         string                      `json:"error"`
}

// TravelChargesDecidedEvent reports the customer's approve/reject decision.
type TravelChargesDecidedEvent struct {
	BookingID uuid.UUID                 `json:"booking_id"`
	VendorID  uuid.UUID                 `json:"vendor_id"`
	Status    enums.TravelChargesStatus `json:"status"`
	Amount    decimal.Decimal           `json:"amount"`
}

// InvoiceRequestedEvent asks the invoice worker to render a document.
type InvoiceRequestedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// NotificationRequestedEvent tells downstream systems to alert a recipient.
type NotificationRequestedEvent struct {
	BookingID uuid.UUID               `json:"booking_id"`
	Recipient uuid.UUID               `json:"recipient"`
	Kind      enums.RecipientKind     `json:"kind"`
	Event     enums.NotificationEvent `json:"event"`
}

package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateBooking           OutboxAggregateType = "booking"
	AggregateWalletTransaction OutboxAggregateType = "wallet_transaction"
	AggregateNotification      OutboxAggregateType = "notification"
	AggregateInvoice           OutboxAggregateType = "invoice"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBooking,
	AggregateWalletTransaction,
	AggregateNotification,
	AggregateInvoice,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventBookingCreated        OutboxEventType = "booking_created"
	EventBookingAssigned       OutboxEventType = "booking_assigned"
	EventBookingAccepted       OutboxEventType = "booking_accepted"
	EventBookingRejected       OutboxEventType = "booking_rejected"
	EventBookingCancelled      OutboxEventType = "booking_cancelled"
	EventBookingReassigned     OutboxEventType = "booking_reassigned"
	EventBookingFailed         OutboxEventType = "booking_failed"
	EventBookingVisited        OutboxEventType = "booking_visited"
	EventReportUploaded        OutboxEventType = "report_uploaded"
	EventReportApproved        OutboxEventType = "report_approved"
	EventBorewellUploaded      OutboxEventType = "borewell_uploaded"
	EventBookingCompleted      OutboxEventType = "booking_completed"
	EventAdvancePaid           OutboxEventType = "advance_paid"
	EventRemainingPaid         OutboxEventType = "remaining_paid"
	EventPaymentFailed         OutboxEventType = "payment_failed"
	EventWalletCredited        OutboxEventType = "wallet_credited"
	EventWalletCreditFailed    OutboxEventType = "wallet_credit_failed"
	EventTravelChargesDecided  OutboxEventType = "travel_charges_decided"
	EventInvoiceRequested      OutboxEventType = "invoice_requested"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingCreated,
	EventBookingAssigned,
	EventBookingAccepted,
	EventBookingRejected,
	EventBookingCancelled,
	EventBookingReassigned,
	EventBookingFailed,
	EventBookingVisited,
	EventReportUploaded,
	EventReportApproved,
	EventBorewellUploaded,
	EventBookingCompleted,
	EventAdvancePaid,
	EventRemainingPaid,
	EventPaymentFailed,
	EventWalletCredited,
	EventWalletCreditFailed,
	EventTravelChargesDecided,
	EventInvoiceRequested,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

package enums

import "fmt"

// BookingStatus tracks a survey booking through its lifecycle. The values are
// wire-visible strings consumed by existing mobile clients and must not change.
type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "PENDING"
	BookingStatusAwaitingAdvance  BookingStatus = "AWAITING_ADVANCE"
	BookingStatusAssigned         BookingStatus = "ASSIGNED"
	BookingStatusAccepted         BookingStatus = "ACCEPTED"
	BookingStatusVisited          BookingStatus = "VISITED"
	BookingStatusReportUploaded   BookingStatus = "REPORT_UPLOADED"
	BookingStatusAwaitingPayment  BookingStatus = "AWAITING_PAYMENT"
	BookingStatusPaymentSuccess   BookingStatus = "PAYMENT_SUCCESS"
	BookingStatusBorewellUploaded BookingStatus = "BOREWELL_UPLOADED"
	BookingStatusCompleted        BookingStatus = "COMPLETED"
	BookingStatusRejected         BookingStatus = "REJECTED"
	BookingStatusCancelled        BookingStatus = "CANCELLED"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusAwaitingAdvance,
	BookingStatusAssigned,
	BookingStatusAccepted,
	BookingStatusVisited,
	BookingStatusReportUploaded,
	BookingStatusAwaitingPayment,
	BookingStatusPaymentSuccess,
	BookingStatusBorewellUploaded,
	BookingStatusCompleted,
	BookingStatusRejected,
	BookingStatusCancelled,
}

// String implements fmt.Stringer.
func (s BookingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BookingStatus.
func (s BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the booking lifecycle.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusRejected, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}

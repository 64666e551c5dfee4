package bookings

import (
	"strings"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
)

// Action names one row of the booking transition table.
type Action string

const (
	ActionAdvancePaymentVerified   Action = "advance-payment-verified"
	ActionAccept                   Action = "accept"
	ActionReject                   Action = "reject"
	ActionCancelByVendor           Action = "cancel-by-vendor"
	ActionCancelByUser             Action = "cancel-by-user"
	ActionMarkVisited              Action = "mark-visited"
	ActionUploadReport             Action = "upload-report"
	ActionRemainingPaymentVerified Action = "remaining-payment-verified"
	ActionUploadBorewellResult     Action = "upload-borewell-result"
	ActionMarkCompleted            Action = "mark-completed"
	ActionReassign                 Action = "reassign"
)

// StatusTriple is the booking's full status state. The three fields move
// together through Apply; they are never set individually.
type StatusTriple struct {
	Status       enums.BookingStatus
	VendorStatus enums.BookingStatus
	UserStatus   enums.BookingStatus
}

// TripleOf reads the current status state off a booking row.
func TripleOf(b *models.Booking) StatusTriple {
	return StatusTriple{Status: b.Status, VendorStatus: b.VendorStatus, UserStatus: b.UserStatus}
}

// ApplyTo writes the triple back onto the booking row.
func (t StatusTriple) ApplyTo(b *models.Booking) {
	b.Status = t.Status
	b.VendorStatus = t.VendorStatus
	b.UserStatus = t.UserStatus
}

func uniform(status enums.BookingStatus) StatusTriple {
	return StatusTriple{Status: status, VendorStatus: status, UserStatus: status}
}

// guardField selects which of the three columns a transition's precondition
// reads. The asymmetries are intentional: a guard checks whichever field
// reflects the acting party's stage.
type guardField int

const (
	guardStatus guardField = iota
	guardVendorStatus
	guardUserStatus
)

func (f guardField) read(t StatusTriple) enums.BookingStatus {
	switch f {
	case guardVendorStatus:
		return t.VendorStatus
	case guardUserStatus:
		return t.UserStatus
	default:
		return t.Status
	}
}

type transition struct {
	field   guardField
	allowed []enums.BookingStatus
	next    func(current StatusTriple) StatusTriple
}

var transitionTable = map[Action]transition{
	ActionAdvancePaymentVerified: {
		field:   guardStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusAwaitingAdvance},
		next:    func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusAssigned) },
	},
	ActionAccept: {
		field:   guardVendorStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusAssigned},
		next:    func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusAccepted) },
	},
	ActionReject: {
		field:   guardVendorStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusAssigned},
		next:    func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusRejected) },
	},
	ActionCancelByVendor: {
		field:   guardStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusAccepted},
		next:    func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusRejected) },
	},
	ActionCancelByUser: {
		field: guardStatus,
		allowed: []enums.BookingStatus{
			enums.BookingStatusPending,
			enums.BookingStatusAssigned,
			enums.BookingStatusAccepted,
		},
		next: func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusCancelled) },
	},
	ActionMarkVisited: {
		field:   guardVendorStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusAccepted},
		next:    func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusVisited) },
	},
	ActionUploadReport: {
		field:   guardVendorStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusVisited},
		next: func(StatusTriple) StatusTriple {
			return StatusTriple{
				Status:       enums.BookingStatusReportUploaded,
				VendorStatus: enums.BookingStatusReportUploaded,
				UserStatus:   enums.BookingStatusAwaitingPayment,
			}
		},
	},
	ActionRemainingPaymentVerified: {
		field:   guardUserStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusAwaitingPayment},
		next: func(current StatusTriple) StatusTriple {
			// VendorStatus stays at REPORT_UPLOADED until the report is
			// approved and the second installment released.
			return StatusTriple{
				Status:       enums.BookingStatusPaymentSuccess,
				VendorStatus: current.VendorStatus,
				UserStatus:   enums.BookingStatusPaymentSuccess,
			}
		},
	},
	ActionUploadBorewellResult: {
		field:   guardUserStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusPaymentSuccess},
		next:    func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusBorewellUploaded) },
	},
	ActionMarkCompleted: {
		field: guardVendorStatus,
		allowed: []enums.BookingStatus{
			enums.BookingStatusVisited,
			enums.BookingStatusAwaitingPayment,
			enums.BookingStatusReportUploaded,
		},
		next: func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusCompleted) },
	},
	ActionReassign: {
		field:   guardStatus,
		allowed: []enums.BookingStatus{enums.BookingStatusRejected},
		next:    func(StatusTriple) StatusTriple { return uniform(enums.BookingStatusAssigned) },
	},
}

// Apply runs one transition against the current triple. A failed guard
// returns a state conflict naming the current and expected status; the
// input triple is returned unchanged so callers can keep using it.
func Apply(action Action, current StatusTriple) (StatusTriple, error) {
	rule, ok := transitionTable[action]
	if !ok {
		return current, pkgerrors.New(pkgerrors.CodeValidation, "unknown booking action")
	}

	got := rule.field.read(current)
	for _, allowed := range rule.allowed {
		if got == allowed {
			return rule.next(current), nil
		}
	}
	return current, pkgerrors.NewStateConflict(got.String(), expectedList(rule.allowed))
}

func expectedList(allowed []enums.BookingStatus) string {
	parts := make([]string, 0, len(allowed))
	for _, status := range allowed {
		parts = append(parts, status.String())
	}
	return strings.Join(parts, " or ")
}

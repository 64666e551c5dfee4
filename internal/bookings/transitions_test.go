package bookings

import (
	"testing"

	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
)

func TestApplyHappyPathToCompletion(t *testing.T) {
	steps := []struct {
		action Action
		want   StatusTriple
	}{
		{ActionAdvancePaymentVerified, uniform(enums.BookingStatusAssigned)},
		{ActionAccept, uniform(enums.BookingStatusAccepted)},
		{ActionMarkVisited, uniform(enums.BookingStatusVisited)},
		{ActionUploadReport, StatusTriple{
			Status:       enums.BookingStatusReportUploaded,
			VendorStatus: enums.BookingStatusReportUploaded,
			UserStatus:   enums.BookingStatusAwaitingPayment,
		}},
		{ActionRemainingPaymentVerified, StatusTriple{
			Status:       enums.BookingStatusPaymentSuccess,
			VendorStatus: enums.BookingStatusReportUploaded,
			UserStatus:   enums.BookingStatusPaymentSuccess,
		}},
		{ActionUploadBorewellResult, uniform(enums.BookingStatusBorewellUploaded)},
	}

	current := uniform(enums.BookingStatusAwaitingAdvance)
	for _, step := range steps {
		next, err := Apply(step.action, current)
		if err != nil {
			t.Fatalf("%s: %v", step.action, err)
		}
		if next != step.want {
			t.Fatalf("%s: got %+v, want %+v", step.action, next, step.want)
		}
		current = next
	}
}

func TestApplyRemainingPaymentLeavesVendorStatusAlone(t *testing.T) {
	current := StatusTriple{
		Status:       enums.BookingStatusReportUploaded,
		VendorStatus: enums.BookingStatusReportUploaded,
		UserStatus:   enums.BookingStatusAwaitingPayment,
	}
	next, err := Apply(ActionRemainingPaymentVerified, current)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.VendorStatus != enums.BookingStatusReportUploaded {
		t.Fatalf("vendor status = %s, want REPORT_UPLOADED", next.VendorStatus)
	}
	if next.Status != enums.BookingStatusPaymentSuccess || next.UserStatus != enums.BookingStatusPaymentSuccess {
		t.Fatalf("status/user status = %s/%s, want PAYMENT_SUCCESS", next.Status, next.UserStatus)
	}
}

func TestApplyGuardFailureLeavesTripleUnchanged(t *testing.T) {
	current := uniform(enums.BookingStatusAwaitingAdvance)
	next, err := Apply(ActionAccept, current)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != current {
		t.Fatalf("triple changed on failed guard: %+v", next)
	}
}

func TestApplyGuardChecksActorField(t *testing.T) {
	// mark-completed reads the vendor's view even when overall status has
	// moved ahead.
	current := StatusTriple{
		Status:       enums.BookingStatusPaymentSuccess,
		VendorStatus: enums.BookingStatusReportUploaded,
		UserStatus:   enums.BookingStatusPaymentSuccess,
	}
	next, err := Apply(ActionMarkCompleted, current)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next != uniform(enums.BookingStatusCompleted) {
		t.Fatalf("got %+v, want COMPLETED on all fields", next)
	}
}

func TestApplyCancelByUserFromEarlyStates(t *testing.T) {
	for _, status := range []enums.BookingStatus{
		enums.BookingStatusPending,
		enums.BookingStatusAssigned,
		enums.BookingStatusAccepted,
	} {
		next, err := Apply(ActionCancelByUser, uniform(status))
		if err != nil {
			t.Fatalf("%s: %v", status, err)
		}
		if next != uniform(enums.BookingStatusCancelled) {
			t.Fatalf("%s: got %+v", status, next)
		}
	}

	if _, err := Apply(ActionCancelByUser, uniform(enums.BookingStatusVisited)); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("cancel after visit should fail, got %v", err)
	}
}

func TestApplyVendorCancelOnlyAfterAccept(t *testing.T) {
	if _, err := Apply(ActionCancelByVendor, uniform(enums.BookingStatusAssigned)); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("vendor cancel before accept should fail, got %v", err)
	}
	next, err := Apply(ActionCancelByVendor, uniform(enums.BookingStatusAccepted))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next != uniform(enums.BookingStatusRejected) {
		t.Fatalf("got %+v, want REJECTED", next)
	}
}

func TestApplyReassignRequiresRejected(t *testing.T) {
	next, err := Apply(ActionReassign, uniform(enums.BookingStatusRejected))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next != uniform(enums.BookingStatusAssigned) {
		t.Fatalf("got %+v, want ASSIGNED", next)
	}
	if _, err := Apply(ActionReassign, uniform(enums.BookingStatusCancelled)); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("reassign from CANCELLED should fail, got %v", err)
	}
}

func TestApplyUnknownAction(t *testing.T) {
	if _, err := Apply(Action("archive"), uniform(enums.BookingStatusAssigned)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error: %v", err)
	}
}

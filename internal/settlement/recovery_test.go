package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/internal/wallet"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
)

type fakeRetryLedger struct {
	outcome *wallet.CreditOutcome
	err     error
	calls   []uuid.UUID
}

func (f *fakeRetryLedger) RetryFailedCredit(ctx context.Context, transactionID uuid.UUID) (*wallet.CreditOutcome, error) {
	f.calls = append(f.calls, transactionID)
	return f.outcome, f.err
}

func newRecovery(t *testing.T, repo *fakeBookingRepo, ledger *fakeRetryLedger) *CreditRecovery {
	t.Helper()
	rec, err := NewCreditRecovery(repo, passthroughTx{}, ledger, testLogger())
	if err != nil {
		t.Fatalf("NewCreditRecovery: %v", err)
	}
	return rec
}

func settledTransaction(bookingID uuid.UUID, txType enums.WalletTransactionType) *models.WalletTransaction {
	return &models.WalletTransaction{
		ID:        uuid.New(),
		VendorID:  uuid.New(),
		BookingID: bookingID,
		Type:      txType,
		Status:    enums.WalletTxStatusSuccess,
	}
}

func TestRetryCreditStampsSiteVisitInstallment(t *testing.T) {
	repo := newFakeBookingRepo()
	b := bookingAt(enums.BookingStatusVisited)
	repo.byID[b.ID] = b
	txn := settledTransaction(b.ID, enums.WalletTxSiteVisit)
	ledger := &fakeRetryLedger{outcome: &wallet.CreditOutcome{Transaction: txn}}
	rec := newRecovery(t, repo, ledger)

	outcome, err := rec.RetryCredit(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("RetryCredit: %v", err)
	}
	if outcome.Failed {
		t.Fatalf("outcome marked failed")
	}
	stored := repo.byID[b.ID]
	installment := stored.Payment.VendorWalletPayments.SiteVisitPayment
	if !installment.Credited || installment.CreditedAt == nil {
		t.Fatalf("site visit installment not stamped: %+v", installment)
	}
	if installment.TransactionID == nil || *installment.TransactionID != txn.ID {
		t.Fatalf("transaction id = %v, want %s", installment.TransactionID, txn.ID)
	}
}

func TestRetryCreditStampsReportUploadInstallment(t *testing.T) {
	repo := newFakeBookingRepo()
	b := bookingAt(enums.BookingStatusReportUploaded)
	repo.byID[b.ID] = b
	txn := settledTransaction(b.ID, enums.WalletTxReportUpload)
	ledger := &fakeRetryLedger{outcome: &wallet.CreditOutcome{Transaction: txn}}
	rec := newRecovery(t, repo, ledger)

	if _, err := rec.RetryCredit(context.Background(), txn.ID); err != nil {
		t.Fatalf("RetryCredit: %v", err)
	}
	stored := repo.byID[b.ID]
	if !stored.Payment.VendorWalletPayments.ReportUploadPayment.Credited {
		t.Fatalf("report upload installment not stamped")
	}
}

func TestRetryCreditLeavesBookingForTravelCharges(t *testing.T) {
	repo := newFakeBookingRepo()
	b := bookingAt(enums.BookingStatusAccepted)
	repo.byID[b.ID] = b
	txn := settledTransaction(b.ID, enums.WalletTxTravelCharges)
	ledger := &fakeRetryLedger{outcome: &wallet.CreditOutcome{Transaction: txn}}
	rec := newRecovery(t, repo, ledger)

	if _, err := rec.RetryCredit(context.Background(), txn.ID); err != nil {
		t.Fatalf("RetryCredit: %v", err)
	}
	if len(repo.updated) != 0 {
		t.Fatalf("travel charges retry touched the booking")
	}
}

func TestRetryCreditSkipsRepairWhenRetryFails(t *testing.T) {
	repo := newFakeBookingRepo()
	b := bookingAt(enums.BookingStatusVisited)
	repo.byID[b.ID] = b
	txn := settledTransaction(b.ID, enums.WalletTxSiteVisit)
	txn.Status = enums.WalletTxStatusFailed
	ledger := &fakeRetryLedger{outcome: &wallet.CreditOutcome{Transaction: txn, Failed: true}}
	rec := newRecovery(t, repo, ledger)

	outcome, err := rec.RetryCredit(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("RetryCredit: %v", err)
	}
	if !outcome.Failed {
		t.Fatalf("outcome should report the failed retry")
	}
	if repo.byID[b.ID].Payment.VendorWalletPayments.SiteVisitPayment.Credited {
		t.Fatalf("failed retry stamped the installment")
	}
}

func TestRetryCreditSurfacesLedgerError(t *testing.T) {
	repo := newFakeBookingRepo()
	ledger := &fakeRetryLedger{err: pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not retryable")}
	rec := newRecovery(t, repo, ledger)

	_, err := rec.RetryCredit(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("err = %v, want state conflict", err)
	}
	if len(repo.updated) != 0 {
		t.Fatalf("ledger error mutated a booking")
	}
}

func TestRetryCreditDoesNotRestampCreditedInstallment(t *testing.T) {
	repo := newFakeBookingRepo()
	b := bookingAt(enums.BookingStatusVisited)
	earlier := uuid.New()
	b.Payment.VendorWalletPayments.SiteVisitPayment.Credited = true
	b.Payment.VendorWalletPayments.SiteVisitPayment.TransactionID = &earlier
	repo.byID[b.ID] = b
	txn := settledTransaction(b.ID, enums.WalletTxSiteVisit)
	ledger := &fakeRetryLedger{outcome: &wallet.CreditOutcome{Transaction: txn, AlreadyCredited: true}}
	rec := newRecovery(t, repo, ledger)

	if _, err := rec.RetryCredit(context.Background(), txn.ID); err != nil {
		t.Fatalf("RetryCredit: %v", err)
	}
	got := repo.byID[b.ID].Payment.VendorWalletPayments.SiteVisitPayment
	if got.TransactionID == nil || *got.TransactionID != earlier {
		t.Fatalf("stamped installment was overwritten: %+v", got)
	}
	if len(repo.updated) != 0 {
		t.Fatalf("already-stamped installment was rewritten")
	}
}

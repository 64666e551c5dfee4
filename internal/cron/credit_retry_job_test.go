package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/internal/wallet"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

type fakeFailedLister struct {
	rows        []models.WalletTransaction
	lastCutoff  time.Time
	maxAttempts int
	limit       int
	err         error
}

func (f *fakeFailedLister) ListFailedBefore(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]models.WalletTransaction, error) {
	f.lastCutoff = cutoff
	f.maxAttempts = maxAttempts
	f.limit = limit
	return f.rows, f.err
}

type fakeRetrier struct {
	retried  []uuid.UUID
	outcomes map[uuid.UUID]*wallet.CreditOutcome
	errs     map[uuid.UUID]error
}

func (f *fakeRetrier) RetryCredit(ctx context.Context, transactionID uuid.UUID) (*wallet.CreditOutcome, error) {
	f.retried = append(f.retried, transactionID)
	if err, ok := f.errs[transactionID]; ok {
		return nil, err
	}
	if outcome, ok := f.outcomes[transactionID]; ok {
		return outcome, nil
	}
	return &wallet.CreditOutcome{}, nil
}

func newCreditRetryJob(t *testing.T, lister *fakeFailedLister, retrier *fakeRetrier) *creditRetryJob {
	t.Helper()
	jobIface, err := NewCreditRetryJob(CreditRetryJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Repository: lister,
		Retrier:    retrier,
	})
	if err != nil {
		t.Fatalf("NewCreditRetryJob: %v", err)
	}
	job, ok := jobIface.(*creditRetryJob)
	if !ok {
		t.Fatalf("expected creditRetryJob, got %T", jobIface)
	}
	return job
}

func failedRow() models.WalletTransaction {
	return models.WalletTransaction{
		ID:       uuid.New(),
		VendorID: uuid.New(),
		Status:   enums.WalletTxStatusFailed,
		Attempts: 1,
	}
}

func TestCreditRetryJobRetriesEachFailedRow(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	first := failedRow()
	second := failedRow()
	lister := &fakeFailedLister{rows: []models.WalletTransaction{first, second}}
	retrier := &fakeRetrier{}
	job := newCreditRetryJob(t, lister, retrier)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-creditRetryMinAge)
	if !lister.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("cutoff = %s, want %s", lister.lastCutoff, expectedCutoff)
	}
	if lister.maxAttempts != creditRetryMaxAttempts || lister.limit != creditRetryBatchSize {
		t.Fatalf("query params = (%d, %d)", lister.maxAttempts, lister.limit)
	}
	if len(retrier.retried) != 2 || retrier.retried[0] != first.ID || retrier.retried[1] != second.ID {
		t.Fatalf("retried = %v", retrier.retried)
	}
}

func TestCreditRetryJobContinuesPastFailures(t *testing.T) {
	broken := failedRow()
	healthy := failedRow()
	lister := &fakeFailedLister{rows: []models.WalletTransaction{broken, healthy}}
	retrier := &fakeRetrier{errs: map[uuid.UUID]error{broken.ID: errors.New("balance update failed")}}
	job := newCreditRetryJob(t, lister, retrier)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error despite per-row handling: %v", err)
	}
	if len(retrier.retried) != 2 {
		t.Fatalf("expected both rows attempted, got %d", len(retrier.retried))
	}
}

func TestCreditRetryJobPropagatesListError(t *testing.T) {
	lister := &fakeFailedLister{err: errors.New("boom")}
	job := newCreditRetryJob(t, lister, &fakeRetrier{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

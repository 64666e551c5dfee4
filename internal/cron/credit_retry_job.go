package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/internal/wallet"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

const (
	creditRetryMinAge      = 10 * time.Minute
	creditRetryMaxAttempts = 1
	creditRetryBatchSize   = 100
)

type failedCreditLister interface {
	ListFailedBefore(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]models.WalletTransaction, error)
}

// creditRetrier replays one failed credit and repairs the booking's
// installment record when it lands; settlement.CreditRecovery satisfies
// it.
type creditRetrier interface {
	RetryCredit(ctx context.Context, transactionID uuid.UUID) (*wallet.CreditOutcome, error)
}

// CreditRetryJobParams configure the failed-credit sweep.
type CreditRetryJobParams struct {
	Logger      *logger.Logger
	Repository  failedCreditLister
	Retrier     creditRetrier
	MinAge      time.Duration
	MaxAttempts int
	BatchSize   int
}

// NewCreditRetryJob builds the sweep that re-drives FAILED wallet credits.
// The ledger row is the retry queue; nothing is lost when the worker
// restarts mid-sweep.
func NewCreditRetryJob(params CreditRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Retrier == nil {
		return nil, fmt.Errorf("credit retrier required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = creditRetryMinAge
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = creditRetryMaxAttempts
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = creditRetryBatchSize
	}
	return &creditRetryJob{
		logg:        params.Logger,
		repo:        params.Repository,
		retrier:     params.Retrier,
		minAge:      minAge,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		now:         time.Now,
	}, nil
}

type creditRetryJob struct {
	logg        *logger.Logger
	repo        failedCreditLister
	retrier     creditRetrier
	minAge      time.Duration
	maxAttempts int
	batchSize   int
	now         func() time.Time
}

func (j *creditRetryJob) Name() string { return "wallet-credit-retry" }

func (j *creditRetryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.minAge)
	rows, err := j.repo.ListFailedBefore(ctx, cutoff, j.maxAttempts, j.batchSize)
	if err != nil {
		return fmt.Errorf("list failed credits: %w", err)
	}

	var retried, settled, skipped, failed int
	for _, row := range rows {
		rowCtx := j.logg.WithFields(ctx, map[string]any{
			"transaction_id": row.ID.String(),
			"attempts":       row.Attempts,
		})
		rowCtx = j.logg.WithVendorID(rowCtx, row.VendorID.String())

		outcome, err := j.retrier.RetryCredit(rowCtx, row.ID)
		retried++
		switch {
		case err != nil:
			failed++
			j.logg.Error(rowCtx, "credit retry failed", err)
		case outcome != nil && outcome.AlreadyCredited:
			skipped++
			j.logg.Info(rowCtx, "credit already settled, skipping")
		default:
			settled++
			j.logg.Info(rowCtx, "credit retry succeeded")
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"rows":    len(rows),
		"retried": retried,
		"settled": settled,
		"skipped": skipped,
		"failed":  failed,
	})
	j.logg.Info(logCtx, "credit retry sweep complete")
	return nil
}

package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/internal/wallet"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

type walletRetrier interface {
	RetryFailedCredit(ctx context.Context, transactionID uuid.UUID) (*wallet.CreditOutcome, error)
}

// CreditRecovery replays failed payout credits and repairs the booking's
// installment record when the ledger row finally settles. The cron sweep
// and the admin retry endpoint both go through here, so a recovered
// SITE_VISIT or REPORT_UPLOAD credit never leaves the aggregate showing
// an uncredited installment over a SUCCESS ledger row.
type CreditRecovery struct {
	repo   bookings.Repository
	tx     txRunner
	ledger walletRetrier
	logg   *logger.Logger
}

// NewCreditRecovery wires the retry path. It deliberately needs no
// gateway: recovery only moves already-verified money.
func NewCreditRecovery(repo bookings.Repository, tx txRunner, ledger walletRetrier, logg *logger.Logger) (*CreditRecovery, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet ledger required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &CreditRecovery{repo: repo, tx: tx, ledger: ledger, logg: logg}, nil
}

// RetryCredit re-drives one FAILED ledger row and, when the credit lands,
// stamps the matching installment on the booking.
func (r *CreditRecovery) RetryCredit(ctx context.Context, transactionID uuid.UUID) (*wallet.CreditOutcome, error) {
	outcome, err := r.ledger.RetryFailedCredit(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if outcome == nil || outcome.Transaction == nil || outcome.Failed {
		return outcome, nil
	}
	r.repairInstallment(ctx, outcome.Transaction)
	return outcome, nil
}

func (r *CreditRecovery) repairInstallment(ctx context.Context, txn *models.WalletTransaction) {
	switch txn.Type {
	case enums.WalletTxSiteVisit, enums.WalletTxReportUpload:
	default:
		return
	}

	ctx = r.logg.WithBookingID(ctx, txn.BookingID.String())
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		b, err := repo.FindByID(ctx, txn.BookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		if !stampInstallment(b, txn.Type, txn, time.Now().UTC()) {
			return nil
		}
		return repo.UpdateGuarded(ctx, b, bookings.TripleOf(b))
	})
	if err != nil {
		// The money moved; the stamp is bookkeeping. Log it like the
		// settlement service does and let the ledger row stay the source
		// of truth.
		r.logg.Error(ctx, "stamp installment after retry", err)
	}
}

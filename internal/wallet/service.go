package wallet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/aquafindr/aquafindr-backend/pkg/db"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/payloads"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
)

const successUniqueIndex = "ux_wallet_tx_success_triple"

// Transactor runs a function inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Outbox queues domain events inside the caller's transaction.
type Outbox interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the vendor earnings ledger. Credits are idempotent per
// (vendor, booking, type): the pre-check plus the partial unique index
// guarantee at most one SUCCESS row even under concurrent retries.
type Service interface {
	Credit(ctx context.Context, input CreditInput) (*CreditOutcome, error)
	RetryFailedCredit(ctx context.Context, transactionID uuid.UUID) (*CreditOutcome, error)
	Balance(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo       Repository
	transactor Transactor
	events     Outbox
	logg       *logger.Logger
}

// CreditInput captures the immutable parameters of one wallet credit.
type CreditInput struct {
	VendorID  uuid.UUID
	BookingID uuid.UUID
	Type      enums.WalletTransactionType
	Amount    decimal.Decimal
	Metadata  json.RawMessage
}

// CreditOutcome reports how a credit attempt resolved. Failed outcomes are
// not errors: the FAILED row is recorded for the retry sweep and the caller
// proceeds with its transition.
type CreditOutcome struct {
	Transaction     *models.WalletTransaction
	AlreadyCredited bool
	Failed          bool
}

// ListParams configures wallet ledger pagination.
type ListParams struct {
	VendorID uuid.UUID
	Status   *enums.WalletTransactionStatus
	Limit    int
	Cursor   string
}

// ListResult wraps ledger rows and the cursor for the next page.
type ListResult struct {
	Items  []models.WalletTransaction `json:"items"`
	Cursor string                     `json:"cursor"`
}

// NewService wires wallet dependencies.
func NewService(repo Repository, transactor Transactor, events Outbox, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet repository required")
	}
	if transactor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet transactor required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet outbox required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet logger required")
	}
	return &service{repo: repo, transactor: transactor, events: events, logg: logg}, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*CreditOutcome, error) {
	if err := s.validateCredit(input); err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"vendor_id":  input.VendorID.String(),
		"booking_id": input.BookingID.String(),
		"type":       input.Type.String(),
	})

	existing, err := s.repo.FindSuccess(ctx, input.VendorID, input.BookingID, input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing credit")
	}
	if existing != nil {
		s.logg.Info(ctx, "wallet credit already settled")
		return &CreditOutcome{Transaction: existing, AlreadyCredited: true}, nil
	}

	row := &models.WalletTransaction{
		VendorID:  input.VendorID,
		BookingID: input.BookingID,
		Type:      input.Type,
		Status:    enums.WalletTxStatusSuccess,
		Amount:    input.Amount,
		Attempts:  1,
		Metadata:  input.Metadata,
	}

	creditErr := s.transactor.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, row); err != nil {
			return err
		}
		if err := txRepo.AdjustVendorBalance(ctx, input.VendorID, s.balanceDelta(input.Type, input.Amount)); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletCredited,
			AggregateType: enums.AggregateWalletTransaction,
			AggregateID:   row.ID,
			Data: payloads.WalletCreditedEvent{
				TransactionID: row.ID,
				VendorID:      input.VendorID,
				BookingID:     input.BookingID,
				Type:          input.Type,
				Amount:        input.Amount,
			},
			Version: 1,
		})
	})
	if creditErr == nil {
		s.logg.Info(ctx, "wallet credited")
		return &CreditOutcome{Transaction: row}, nil
	}

	if dbpkg.IsUniqueViolation(creditErr, successUniqueIndex) {
		// Lost the race to a concurrent credit of the same triple.
		winner, findErr := s.repo.FindSuccess(ctx, input.VendorID, input.BookingID, input.Type)
		if findErr == nil && winner != nil {
			return &CreditOutcome{Transaction: winner, AlreadyCredited: true}, nil
		}
	}

	return s.recordFailure(ctx, input, creditErr)
}

// recordFailure appends a FAILED ledger row so the cron sweep can replay the
// credit later. The triggering booking transition is already committed and
// must not observe this as a fatal error.
func (s *service) recordFailure(ctx context.Context, input CreditInput, cause error) (*CreditOutcome, error) {
	msg := cause.Error()
	failed := &models.WalletTransaction{
		VendorID:  input.VendorID,
		BookingID: input.BookingID,
		Type:      input.Type,
		Status:    enums.WalletTxStatusFailed,
		Amount:    input.Amount,
		Error:     &msg,
		Attempts:  1,
		Metadata:  input.Metadata,
	}

	err := s.transactor.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, failed); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletCreditFailed,
			AggregateType: enums.AggregateWalletTransaction,
			AggregateID:   failed.ID,
			Data: payloads.WalletCreditFailedEvent{
				TransactionID: failed.ID,
				VendorID:      input.VendorID,
				BookingID:     input.BookingID,
				Type:          input.Type,
				Error:         msg,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed wallet credit")
	}

	s.logg.Error(ctx, "wallet credit failed, queued for retry", cause)
	return &CreditOutcome{Transaction: failed, Failed: true}, nil
}

func (s *service) RetryFailedCredit(ctx context.Context, transactionID uuid.UUID) (*CreditOutcome, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	row, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet transaction")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet transaction not found")
	}
	if row.Status != enums.WalletTxStatusFailed {
		return nil, pkgerrors.NewStateConflict(row.Status.String(), enums.WalletTxStatusFailed.String())
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": row.ID.String(),
		"vendor_id":      row.VendorID.String(),
		"booking_id":     row.BookingID.String(),
	})

	winner, err := s.repo.FindSuccess(ctx, row.VendorID, row.BookingID, row.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing credit")
	}
	if winner != nil {
		s.logg.Info(ctx, "wallet credit already settled, retry skipped")
		return &CreditOutcome{Transaction: winner, AlreadyCredited: true}, nil
	}

	now := time.Now().UTC()
	retryErr := s.transactor.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		row.Status = enums.WalletTxStatusSuccess
		row.Error = nil
		row.Attempts++
		row.UpdatedAt = now
		if err := txRepo.Update(ctx, row); err != nil {
			return err
		}
		if err := txRepo.AdjustVendorBalance(ctx, row.VendorID, s.balanceDelta(row.Type, row.Amount)); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletCredited,
			AggregateType: enums.AggregateWalletTransaction,
			AggregateID:   row.ID,
			Data: payloads.WalletCreditedEvent{
				TransactionID: row.ID,
				VendorID:      row.VendorID,
				BookingID:     row.BookingID,
				Type:          row.Type,
				Amount:        row.Amount,
			},
			Version: 1,
		})
	})
	if retryErr != nil {
		// Keep the row FAILED but bump the attempt counter so the sweep's
		// max-attempt bound still applies.
		msg := retryErr.Error()
		row.Status = enums.WalletTxStatusFailed
		row.Error = &msg
		if updateErr := s.repo.Update(ctx, row); updateErr != nil {
			s.logg.Error(ctx, "recording retry failure", updateErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, retryErr, "retry wallet credit")
	}

	s.logg.Info(ctx, "wallet credit retried successfully")
	return &CreditOutcome{Transaction: row}, nil
}

func (s *service) Balance(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	if vendorID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	balance, err := s.repo.VendorBalance(ctx, vendorID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor balance")
	}
	return balance, nil
}

func (s *service) ListTransactions(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	query := ListTransactionsQuery{
		VendorID: params.VendorID,
		Status:   params.Status,
		Limit:    params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) validateCredit(input CreditInput) error {
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.BookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet transaction type")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	return nil
}

func (s *service) balanceDelta(txType enums.WalletTransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType.IsDebit() {
		return amount.Neg()
	}
	return amount
}

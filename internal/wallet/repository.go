package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
)

// Repository manages persistence for the vendor wallet ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.WalletTransaction) error
	Update(ctx context.Context, row *models.WalletTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	FindSuccess(ctx context.Context, vendorID, bookingID uuid.UUID, txType enums.WalletTransactionType) (*models.WalletTransaction, error)
	List(ctx context.Context, params ListTransactionsQuery) ([]models.WalletTransaction, *pagination.Cursor, error)
	ListFailedBefore(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]models.WalletTransaction, error)
	AdjustVendorBalance(ctx context.Context, vendorID uuid.UUID, delta decimal.Decimal) error
	VendorBalance(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
}

// ListTransactionsQuery configures wallet ledger list queries.
type ListTransactionsQuery struct {
	VendorID uuid.UUID
	Status   *enums.WalletTransactionStatus
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) Update(ctx context.Context, row *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	var row models.WalletTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindSuccess(ctx context.Context, vendorID, bookingID uuid.UUID, txType enums.WalletTransactionType) (*models.WalletTransaction, error) {
	var row models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND booking_id = ? AND type = ? AND status = ?",
			vendorID, bookingID, txType, enums.WalletTxStatusSuccess).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context, params ListTransactionsQuery) ([]models.WalletTransaction, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Where("vendor_id = ?", params.VendorID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.WalletTransaction
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) ListFailedBefore(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND attempts <= ?", enums.WalletTxStatusFailed, cutoff, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) AdjustVendorBalance(ctx context.Context, vendorID uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) VendorBalance(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Select("wallet_balance").
		Where("id = ?", vendorID).
		First(&vendor).Error
	if err != nil {
		return decimal.Zero, err
	}
	return vendor.WalletBalance, nil
}

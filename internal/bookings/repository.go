package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
)

// ErrStatusChanged is returned by UpdateGuarded when the booking's status
// triple no longer matches the guard at write time. The loser of a
// concurrent transition race sees this, never a silent overwrite.
var ErrStatusChanged = errors.New("booking status changed concurrently")

// Repository handles booking aggregate persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	UpdateGuarded(ctx context.Context, booking *models.Booking, guard StatusTriple) error
	List(ctx context.Context, params ListBookingsQuery) ([]models.Booking, *pagination.Cursor, error)
}

// ListBookingsQuery configures booking list queries. Exactly one of
// CustomerID/VendorID is normally set, depending on the caller's role.
type ListBookingsQuery struct {
	CustomerID uuid.UUID
	VendorID   uuid.UUID
	Status     *enums.BookingStatus
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a booking repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateGuarded persists the full aggregate, but only while the stored
// status triple still equals the guard. The guard doubles as the optimistic
// concurrency check: of two racing transitions at most one can win.
func (r *repository) UpdateGuarded(ctx context.Context, booking *models.Booking, guard StatusTriple) error {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where(
			"id = ? AND status = ? AND vendor_status = ? AND user_status = ?",
			booking.ID, guard.Status, guard.VendorStatus, guard.UserStatus,
		).
		Select("*").
		Omit("id", "created_at").
		Updates(booking)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) List(ctx context.Context, params ListBookingsQuery) ([]models.Booking, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Booking{})
	if params.CustomerID != uuid.Nil {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.VendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", params.VendorID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.Booking
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

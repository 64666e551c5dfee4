package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
)

// Repository handles vendor and survey service persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindVendorByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	FindServiceByID(ctx context.Context, id uuid.UUID) (*models.SurveyService, error)
	ListServices(ctx context.Context, params ListServicesQuery) ([]models.SurveyService, *pagination.Cursor, error)
	FindAlternateServices(ctx context.Context, name, category string, excludeVendors []uuid.UUID) ([]models.SurveyService, error)
}

// ListServicesQuery configures catalog list queries.
type ListServicesQuery struct {
	Category string
	Search   string
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindVendorByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindServiceByID(ctx context.Context, id uuid.UUID) (*models.SurveyService, error) {
	var svc models.SurveyService
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("id = ?", id).
		First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *repository) ListServices(ctx context.Context, params ListServicesQuery) ([]models.SurveyService, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("survey_services.active = ? AND survey_services.approved = ?", true, true)

	if params.Category != "" {
		query = query.Where("survey_services.category = ?", params.Category)
	}
	if params.Search != "" {
		query = query.Where("survey_services.name ILIKE ?", "%"+params.Search+"%")
	}
	if params.Cursor != nil {
		query = query.Where(
			"(survey_services.created_at, survey_services.id) < (?, ?)",
			params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.SurveyService
	err := query.
		Order("survey_services.created_at DESC").
		Order("survey_services.id DESC").
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

// FindAlternateServices returns active, approved services with the same
// name and category whose vendor has not already rejected the booking.
// The vendor association is loaded for ranking.
func (r *repository) FindAlternateServices(ctx context.Context, name, category string, excludeVendors []uuid.UUID) ([]models.SurveyService, error) {
	query := r.db.WithContext(ctx).
		Preload("Vendor").
		Joins("JOIN vendors ON vendors.id = survey_services.vendor_id").
		Where("survey_services.name = ? AND survey_services.category = ?", name, category).
		Where("survey_services.active = ? AND survey_services.approved = ?", true, true).
		Where("vendors.active = ? AND vendors.approved = ?", true, true)

	if len(excludeVendors) > 0 {
		query = query.Where("survey_services.vendor_id NOT IN ?", []uuid.UUID(excludeVendors))
	}

	var rows []models.SurveyService
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

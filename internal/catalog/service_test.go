package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	paginationpkg "github.com/aquafindr/aquafindr-backend/pkg/pagination"
)

type fakeRepository struct {
	listFn           func(ctx context.Context, params ListServicesQuery) ([]models.SurveyService, *paginationpkg.Cursor, error)
	findServiceFn    func(ctx context.Context, id uuid.UUID) (*models.SurveyService, error)
	findVendorFn     func(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	findAlternatesFn func(ctx context.Context, name, category string, exclude []uuid.UUID) ([]models.SurveyService, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if f.findVendorFn != nil {
		return f.findVendorFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeRepository) FindVendorByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	return nil, nil
}

func (f *fakeRepository) FindServiceByID(ctx context.Context, id uuid.UUID) (*models.SurveyService, error) {
	if f.findServiceFn != nil {
		return f.findServiceFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeRepository) ListServices(ctx context.Context, params ListServicesQuery) ([]models.SurveyService, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) FindAlternateServices(ctx context.Context, name, category string, exclude []uuid.UUID) ([]models.SurveyService, error) {
	if f.findAlternatesFn != nil {
		return f.findAlternatesFn(ctx, name, category, exclude)
	}
	return nil, nil
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestServiceListServices(t *testing.T) {
	row := models.SurveyService{ID: uuid.New(), Name: "Groundwater Survey", CreatedAt: time.Now()}
	next := paginationpkg.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params ListServicesQuery) ([]models.SurveyService, *paginationpkg.Cursor, error) {
			if params.Category != "water-detection" {
				t.Fatalf("unexpected category %q", params.Category)
			}
			return []models.SurveyService{row}, &next, nil
		},
	}

	svc := newServiceWithRepo(t, repo)
	result, err := svc.ListServices(context.Background(), ListParams{Category: "water-detection", Limit: 10})
	if err != nil {
		t.Fatalf("ListServices returned error: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != row.ID {
		t.Fatalf("unexpected items %+v", result.Items)
	}
	if result.Cursor == "" {
		t.Fatal("expected next cursor")
	}
}

func TestServiceListServicesInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	_, err := svc.ListServices(context.Background(), ListParams{Cursor: "not-base64!!"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceGetServiceNotFound(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	_, err := svc.GetService(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestServiceGetVendorWrapsRepoError(t *testing.T) {
	repo := &fakeRepository{
		findVendorFn: func(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := newServiceWithRepo(t, repo)

	_, err := svc.GetVendor(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
)

// Service exposes the public survey service catalog.
type Service interface {
	ListServices(ctx context.Context, params ListParams) (*ListResult, error)
	GetService(ctx context.Context, id uuid.UUID) (*models.SurveyService, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

type service struct {
	repo Repository
}

// ListParams configures catalog pagination and filters.
type ListParams struct {
	Category string
	Search   string
	Limit    int
	Cursor   string
}

// ListResult wraps returned services and the cursor for the next page.
type ListResult struct {
	Items  []models.SurveyService `json:"items"`
	Cursor string                 `json:"cursor"`
}

// NewService wires catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListServices(ctx context.Context, params ListParams) (*ListResult, error) {
	query := ListServicesQuery{
		Category: params.Category,
		Search:   params.Search,
		Limit:    params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListServices(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list survey services")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) GetService(ctx context.Context, id uuid.UUID) (*models.SurveyService, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}
	svc, err := s.repo.FindServiceByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find survey service")
	}
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "survey service not found")
	}
	return svc, nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	vendor, err := s.repo.FindVendorByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find vendor")
	}
	if vendor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	return vendor, nil
}

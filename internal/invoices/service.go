package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/aquafindr/aquafindr-backend/pkg/db"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

const signedURLExpiry = 7 * 24 * time.Hour

type URLSigner interface {
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// Service generates and serves invoice records. Generation is idempotent
// per booking; replays return the stored row.
type Service interface {
	Generate(ctx context.Context, bookingID uuid.UUID) (*models.Invoice, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Invoice, error)
}

type service struct {
	repo   Repository
	signer URLSigner
	logg   *logger.Logger
}

// NewService wires invoice dependencies. The signer is optional; without
// credentials the invoice row is stored without a download URL.
func NewService(repo Repository, signer URLSigner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoices repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, signer: signer, logg: logg}, nil
}

func (s *service) Generate(ctx context.Context, bookingID uuid.UUID) (*models.Invoice, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	ctx = s.logg.WithBookingID(ctx, bookingID.String())

	if existing, err := s.repo.FindByBookingID(ctx, bookingID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find invoice")
	} else if existing != nil {
		return existing, nil
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		BookingID:     bookingID,
		InvoiceNumber: invoiceNumber(bookingID, time.Now().UTC()),
	}
	if s.signer != nil {
		object := fmt.Sprintf("invoices/%s.pdf", bookingID)
		url, err := s.signer.SignedReadURL("", object, signedURLExpiry)
		if err != nil {
			s.logg.Warn(ctx, "invoice url signing unavailable")
		} else {
			invoice.URL = url
		}
	}

	if err := s.repo.Create(ctx, invoice); err != nil {
		if dbpkg.IsUniqueViolation(err, bookingUniqueIndex) {
			winner, findErr := s.repo.FindByBookingID(ctx, bookingID)
			if findErr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}

	s.logg.Info(ctx, "invoice generated")
	return invoice, nil
}

func (s *service) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Invoice, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	invoice, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

// invoiceNumber is deterministic per booking so concurrent generations
// collide on the number index instead of minting duplicates.
func invoiceNumber(bookingID uuid.UUID, now time.Time) string {
	ref := strings.ToUpper(strings.ReplaceAll(bookingID.String(), "-", ""))
	return fmt.Sprintf("AF-%s-%s", now.Format("200601"), ref[:10])
}

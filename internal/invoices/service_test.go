package invoices

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

type fakeRepo struct {
	byBooking map[uuid.UUID]*models.Invoice
	createErr error
	created   int
	// missFirstFind makes the initial lookup return nothing, mimicking a
	// concurrent writer landing between the pre-check and the insert.
	missFirstFind bool
	finds         int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byBooking: map[uuid.UUID]*models.Invoice{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created++
	f.byBooking[invoice.BookingID] = invoice
	return nil
}

func (f *fakeRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Invoice, error) {
	f.finds++
	if f.missFirstFind && f.finds == 1 {
		return nil, nil
	}
	invoice, ok := f.byBooking[bookingID]
	if !ok {
		return nil, nil
	}
	return invoice, nil
}

type fakeSigner struct {
	err error
}

func (f *fakeSigner) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example.com/" + object, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "invoices-test"})
}

func TestGenerateCreatesInvoiceWithURL(t *testing.T) {
	repo := newFakeRepo()
	svc, err := NewService(repo, &fakeSigner{}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	bookingID := uuid.New()
	invoice, err := svc.Generate(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if invoice.BookingID != bookingID {
		t.Fatalf("booking id = %s", invoice.BookingID)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "AF-") {
		t.Fatalf("invoice number = %q", invoice.InvoiceNumber)
	}
	if !strings.Contains(invoice.URL, "invoices/"+bookingID.String()) {
		t.Fatalf("url = %q", invoice.URL)
	}
}

func TestGenerateIsIdempotentPerBooking(t *testing.T) {
	repo := newFakeRepo()
	svc, err := NewService(repo, &fakeSigner{}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	bookingID := uuid.New()
	first, err := svc.Generate(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	second, err := svc.Generate(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if first.InvoiceNumber != second.InvoiceNumber {
		t.Fatalf("replay minted new number %q != %q", second.InvoiceNumber, first.InvoiceNumber)
	}
	if repo.created != 1 {
		t.Fatalf("created %d rows, want 1", repo.created)
	}
}

func TestGenerateRecoversFromUniqueViolation(t *testing.T) {
	repo := newFakeRepo()
	svc, err := NewService(repo, nil, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	bookingID := uuid.New()
	winner := &models.Invoice{ID: uuid.New(), BookingID: bookingID, InvoiceNumber: "AF-202608-DEADBEEF00"}
	repo.byBooking[bookingID] = winner
	repo.missFirstFind = true
	repo.createErr = errors.New(`duplicate key value violates unique constraint "ux_invoices_booking"`)

	invoice, err := svc.Generate(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("Generate after race: %v", err)
	}
	if invoice.InvoiceNumber != winner.InvoiceNumber {
		t.Fatalf("invoice = %+v, want winner row", invoice)
	}
}

func TestGenerateSurvivesSignerFailure(t *testing.T) {
	repo := newFakeRepo()
	svc, err := NewService(repo, &fakeSigner{err: errors.New("no credentials")}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	invoice, err := svc.Generate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if invoice.URL != "" {
		t.Fatalf("url = %q, want empty on signer failure", invoice.URL)
	}
}

func TestGetByBookingIDNotFound(t *testing.T) {
	svc, err := NewService(newFakeRepo(), nil, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	_, err = svc.GetByBookingID(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

package reassignment

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/internal/pricing"
	"github.com/aquafindr/aquafindr-backend/pkg/config"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

type fakeBookingRepo struct {
	rows map[uuid.UUID]*models.Booking
}

func newFakeBookingRepo(rows ...*models.Booking) *fakeBookingRepo {
	f := &fakeBookingRepo{rows: map[uuid.UUID]*models.Booking{}}
	for _, row := range rows {
		copied := *row
		f.rows[row.ID] = &copied
	}
	return f
}

func (f *fakeBookingRepo) WithTx(tx *gorm.DB) bookings.Repository { return f }

func (f *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	copied := *booking
	f.rows[booking.ID] = &copied
	return nil
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeBookingRepo) UpdateGuarded(ctx context.Context, booking *models.Booking, guard bookings.StatusTriple) error {
	row, ok := f.rows[booking.ID]
	if !ok || bookings.TripleOf(row) != guard {
		return bookings.ErrStatusChanged
	}
	copied := *booking
	f.rows[booking.ID] = &copied
	return nil
}

func (f *fakeBookingRepo) List(ctx context.Context, params bookings.ListBookingsQuery) ([]models.Booking, *pagination.Cursor, error) {
	return nil, nil, nil
}

type fakeCatalog struct {
	original   *models.SurveyService
	alternates []models.SurveyService
	excluded   []uuid.UUID
}

func (f *fakeCatalog) FindServiceByID(ctx context.Context, id uuid.UUID) (*models.SurveyService, error) {
	return f.original, nil
}

func (f *fakeCatalog) FindAlternateServices(ctx context.Context, name, category string, excludeVendors []uuid.UUID) ([]models.SurveyService, error) {
	f.excluded = excludeVendors
	var out []models.SurveyService
	for _, candidate := range f.alternates {
		skip := false
		for _, vendorID := range excludeVendors {
			if candidate.VendorID == vendorID {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, candidate)
		}
	}
	return out, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
	once   []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.once = append(r.once, event)
	return nil
}

func newTestEngine(t *testing.T, repo *fakeBookingRepo, catalog *fakeCatalog, events *recordingOutbox) *Engine {
	t.Helper()
	calc := pricing.NewCalculator(config.PricingConfig{
		BaseRadiusKm:   30,
		PerKmRate:      10,
		TaxRate:        0.18,
		PlatformFeePct: 0.20,
	})
	logg := logger.New(logger.Options{ServiceName: "reassignment-test", Output: &bytes.Buffer{}})
	engine, err := NewEngine(repo, catalog, passthroughTx{}, events, calc, logg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func rejectedBooking(vendorID uuid.UUID) *models.Booking {
	b := &models.Booking{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		VendorID:   vendorID,
		ServiceID:  uuid.New(),
		Location:   &types.GeoPoint{Lat: 12.9716, Lng: 77.5946},
		Payment: types.PaymentDetails{
			BaseFee:         decimal.NewFromInt(1000),
			Total:           decimal.NewFromInt(1180),
			AdvanceAmount:   decimal.NewFromInt(472),
			RemainingAmount: decimal.NewFromInt(708),
			AdvancePaid:     true,
		},
	}
	b.Status = enums.BookingStatusRejected
	b.VendorStatus = enums.BookingStatusRejected
	b.UserStatus = enums.BookingStatusRejected
	return b
}

// candidateAt places a vendor roughly km kilometers due north of the
// booking location.
func candidateAt(price int64, rating float64, km float64) models.SurveyService {
	vendorID := uuid.New()
	return models.SurveyService{
		ID:       uuid.New(),
		VendorID: vendorID,
		Name:     "Groundwater Survey",
		Category: "residential",
		Price:    decimal.NewFromInt(price),
		Active:   true,
		Approved: true,
		Vendor: &models.Vendor{
			ID:            vendorID,
			AverageRating: rating,
			Active:        true,
			Approved:      true,
			Location:      &types.GeoPoint{Lat: 12.9716 + km/111.0, Lng: 77.5946},
		},
	}
}

func TestReassignPicksHighestRatedThenClosest(t *testing.T) {
	current := uuid.New()
	booking := rejectedBooking(current)
	repo := newFakeBookingRepo(booking)

	a := candidateAt(1000, 4.5, 10)
	b := candidateAt(1000, 4.5, 5)
	c := candidateAt(1000, 4.8, 50)
	catalog := &fakeCatalog{
		original:   &models.SurveyService{ID: booking.ServiceID, Name: "Groundwater Survey", Category: "residential"},
		alternates: []models.SurveyService{a, b, c},
	}
	events := &recordingOutbox{}
	engine := newTestEngine(t, repo, catalog, events)

	updated, err := engine.Reassign(context.Background(), booking.ID, "schedule conflict", enums.RoleVendor)
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if updated.VendorID != c.VendorID {
		t.Fatalf("picked vendor %s, want C (rating dominates distance)", updated.VendorID)
	}

	// With C also rejected, equal-rated A and B tie-break on distance.
	next := rejectedBooking(c.VendorID)
	next.RejectedVendors = updated.RejectedVendors
	repo2 := newFakeBookingRepo(next)
	catalog.alternates = []models.SurveyService{a, b, c}
	engine2 := newTestEngine(t, repo2, catalog, &recordingOutbox{})

	updated2, err := engine2.Reassign(context.Background(), next.ID, "second rejection", enums.RoleVendor)
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if updated2.VendorID != b.VendorID {
		t.Fatalf("picked vendor %s, want B (closer of the tie)", updated2.VendorID)
	}
}

func TestReassignNeverSelectsRejectedVendor(t *testing.T) {
	current := uuid.New()
	booking := rejectedBooking(current)
	repo := newFakeBookingRepo(booking)

	only := candidateAt(1000, 4.9, 5)
	catalog := &fakeCatalog{
		original:   &models.SurveyService{ID: booking.ServiceID, Name: "Groundwater Survey", Category: "residential"},
		alternates: []models.SurveyService{only},
	}
	engine := newTestEngine(t, repo, catalog, &recordingOutbox{})

	updated, err := engine.Reassign(context.Background(), booking.ID, "schedule conflict", enums.RoleVendor)
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}

	var found bool
	for _, vendorID := range catalog.excluded {
		if vendorID == current {
			found = true
		}
	}
	if !found {
		t.Fatalf("rejecting vendor %s missing from exclusion list %v", current, catalog.excluded)
	}
	if updated.VendorID == current {
		t.Fatal("rejecting vendor was selected again")
	}
}

func TestReassignResetsStatusAndReprices(t *testing.T) {
	booking := rejectedBooking(uuid.New())
	repo := newFakeBookingRepo(booking)

	replacement := candidateAt(1500, 4.2, 45)
	catalog := &fakeCatalog{
		original:   &models.SurveyService{ID: booking.ServiceID, Name: "Groundwater Survey", Category: "residential"},
		alternates: []models.SurveyService{replacement},
	}
	engine := newTestEngine(t, repo, catalog, &recordingOutbox{})

	updated, err := engine.Reassign(context.Background(), booking.ID, "schedule conflict", enums.RoleVendor)
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}

	want := bookings.StatusTriple{
		Status:       enums.BookingStatusAssigned,
		VendorStatus: enums.BookingStatusAssigned,
		UserStatus:   enums.BookingStatusAssigned,
	}
	if got := bookings.TripleOf(updated); got != want {
		t.Fatalf("triple = %+v, want ASSIGNED", got)
	}
	if updated.AssignedAt == nil {
		t.Fatal("assigned_at not stamped")
	}
	if updated.ServiceID != replacement.ID || updated.VendorID != replacement.VendorID {
		t.Fatal("service/vendor not swapped to the replacement")
	}
	if !updated.Payment.BaseFee.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("base fee = %s, want repriced 1500", updated.Payment.BaseFee)
	}
	if updated.Payment.Total.Equal(booking.Payment.Total) {
		t.Fatal("total should change with the new vendor's price")
	}
	if !updated.Payment.AdvancePaid {
		t.Fatal("advance paid flag must survive repricing")
	}
	if !updated.Payment.SplitConsistent() {
		t.Fatal("repriced split inconsistent")
	}
}

func TestReassignWithNoCandidatesIsTerminal(t *testing.T) {
	booking := rejectedBooking(uuid.New())
	repo := newFakeBookingRepo(booking)
	catalog := &fakeCatalog{
		original: &models.SurveyService{ID: booking.ServiceID, Name: "Groundwater Survey", Category: "residential"},
	}
	events := &recordingOutbox{}
	engine := newTestEngine(t, repo, catalog, events)

	updated, err := engine.Reassign(context.Background(), booking.ID, "schedule conflict", enums.RoleVendor)
	if err != nil {
		t.Fatalf("terminal outcome must not be an error: %v", err)
	}

	for _, status := range []enums.BookingStatus{updated.Status, updated.VendorStatus, updated.UserStatus} {
		if status != enums.BookingStatusRejected {
			t.Fatalf("status = %s, want REJECTED on all fields", status)
		}
	}
	if updated.RejectionReason == nil || *updated.RejectionReason == "" {
		t.Fatal("composed rejection reason missing")
	}

	if len(events.once) != 1 || events.once[0].EventType != enums.EventBookingFailed {
		t.Fatalf("once events = %+v, want single booking_failed", events.once)
	}
	var notified bool
	for _, ev := range events.events {
		if ev.EventType == enums.EventNotificationRequested {
			notified = true
		}
	}
	if !notified {
		t.Fatal("customer failure notification missing")
	}
}

func TestReassignRequiresRejectedStatus(t *testing.T) {
	booking := rejectedBooking(uuid.New())
	booking.Status = enums.BookingStatusAccepted
	booking.VendorStatus = enums.BookingStatusAccepted
	booking.UserStatus = enums.BookingStatusAccepted
	repo := newFakeBookingRepo(booking)
	engine := newTestEngine(t, repo, &fakeCatalog{}, &recordingOutbox{})

	_, err := engine.Reassign(context.Background(), booking.ID, "schedule conflict", enums.RoleVendor)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected error: %v", err)
	}
}

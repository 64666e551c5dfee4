package bookings

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/internal/pricing"
	"github.com/aquafindr/aquafindr-backend/pkg/config"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

type fakeRepo struct {
	rows map[uuid.UUID]*models.Booking
}

func newFakeRepo(rows ...*models.Booking) *fakeRepo {
	f := &fakeRepo{rows: map[uuid.UUID]*models.Booking{}}
	for _, row := range rows {
		copied := *row
		f.rows[row.ID] = &copied
	}
	return f
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, booking *models.Booking) error {
	copied := *booking
	f.rows[booking.ID] = &copied
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeRepo) UpdateGuarded(ctx context.Context, booking *models.Booking, guard StatusTriple) error {
	row, ok := f.rows[booking.ID]
	if !ok {
		return ErrStatusChanged
	}
	if TripleOf(row) != guard {
		return ErrStatusChanged
	}
	copied := *booking
	f.rows[booking.ID] = &copied
	return nil
}

func (f *fakeRepo) List(ctx context.Context, params ListBookingsQuery) ([]models.Booking, *pagination.Cursor, error) {
	var out []models.Booking
	for _, row := range f.rows {
		if params.CustomerID != uuid.Nil && row.CustomerID != params.CustomerID {
			continue
		}
		if params.VendorID != uuid.Nil && row.VendorID != params.VendorID {
			continue
		}
		out = append(out, *row)
	}
	return out, nil, nil
}

func (f *fakeRepo) stored(t *testing.T, id uuid.UUID) *models.Booking {
	t.Helper()
	row, ok := f.rows[id]
	if !ok {
		t.Fatalf("booking %s missing from repo", id)
	}
	return row
}

type fakeCatalog struct {
	services map[uuid.UUID]*models.SurveyService
}

func (f *fakeCatalog) FindServiceByID(ctx context.Context, id uuid.UUID) (*models.SurveyService, error) {
	return f.services[id], nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) types() []enums.OutboxEventType {
	var out []enums.OutboxEventType
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type fakeOrderOpener struct {
	orders []gateway.OrderParams
	err    error
}

func (f *fakeOrderOpener) OpenOrder(ctx context.Context, params gateway.OrderParams) (*gateway.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, params)
	return &gateway.Order{
		OrderID:   "af-ord-" + uuid.NewString(),
		BookingID: params.BookingID,
		Purpose:   params.Purpose,
		Amount:    params.Amount,
		Currency:  "INR",
	}, nil
}

type fakeReassigner struct {
	calls  []string
	result *models.Booking
}

func (f *fakeReassigner) Reassign(ctx context.Context, bookingID uuid.UUID, reason string, initiatedBy enums.ActorRole) (*models.Booking, error) {
	f.calls = append(f.calls, reason)
	if f.result != nil {
		return f.result, nil
	}
	return &models.Booking{ID: bookingID}, nil
}

type fakeCreditor struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeCreditor) CreditSiteVisit(ctx context.Context, bookingID uuid.UUID) error {
	f.calls = append(f.calls, bookingID)
	return f.err
}

type testHarness struct {
	repo     *fakeRepo
	catalog  *fakeCatalog
	events   *recordingOutbox
	orders   *fakeOrderOpener
	reassign *fakeReassigner
	creditor *fakeCreditor
	svc      Service
}

func newHarness(t *testing.T, rows ...*models.Booking) *testHarness {
	t.Helper()
	h := &testHarness{
		repo:     newFakeRepo(rows...),
		catalog:  &fakeCatalog{services: map[uuid.UUID]*models.SurveyService{}},
		events:   &recordingOutbox{},
		orders:   &fakeOrderOpener{},
		reassign: &fakeReassigner{},
		creditor: &fakeCreditor{},
	}
	calc := pricing.NewCalculator(config.PricingConfig{
		BaseRadiusKm:   30,
		PerKmRate:      10,
		TaxRate:        0.18,
		PlatformFeePct: 0.20,
	})
	logg := logger.New(logger.Options{ServiceName: "bookings-test", Output: &bytes.Buffer{}})
	svc, err := NewService(h.repo, h.catalog, passthroughTx{}, h.events, calc, h.orders, h.reassign, h.creditor, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func activeService(price int64) *models.SurveyService {
	vendorID := uuid.New()
	return &models.SurveyService{
		ID:       uuid.New(),
		VendorID: vendorID,
		Name:     "Groundwater Survey",
		Category: "residential",
		Price:    decimal.NewFromInt(price),
		Active:   true,
		Approved: true,
		Vendor: &models.Vendor{
			ID:       vendorID,
			Active:   true,
			Approved: true,
			Location: &types.GeoPoint{Lat: 12.9716, Lng: 77.5946},
		},
	}
}

func bookingAt(status enums.BookingStatus, vendorID uuid.UUID) *models.Booking {
	b := &models.Booking{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		VendorID:   vendorID,
		ServiceID:  uuid.New(),
		Payment: types.PaymentDetails{
			Total:           decimal.NewFromInt(1298),
			AdvanceAmount:   decimal.NewFromFloat(519.2),
			RemainingAmount: decimal.NewFromFloat(778.8),
		},
	}
	uniform(status).ApplyTo(b)
	return b
}

func vendorActor(vendorID uuid.UUID) Actor {
	return Actor{UserID: uuid.New(), VendorID: vendorID, Role: enums.RoleVendor}
}

func TestCreateOpensAdvanceOrderAndEmitsEvents(t *testing.T) {
	h := newHarness(t)
	svc := activeService(1000)
	h.catalog.services[svc.ID] = svc

	result, err := h.svc.Create(context.Background(), CreateInput{
		CustomerID:   uuid.New(),
		ServiceID:    svc.ID,
		ScheduledFor: time.Now().Add(48 * time.Hour),
		Address:      "12 Tank Bund Road",
		Location:     &types.GeoPoint{Lat: 12.9352, Lng: 77.6245},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	booking := result.Booking
	if got := TripleOf(booking); got != uniform(enums.BookingStatusAwaitingAdvance) {
		t.Fatalf("triple = %+v, want AWAITING_ADVANCE", got)
	}
	if !booking.Payment.SplitConsistent() {
		t.Fatalf("advance %s + remaining %s != total %s",
			booking.Payment.AdvanceAmount, booking.Payment.RemainingAmount, booking.Payment.Total)
	}
	if booking.Payment.AdvanceOrderID == "" || booking.Payment.AdvanceOrderID != result.Order.OrderID {
		t.Fatalf("advance order id not recorded: %q vs %q", booking.Payment.AdvanceOrderID, result.Order.OrderID)
	}
	if len(h.orders.orders) != 1 || h.orders.orders[0].Purpose != gateway.PurposeAdvance {
		t.Fatalf("orders = %+v, want one ADVANCE order", h.orders.orders)
	}
	if !h.orders.orders[0].Amount.Equal(booking.Payment.AdvanceAmount) {
		t.Fatalf("order amount = %s, want %s", h.orders.orders[0].Amount, booking.Payment.AdvanceAmount)
	}

	kinds := h.events.types()
	if len(kinds) != 2 || kinds[0] != enums.EventBookingCreated || kinds[1] != enums.EventBookingAssigned {
		t.Fatalf("events = %v", kinds)
	}
}

func TestCreateRejectsUnavailableService(t *testing.T) {
	h := newHarness(t)
	svc := activeService(1000)
	svc.Active = false
	h.catalog.services[svc.ID] = svc

	_, err := h.svc.Create(context.Background(), CreateInput{
		CustomerID:   uuid.New(),
		ServiceID:    svc.ID,
		ScheduledFor: time.Now().Add(time.Hour),
		Address:      "12 Tank Bund Road",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.orders.orders) != 0 {
		t.Fatal("no gateway order expected for unavailable service")
	}
}

func TestAcceptTransitionsAllThreeFields(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusAssigned, vendorID)
	h := newHarness(t, booking)

	updated, err := h.svc.Accept(context.Background(), DecisionInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got := TripleOf(updated); got != uniform(enums.BookingStatusAccepted) {
		t.Fatalf("triple = %+v, want ACCEPTED", got)
	}
	if updated.AcceptedAt == nil {
		t.Fatal("accepted_at not stamped")
	}
	if got := TripleOf(h.repo.stored(t, booking.ID)); got != uniform(enums.BookingStatusAccepted) {
		t.Fatalf("stored triple = %+v", got)
	}
}

func TestAcceptByWrongVendorLeavesStatusUnchanged(t *testing.T) {
	booking := bookingAt(enums.BookingStatusAssigned, uuid.New())
	h := newHarness(t, booking)

	_, err := h.svc.Accept(context.Background(), DecisionInput{
		BookingID: booking.ID,
		Actor:     vendorActor(uuid.New()),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := TripleOf(h.repo.stored(t, booking.ID)); got != uniform(enums.BookingStatusAssigned) {
		t.Fatalf("stored triple changed: %+v", got)
	}
}

func TestFailedGuardLeavesStatusUnchanged(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusVisited, vendorID)
	h := newHarness(t, booking)

	_, err := h.svc.Accept(context.Background(), DecisionInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := TripleOf(h.repo.stored(t, booking.ID)); got != uniform(enums.BookingStatusVisited) {
		t.Fatalf("stored triple changed: %+v", got)
	}
	if len(h.events.events) != 0 {
		t.Fatalf("no events expected, got %v", h.events.types())
	}
}

func TestRejectRequiresReasonAndInvokesReassignment(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusAssigned, vendorID)
	h := newHarness(t, booking)
	actor := vendorActor(vendorID)

	if _, err := h.svc.Reject(context.Background(), DecisionInput{
		BookingID: booking.ID,
		Actor:     actor,
		Reason:    "no",
	}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("short reason: unexpected error %v", err)
	}
	if len(h.reassign.calls) != 0 {
		t.Fatal("reassignment must not run for a rejected request")
	}

	if _, err := h.svc.Reject(context.Background(), DecisionInput{
		BookingID: booking.ID,
		Actor:     actor,
		Reason:    "equipment failure, cannot travel",
	}); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	stored := h.repo.stored(t, booking.ID)
	if got := TripleOf(stored); got != uniform(enums.BookingStatusRejected) {
		t.Fatalf("stored triple = %+v, want REJECTED", got)
	}
	if stored.RejectionReason == nil || *stored.RejectionReason == "" {
		t.Fatal("rejection reason not recorded")
	}
	if len(h.reassign.calls) != 1 {
		t.Fatalf("reassign calls = %d, want 1", len(h.reassign.calls))
	}
}

func TestVendorCancelRequiresAcceptedStatus(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusAssigned, vendorID)
	h := newHarness(t, booking)

	_, err := h.svc.CancelByVendor(context.Background(), DecisionInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
		Reason:    "double booked this slot",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.reassign.calls) != 0 {
		t.Fatal("reassignment must not run on failed guard")
	}
}

func TestCancelByUserForbiddenForOtherCustomers(t *testing.T) {
	booking := bookingAt(enums.BookingStatusAssigned, uuid.New())
	h := newHarness(t, booking)

	_, err := h.svc.CancelByUser(context.Background(), CancelInput{
		BookingID: booking.ID,
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleCustomer},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkVisitedTriggersSiteVisitCredit(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusAccepted, vendorID)
	h := newHarness(t, booking)

	updated, err := h.svc.MarkVisited(context.Background(), VendorActionInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
	})
	if err != nil {
		t.Fatalf("MarkVisited: %v", err)
	}
	if got := TripleOf(updated); got != uniform(enums.BookingStatusVisited) {
		t.Fatalf("triple = %+v, want VISITED", got)
	}
	if updated.VisitedAt == nil {
		t.Fatal("visited_at not stamped")
	}
	if len(h.creditor.calls) != 1 || h.creditor.calls[0] != booking.ID {
		t.Fatalf("creditor calls = %v", h.creditor.calls)
	}
}

func TestMarkVisitedSurvivesCreditFailure(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusAccepted, vendorID)
	h := newHarness(t, booking)
	h.creditor.err = errors.New("ledger unavailable")

	updated, err := h.svc.MarkVisited(context.Background(), VendorActionInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
	})
	if err != nil {
		t.Fatalf("credit failure must not fail the visit: %v", err)
	}
	if got := TripleOf(updated); got != uniform(enums.BookingStatusVisited) {
		t.Fatalf("triple = %+v, want VISITED", got)
	}
	if got := TripleOf(h.repo.stored(t, booking.ID)); got != uniform(enums.BookingStatusVisited) {
		t.Fatalf("stored triple = %+v, want VISITED", got)
	}
}

func TestUploadReportOpensRemainingOrder(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusVisited, vendorID)
	h := newHarness(t, booking)

	depth := 94.5
	updated, err := h.svc.UploadReport(context.Background(), UploadReportInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
		Report: ReportInput{
			WaterFound:      true,
			DepthMeters:     &depth,
			RecommendedSpot: "north-east corner",
			Media:           []types.MediaRef{{URL: "https://cdn/report.jpg", ObjectID: "reports/1"}},
		},
	})
	if err != nil {
		t.Fatalf("UploadReport: %v", err)
	}

	want := StatusTriple{
		Status:       enums.BookingStatusReportUploaded,
		VendorStatus: enums.BookingStatusReportUploaded,
		UserStatus:   enums.BookingStatusAwaitingPayment,
	}
	if got := TripleOf(updated); got != want {
		t.Fatalf("triple = %+v, want %+v", got, want)
	}
	if updated.Report == nil || !updated.Report.WaterFound {
		t.Fatal("report not recorded")
	}
	if len(h.orders.orders) != 1 || h.orders.orders[0].Purpose != gateway.PurposeRemaining {
		t.Fatalf("orders = %+v, want one REMAINING order", h.orders.orders)
	}
	if !h.orders.orders[0].Amount.Equal(booking.Payment.RemainingAmount) {
		t.Fatalf("order amount = %s, want %s", h.orders.orders[0].Amount, booking.Payment.RemainingAmount)
	}
	if updated.Payment.RemainingOrderID == "" {
		t.Fatal("remaining order id not recorded")
	}
}

func TestUploadReportGuardFailsBeforeGateway(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusAccepted, vendorID)
	h := newHarness(t, booking)

	_, err := h.svc.UploadReport(context.Background(), UploadReportInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
		Report:    ReportInput{WaterFound: false},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.orders.orders) != 0 {
		t.Fatal("gateway order must not be opened when the guard fails")
	}
}

func TestUploadBorewellResultAfterPayment(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusPaymentSuccess, vendorID)
	booking.VendorStatus = enums.BookingStatusReportUploaded
	h := newHarness(t, booking)

	updated, err := h.svc.UploadBorewellResult(context.Background(), UploadBorewellInput{
		BookingID: booking.ID,
		Actor:     vendorActor(vendorID),
		Result:    BorewellInput{WaterStruck: true},
	})
	if err != nil {
		t.Fatalf("UploadBorewellResult: %v", err)
	}
	if got := TripleOf(updated); got != uniform(enums.BookingStatusBorewellUploaded) {
		t.Fatalf("triple = %+v, want BOREWELL_UPLOADED", got)
	}
	if updated.BorewellResult == nil || !updated.BorewellResult.WaterStruck {
		t.Fatal("borewell result not recorded")
	}
}

func TestRequestTravelChargesRejectsDuplicatePending(t *testing.T) {
	vendorID := uuid.New()
	booking := bookingAt(enums.BookingStatusAccepted, vendorID)
	h := newHarness(t, booking)
	actor := vendorActor(vendorID)

	input := TravelChargesInput{
		BookingID: booking.ID,
		Actor:     actor,
		Amount:    decimal.NewFromInt(250),
		Reason:    "site is beyond the quoted radius",
	}
	updated, err := h.svc.RequestTravelCharges(context.Background(), input)
	if err != nil {
		t.Fatalf("RequestTravelCharges: %v", err)
	}
	if updated.TravelChargesRequest == nil || updated.TravelChargesRequest.Status != enums.TravelChargesPending {
		t.Fatalf("request not recorded: %+v", updated.TravelChargesRequest)
	}

	if _, err := h.svc.RequestTravelCharges(context.Background(), input); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("duplicate pending request: unexpected error %v", err)
	}
}

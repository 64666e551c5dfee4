package bookings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aquafindr/aquafindr-backend/api/middleware"
	internalbookings "github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
)

type stubBookingsService struct {
	create        func(ctx context.Context, input internalbookings.CreateInput) (*internalbookings.CreateResult, error)
	list          func(ctx context.Context, input internalbookings.ListInput) (*internalbookings.ListResult, error)
	accept        func(ctx context.Context, input internalbookings.DecisionInput) (*models.Booking, error)
	cancelByUser  func(ctx context.Context, input internalbookings.CancelInput) (*models.Booking, error)
	uploadReport  func(ctx context.Context, input internalbookings.UploadReportInput) (*models.Booking, error)
	travelCharges func(ctx context.Context, input internalbookings.TravelChargesInput) (*models.Booking, error)
}

func (s *stubBookingsService) Create(ctx context.Context, input internalbookings.CreateInput) (*internalbookings.CreateResult, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return &internalbookings.CreateResult{}, nil
}

func (s *stubBookingsService) Get(ctx context.Context, bookingID uuid.UUID, actor internalbookings.Actor) (*models.Booking, error) {
	return &models.Booking{ID: bookingID}, nil
}

func (s *stubBookingsService) List(ctx context.Context, input internalbookings.ListInput) (*internalbookings.ListResult, error) {
	if s.list != nil {
		return s.list(ctx, input)
	}
	return &internalbookings.ListResult{}, nil
}

func (s *stubBookingsService) Accept(ctx context.Context, input internalbookings.DecisionInput) (*models.Booking, error) {
	if s.accept != nil {
		return s.accept(ctx, input)
	}
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) Reject(ctx context.Context, input internalbookings.DecisionInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) CancelByVendor(ctx context.Context, input internalbookings.DecisionInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) CancelByUser(ctx context.Context, input internalbookings.CancelInput) (*models.Booking, error) {
	if s.cancelByUser != nil {
		return s.cancelByUser(ctx, input)
	}
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) MarkVisited(ctx context.Context, input internalbookings.VendorActionInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) UploadReport(ctx context.Context, input internalbookings.UploadReportInput) (*models.Booking, error) {
	if s.uploadReport != nil {
		return s.uploadReport(ctx, input)
	}
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) UploadBorewellResult(ctx context.Context, input internalbookings.UploadBorewellInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) MarkCompleted(ctx context.Context, input internalbookings.VendorActionInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubBookingsService) RequestTravelCharges(ctx context.Context, input internalbookings.TravelChargesInput) (*models.Booking, error) {
	if s.travelCharges != nil {
		return s.travelCharges(ctx, input)
	}
	return &models.Booking{ID: input.BookingID}, nil
}

func withActor(r *http.Request, userID uuid.UUID, role enums.ActorRole, vendorID *uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role.String())
	if vendorID != nil {
		ctx = middleware.WithVendorID(ctx, vendorID.String())
	}
	return r.WithContext(ctx)
}

func withBookingParam(r *http.Request, bookingID uuid.UUID) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("bookingId", bookingID.String())
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateBooking(t *testing.T) {
	userID := uuid.New()
	serviceID := uuid.New()
	var got internalbookings.CreateInput
	svc := &stubBookingsService{
		create: func(ctx context.Context, input internalbookings.CreateInput) (*internalbookings.CreateResult, error) {
			got = input
			return &internalbookings.CreateResult{Booking: &models.Booking{ID: uuid.New()}}, nil
		},
	}

	body := `{"service_id":"` + serviceID.String() + `","scheduled_for":"2026-09-01T10:00:00Z","address":"12 Tank Bund Road, Hyderabad","lat":17.38,"lng":78.48}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req = withActor(req, userID, enums.RoleCustomer, nil)

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.CustomerID != userID {
		t.Fatalf("customer id not mapped from context")
	}
	if got.ServiceID != serviceID {
		t.Fatalf("service id not mapped")
	}
	want := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if !got.ScheduledFor.Equal(want) {
		t.Fatalf("scheduled_for = %s, want %s", got.ScheduledFor, want)
	}
	if got.Location == nil || got.Location.Lat != 17.38 || got.Location.Lng != 78.48 {
		t.Fatalf("location not mapped: %+v", got.Location)
	}
}

func TestCreateBookingRejectsShortAddress(t *testing.T) {
	svc := &stubBookingsService{
		create: func(ctx context.Context, input internalbookings.CreateInput) (*internalbookings.CreateResult, error) {
			t.Fatal("service must not be called on invalid input")
			return nil, nil
		},
	}

	body := `{"service_id":"` + uuid.NewString() + `","scheduled_for":"2026-09-01T10:00:00Z","address":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req = withActor(req, uuid.New(), enums.RoleCustomer, nil)

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateBookingRequiresAuthContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(&stubBookingsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListParsesFilters(t *testing.T) {
	userID := uuid.New()
	var got internalbookings.ListInput
	svc := &stubBookingsService{
		list: func(ctx context.Context, input internalbookings.ListInput) (*internalbookings.ListResult, error) {
			got = input
			return &internalbookings.ListResult{Items: []models.Booking{{ID: uuid.New()}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=5&status=ASSIGNED", nil)
	req = withActor(req, userID, enums.RoleCustomer, nil)

	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.Limit != 5 {
		t.Fatalf("limit = %d, want 5", got.Limit)
	}
	if got.Status == nil || *got.Status != enums.BookingStatusAssigned {
		t.Fatalf("status filter not parsed")
	}
	if got.Actor.UserID != userID {
		t.Fatalf("actor not mapped")
	}

	var envelope struct {
		Data internalbookings.ListResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("unexpected items in response")
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?status=SHIPPED", nil)
	req = withActor(req, uuid.New(), enums.RoleCustomer, nil)

	resp := httptest.NewRecorder()
	List(&stubBookingsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptRequiresVendorRole(t *testing.T) {
	bookingID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/bookings/"+bookingID.String()+"/accept", nil)
	req = withBookingParam(req, bookingID)
	req = withActor(req, uuid.New(), enums.RoleCustomer, nil)

	resp := httptest.NewRecorder()
	Accept(&stubBookingsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAcceptPassesReason(t *testing.T) {
	bookingID := uuid.New()
	vendorID := uuid.New()
	var got internalbookings.DecisionInput
	svc := &stubBookingsService{
		accept: func(ctx context.Context, input internalbookings.DecisionInput) (*models.Booking, error) {
			got = input
			return &models.Booking{ID: input.BookingID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/bookings/"+bookingID.String()+"/accept", strings.NewReader(`{"reason":"on my way"}`))
	req = withBookingParam(req, bookingID)
	req = withActor(req, uuid.New(), enums.RoleVendor, &vendorID)

	resp := httptest.NewRecorder()
	Accept(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.BookingID != bookingID {
		t.Fatalf("booking id not mapped")
	}
	if got.Actor.VendorID != vendorID {
		t.Fatalf("vendor id not mapped")
	}
	if got.Reason != "on my way" {
		t.Fatalf("reason = %q", got.Reason)
	}
}

func TestCancelAllowsEmptyBody(t *testing.T) {
	bookingID := uuid.New()
	var got internalbookings.CancelInput
	svc := &stubBookingsService{
		cancelByUser: func(ctx context.Context, input internalbookings.CancelInput) (*models.Booking, error) {
			got = input
			return &models.Booking{ID: input.BookingID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/cancel", nil)
	req = withBookingParam(req, bookingID)
	req = withActor(req, uuid.New(), enums.RoleCustomer, nil)

	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.BookingID != bookingID || got.Note != "" {
		t.Fatalf("unexpected cancel input: %+v", got)
	}
}

func TestUploadReportMapsFindings(t *testing.T) {
	bookingID := uuid.New()
	vendorID := uuid.New()
	var got internalbookings.UploadReportInput
	svc := &stubBookingsService{
		uploadReport: func(ctx context.Context, input internalbookings.UploadReportInput) (*models.Booking, error) {
			got = input
			return &models.Booking{ID: input.BookingID}, nil
		},
	}

	body := `{"water_found":true,"depth_meters":42.5,"recommended_spot":"north-east corner","media":[{"url":"https://storage.example.com/reports/r1.jpg","object_id":"reports/r1.jpg"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/bookings/"+bookingID.String()+"/report", strings.NewReader(body))
	req = withBookingParam(req, bookingID)
	req = withActor(req, uuid.New(), enums.RoleVendor, &vendorID)

	resp := httptest.NewRecorder()
	UploadReport(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !got.Report.WaterFound {
		t.Fatalf("water_found not mapped")
	}
	if got.Report.DepthMeters == nil || *got.Report.DepthMeters != 42.5 {
		t.Fatalf("depth not mapped: %+v", got.Report.DepthMeters)
	}
	if len(got.Report.Media) != 1 || got.Report.Media[0].ObjectID != "reports/r1.jpg" {
		t.Fatalf("media not mapped: %+v", got.Report.Media)
	}
}

func TestUploadReportRejectsNegativeDepth(t *testing.T) {
	bookingID := uuid.New()
	vendorID := uuid.New()

	body := `{"water_found":true,"depth_meters":-3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/bookings/"+bookingID.String()+"/report", strings.NewReader(body))
	req = withBookingParam(req, bookingID)
	req = withActor(req, uuid.New(), enums.RoleVendor, &vendorID)

	resp := httptest.NewRecorder()
	UploadReport(&stubBookingsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRequestTravelChargesParsesAmount(t *testing.T) {
	bookingID := uuid.New()
	vendorID := uuid.New()
	var got internalbookings.TravelChargesInput
	svc := &stubBookingsService{
		travelCharges: func(ctx context.Context, input internalbookings.TravelChargesInput) (*models.Booking, error) {
			got = input
			return &models.Booking{ID: input.BookingID}, nil
		},
	}

	body := `{"amount":"350.50","reason":"site was 18km beyond the quoted radius"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/bookings/"+bookingID.String()+"/travel-charges", strings.NewReader(body))
	req = withBookingParam(req, bookingID)
	req = withActor(req, uuid.New(), enums.RoleVendor, &vendorID)

	resp := httptest.NewRecorder()
	RequestTravelCharges(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !got.Amount.Equal(decimal.RequireFromString("350.50")) {
		t.Fatalf("amount = %s", got.Amount)
	}
}

func TestRequestTravelChargesRejectsBadAmount(t *testing.T) {
	bookingID := uuid.New()
	vendorID := uuid.New()

	body := `{"amount":"lots","reason":"site was far away"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/bookings/"+bookingID.String()+"/travel-charges", strings.NewReader(body))
	req = withBookingParam(req, bookingID)
	req = withActor(req, uuid.New(), enums.RoleVendor, &vendorID)

	resp := httptest.NewRecorder()
	RequestTravelCharges(&stubBookingsService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

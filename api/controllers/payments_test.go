package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/internal/settlement"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
)

type stubChargeService struct {
	charge func(ctx context.Context, input settlement.ChargeInput) (*models.Booking, error)
}

func (s *stubChargeService) VerifyAdvancePayment(ctx context.Context, input settlement.PaymentEventInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubChargeService) VerifyRemainingPayment(ctx context.Context, input settlement.PaymentEventInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubChargeService) ChargeInstallment(ctx context.Context, input settlement.ChargeInput) (*models.Booking, error) {
	if s.charge != nil {
		return s.charge(ctx, input)
	}
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubChargeService) RecordPaymentFailure(ctx context.Context, input settlement.PaymentFailureInput) error {
	return nil
}

func (s *stubChargeService) CreditSiteVisit(ctx context.Context, bookingID uuid.UUID) error {
	return nil
}

func (s *stubChargeService) ApproveReport(ctx context.Context, input settlement.ApproveReportInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func (s *stubChargeService) DecideTravelCharges(ctx context.Context, input settlement.DecideTravelChargesInput) (*models.Booking, error) {
	return &models.Booking{ID: input.BookingID}, nil
}

func payRequest(bookingID uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/bookings/"+bookingID.String()+"/pay", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("bookingId", bookingID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestPayInstallmentChargesAdvance(t *testing.T) {
	bookingID := uuid.New()
	var got settlement.ChargeInput
	svc := &stubChargeService{
		charge: func(ctx context.Context, input settlement.ChargeInput) (*models.Booking, error) {
			got = input
			return &models.Booking{ID: input.BookingID}, nil
		},
	}

	body := `{"source_id":"cnon:card-nonce","purpose":"ADVANCE","note":"first installment"}`
	resp := httptest.NewRecorder()
	PayInstallment(svc, nil).ServeHTTP(resp, payRequest(bookingID, body))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}
	if got.BookingID != bookingID {
		t.Fatalf("booking id = %s, want %s", got.BookingID, bookingID)
	}
	if got.Purpose != gateway.PurposeAdvance {
		t.Fatalf("purpose = %s, want ADVANCE", got.Purpose)
	}
	if got.SourceID != "cnon:card-nonce" || got.Note != "first installment" {
		t.Fatalf("charge input = %+v", got)
	}

	var envelope struct {
		Data models.Booking `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != bookingID {
		t.Fatalf("response booking = %s, want %s", envelope.Data.ID, bookingID)
	}
}

func TestPayInstallmentRejectsUnknownPurpose(t *testing.T) {
	bookingID := uuid.New()
	called := false
	svc := &stubChargeService{
		charge: func(ctx context.Context, input settlement.ChargeInput) (*models.Booking, error) {
			called = true
			return &models.Booking{ID: input.BookingID}, nil
		},
	}

	body := `{"source_id":"cnon:card-nonce","purpose":"TIP"}`
	resp := httptest.NewRecorder()
	PayInstallment(svc, nil).ServeHTTP(resp, payRequest(bookingID, body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
	if called {
		t.Fatalf("service called with invalid purpose")
	}
}

func TestPayInstallmentRequiresSource(t *testing.T) {
	bookingID := uuid.New()
	resp := httptest.NewRecorder()
	PayInstallment(&stubChargeService{}, nil).ServeHTTP(resp, payRequest(bookingID, `{"purpose":"ADVANCE"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestPayInstallmentRejectsBadBookingID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/bookings/not-a-uuid/pay", strings.NewReader(`{"source_id":"s","purpose":"ADVANCE"}`))
	req.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("bookingId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	PayInstallment(&stubChargeService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

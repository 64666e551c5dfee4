package bookings

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aquafindr/aquafindr-backend/api/middleware"
	"github.com/aquafindr/aquafindr-backend/api/responses"
	"github.com/aquafindr/aquafindr-backend/api/validators"
	internalbookings "github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

type createBookingRequest struct {
	ServiceID    string   `json:"service_id" validate:"required,uuid4"`
	ScheduledFor string   `json:"scheduled_for" validate:"required"`
	Address      string   `json:"address" validate:"required,min=5,max=500"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

// Create opens a booking and the advance-payment order the customer
// completes checkout against.
func Create(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createBookingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serviceID, err := uuid.Parse(strings.TrimSpace(payload.ServiceID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service id"))
			return
		}

		scheduledFor, err := parseTimestamp(payload.ScheduledFor, "scheduled_for")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalbookings.CreateInput{
			CustomerID:   actor.UserID,
			ServiceID:    serviceID,
			ScheduledFor: scheduledFor,
			Address:      strings.TrimSpace(payload.Address),
		}
		if payload.Lat != nil && payload.Lng != nil {
			input.Location = &types.GeoPoint{Lat: *payload.Lat, Lng: *payload.Lng}
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// List returns the caller's bookings, customer or vendor perspective
// depending on the authenticated role.
func List(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := parseStatusParam(r.URL.Query().Get("status"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalbookings.ListInput{
			Actor:  actor,
			Status: status,
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one booking after the service checks the caller owns it.
func Detail(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Get(r.Context(), bookingID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type decisionRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// Accept records the assigned vendor taking the job.
func Accept(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(r *http.Request, input internalbookings.DecisionInput) (any, error) {
		return svc.Accept(r.Context(), input)
	})
}

// Reject declines the assignment and hands the booking to reassignment.
func Reject(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(r *http.Request, input internalbookings.DecisionInput) (any, error) {
		return svc.Reject(r.Context(), input)
	})
}

// VendorCancel backs out of an accepted job and hands the booking to
// reassignment.
func VendorCancel(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(r *http.Request, input internalbookings.DecisionInput) (any, error) {
		return svc.CancelByVendor(r.Context(), input)
	})
}

func decisionHandler(svc internalbookings.Service, logg *logger.Logger, do func(*http.Request, internalbookings.DecisionInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.RoleVendor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload decisionRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		booking, err := do(r, internalbookings.DecisionInput{
			BookingID: bookingID,
			Actor:     actor,
			Reason:    strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type cancelRequest struct {
	Note string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// Cancel is the customer's cancellation.
func Cancel(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		booking, err := svc.CancelByUser(r.Context(), internalbookings.CancelInput{
			BookingID: bookingID,
			Actor:     actor,
			Note:      strings.TrimSpace(payload.Note),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// MarkVisited records the vendor's arrival at the site.
func MarkVisited(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorActionHandler(svc, logg, func(r *http.Request, input internalbookings.VendorActionInput) (any, error) {
		return svc.MarkVisited(r.Context(), input)
	})
}

// MarkCompleted closes the booking once all settlement steps are done.
func MarkCompleted(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorActionHandler(svc, logg, func(r *http.Request, input internalbookings.VendorActionInput) (any, error) {
		return svc.MarkCompleted(r.Context(), input)
	})
}

func vendorActionHandler(svc internalbookings.Service, logg *logger.Logger, do func(*http.Request, internalbookings.VendorActionInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.RoleVendor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := do(r, internalbookings.VendorActionInput{BookingID: bookingID, Actor: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type mediaRefRequest struct {
	URL      string `json:"url" validate:"required,url"`
	ObjectID string `json:"object_id,omitempty"`
}

type uploadReportRequest struct {
	WaterFound      bool              `json:"water_found"`
	DepthMeters     *float64          `json:"depth_meters,omitempty" validate:"omitempty,gt=0"`
	RecommendedSpot string            `json:"recommended_spot,omitempty" validate:"omitempty,max=500"`
	Remarks         string            `json:"remarks,omitempty" validate:"omitempty,max=2000"`
	Media           []mediaRefRequest `json:"media,omitempty" validate:"omitempty,max=20,dive"`
}

// UploadReport attaches the survey findings and opens the remaining-payment
// order.
func UploadReport(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.RoleVendor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload uploadReportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.UploadReport(r.Context(), internalbookings.UploadReportInput{
			BookingID: bookingID,
			Actor:     actor,
			Report: internalbookings.ReportInput{
				WaterFound:      payload.WaterFound,
				DepthMeters:     payload.DepthMeters,
				RecommendedSpot: strings.TrimSpace(payload.RecommendedSpot),
				Remarks:         strings.TrimSpace(payload.Remarks),
				Media:           toMediaRefs(payload.Media),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type uploadBorewellRequest struct {
	WaterStruck bool              `json:"water_struck"`
	DepthMeters *float64          `json:"depth_meters,omitempty" validate:"omitempty,gt=0"`
	Remarks     string            `json:"remarks,omitempty" validate:"omitempty,max=2000"`
	Media       []mediaRefRequest `json:"media,omitempty" validate:"omitempty,max=20,dive"`
}

// UploadBorewell records the post-payment drilling outcome.
func UploadBorewell(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.RoleVendor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload uploadBorewellRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.UploadBorewellResult(r.Context(), internalbookings.UploadBorewellInput{
			BookingID: bookingID,
			Actor:     actor,
			Result: internalbookings.BorewellInput{
				WaterStruck: payload.WaterStruck,
				DepthMeters: payload.DepthMeters,
				Remarks:     strings.TrimSpace(payload.Remarks),
				Media:       toMediaRefs(payload.Media),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type travelChargesRequest struct {
	Amount string `json:"amount" validate:"required"`
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

// RequestTravelCharges files the vendor's extra travel charge request.
func RequestTravelCharges(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.RoleVendor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required"))
			return
		}

		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload travelChargesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		booking, err := svc.RequestTravelCharges(r.Context(), internalbookings.TravelChargesInput{
			BookingID: bookingID,
			Actor:     actor,
			Amount:    amount,
			Reason:    strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

func actorFromRequest(r *http.Request) (internalbookings.Actor, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return internalbookings.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return internalbookings.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	actor := internalbookings.Actor{
		UserID: userID,
		Role:   enums.ActorRole(middleware.RoleFromContext(r.Context())),
	}
	if rawVendor := middleware.VendorIDFromContext(r.Context()); rawVendor != "" {
		vendorID, err := uuid.Parse(rawVendor)
		if err != nil {
			return internalbookings.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
		}
		actor.VendorID = vendorID
	}
	return actor, nil
}

func parseBookingID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "bookingId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id")
	}
	return parsed, nil
}

func parseStatusParam(raw string) (*enums.BookingStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	status, err := enums.ParseBookingStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return &status, nil
}

func parseTimestamp(value, field string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
		}
	}
	return t, nil
}

func toMediaRefs(in []mediaRefRequest) []types.MediaRef {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.MediaRef, 0, len(in))
	for _, m := range in {
		out = append(out, types.MediaRef{URL: strings.TrimSpace(m.URL), ObjectID: strings.TrimSpace(m.ObjectID)})
	}
	return out
}

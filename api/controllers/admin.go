package controllers

import (
	"net/http"
	"strings"

	"github.com/aquafindr/aquafindr-backend/api/responses"
	"github.com/aquafindr/aquafindr-backend/api/validators"
	"github.com/aquafindr/aquafindr-backend/internal/settlement"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

type approveReportRequest struct {
	Complete bool `json:"complete,omitempty"`
}

// AdminApproveReport signs off on the survey findings and releases the
// report-upload installment to the vendor wallet.
func AdminApproveReport(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		adminID, err := parseContextUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := parseURLID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload approveReportRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		booking, err := svc.ApproveReport(r.Context(), settlement.ApproveReportInput{
			BookingID:  bookingID,
			ApprovedBy: adminID,
			Complete:   payload.Complete,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type travelChargesDecisionRequest struct {
	Decision string `json:"decision" validate:"required"`
}

// AdminDecideTravelCharges resolves a pending travel charge request.
// Approval credits the vendor wallet with the requested amount.
func AdminDecideTravelCharges(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		adminID, err := parseContextUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := parseURLID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload travelChargesDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var approve bool
		switch strings.ToLower(strings.TrimSpace(payload.Decision)) {
		case "approve":
			approve = true
		case "reject":
			approve = false
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve or reject"))
			return
		}

		booking, err := svc.DecideTravelCharges(r.Context(), settlement.DecideTravelChargesInput{
			BookingID: bookingID,
			DecidedBy: adminID,
			Role:      enums.RoleAdmin,
			Approve:   approve,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

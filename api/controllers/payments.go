package controllers

import (
	"net/http"
	"strings"

	"github.com/aquafindr/aquafindr-backend/api/responses"
	"github.com/aquafindr/aquafindr-backend/api/validators"
	"github.com/aquafindr/aquafindr-backend/internal/settlement"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

type payInstallmentRequest struct {
	SourceID string `json:"source_id" validate:"required"`
	Purpose  string `json:"purpose" validate:"required,oneof=ADVANCE REMAINING"`
	Note     string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// PayInstallment collects a booking installment server side from a
// tokenized card source. The alternative path is client-side checkout
// reported back through the payment webhook.
func PayInstallment(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		bookingID, err := parseURLID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload payInstallmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.ChargeInstallment(r.Context(), settlement.ChargeInput{
			BookingID: bookingID,
			Purpose:   gateway.OrderPurpose(strings.ToUpper(strings.TrimSpace(payload.Purpose))),
			SourceID:  strings.TrimSpace(payload.SourceID),
			Note:      strings.TrimSpace(payload.Note),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

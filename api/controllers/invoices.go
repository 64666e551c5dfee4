package controllers

import (
	"net/http"

	"github.com/aquafindr/aquafindr-backend/api/responses"
	"github.com/aquafindr/aquafindr-backend/internal/invoices"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

// BookingInvoice returns the invoice row for a settled booking.
func BookingInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoices service unavailable"))
			return
		}

		bookingID, err := parseURLID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.GetByBookingID(r.Context(), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

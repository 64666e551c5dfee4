package types

import (
	"time"

	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// TravelChargesRequest is a vendor-initiated amendment asking for extra
// travel charges on a booking. Its status moves independently of the
// booking status.
type TravelChargesRequest struct {
	Amount      decimal.Decimal           `json:"amount"`
	Reason      string                    `json:"reason"`
	Status      enums.TravelChargesStatus `json:"status"`
	RequestedAt time.Time                 `json:"requestedAt"`
	DecidedAt   *time.Time                `json:"decidedAt,omitempty"`
	DecidedBy   string                    `json:"decidedBy,omitempty"`
}

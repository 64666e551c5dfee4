package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/aquafindr/aquafindr-backend/pkg/config"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

var (
	two          = decimal.NewFromInt(2)
	one          = decimal.NewFromInt(1)
	advanceShare = decimal.NewFromFloat(0.4)
)

// Calculator prices a survey engagement. All intermediate math stays in
// decimal with full precision; rounding to two places happens only at
// presentation time via types.Round2.
type Calculator struct {
	baseRadiusKm   decimal.Decimal
	perKmRate      decimal.Decimal
	taxRate        decimal.Decimal
	platformFeePct decimal.Decimal
}

func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{
		baseRadiusKm:   decimal.NewFromFloat(cfg.BaseRadiusKm),
		perKmRate:      decimal.NewFromFloat(cfg.PerKmRate),
		taxRate:        decimal.NewFromFloat(cfg.TaxRate),
		platformFeePct: decimal.NewFromFloat(cfg.PlatformFeePct),
	}
}

// Quote computes the full payment value object for a base fee and a
// vendor-to-site distance. hasDistance=false means no travel surcharge.
func (c *Calculator) Quote(baseFee decimal.Decimal, distanceKm float64, hasDistance bool) types.PaymentDetails {
	surcharge := decimal.Zero
	if hasDistance {
		excess := decimal.NewFromFloat(distanceKm).Sub(c.baseRadiusKm)
		if excess.IsPositive() {
			surcharge = excess.Mul(c.perKmRate)
		}
	}

	subtotal := baseFee.Add(surcharge)
	tax := subtotal.Mul(c.taxRate)
	total := subtotal.Add(tax)
	advance := total.Mul(advanceShare)
	remaining := total.Sub(advance)

	payout := c.vendorShare(baseFee, surcharge)
	installment := payout.Div(two)

	return types.PaymentDetails{
		BaseFee:         baseFee,
		TravelSurcharge: surcharge,
		Subtotal:        subtotal,
		Tax:             tax,
		Total:           total,
		AdvanceAmount:   advance,
		RemainingAmount: remaining,
		VendorPayout:    payout,
		VendorWalletPayments: types.VendorWalletPayments{
			SiteVisitPayment:    types.InstallmentPayment{Amount: installment},
			ReportUploadPayment: types.InstallmentPayment{Amount: payout.Sub(installment)},
		},
	}
}

// Requote reprices a booking for a new vendor while preserving the already
// settled flags. Settlement state carries over; all amounts are replaced.
func (c *Calculator) Requote(prev types.PaymentDetails, baseFee decimal.Decimal, distanceKm float64, hasDistance bool) types.PaymentDetails {
	next := c.Quote(baseFee, distanceKm, hasDistance)
	next.AdvancePaid = prev.AdvancePaid
	next.AdvancePaidAt = prev.AdvancePaidAt
	next.AdvanceOrderID = prev.AdvanceOrderID
	next.AdvancePaymentID = prev.AdvancePaymentID
	next.RemainingPaid = prev.RemainingPaid
	next.RemainingPaidAt = prev.RemainingPaidAt
	next.RemainingOrderID = prev.RemainingOrderID
	next.RemainingPaymentID = prev.RemainingPaymentID
	return next
}

// vendorShare deducts the platform fee from the vendor-earned portion
// (base fee plus travel surcharge; tax is passed through, not earned).
func (c *Calculator) vendorShare(baseFee, surcharge decimal.Decimal) decimal.Decimal {
	earned := baseFee.Add(surcharge)
	return earned.Mul(one.Sub(c.platformFeePct))
}

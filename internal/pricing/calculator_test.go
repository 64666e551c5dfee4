package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aquafindr/aquafindr-backend/pkg/config"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		BaseRadiusKm:   30,
		PerKmRate:      10,
		TaxRate:        0.18,
		PlatformFeePct: 0.20,
	}
}

func TestQuoteEndToEndFigures(t *testing.T) {
	calc := NewCalculator(testPricingConfig())

	quote := calc.Quote(decimal.NewFromInt(1000), 40, true)

	assertDecimal(t, "surcharge", quote.TravelSurcharge, "100")
	assertDecimal(t, "subtotal", quote.Subtotal, "1100")
	assertDecimal(t, "tax", quote.Tax, "198")
	assertDecimal(t, "total", quote.Total, "1298")
	assertDecimal(t, "advance", quote.AdvanceAmount, "519.2")
	assertDecimal(t, "remaining", quote.RemainingAmount, "778.8")

	if !quote.SplitConsistent() {
		t.Fatalf("advance %s + remaining %s should equal total %s",
			quote.AdvanceAmount, quote.RemainingAmount, quote.Total)
	}
}

func TestQuoteWithinBaseRadiusHasNoSurcharge(t *testing.T) {
	calc := NewCalculator(testPricingConfig())

	quote := calc.Quote(decimal.NewFromInt(1000), 12, true)
	if !quote.TravelSurcharge.IsZero() {
		t.Fatalf("surcharge = %s, want 0", quote.TravelSurcharge)
	}
	assertDecimal(t, "subtotal", quote.Subtotal, "1000")
}

func TestQuoteMissingDistanceHasNoSurcharge(t *testing.T) {
	calc := NewCalculator(testPricingConfig())

	quote := calc.Quote(decimal.NewFromInt(500), 0, false)
	if !quote.TravelSurcharge.IsZero() {
		t.Fatalf("surcharge = %s, want 0", quote.TravelSurcharge)
	}
}

func TestVendorPayoutSplitsIntoTwoInstallments(t *testing.T) {
	calc := NewCalculator(testPricingConfig())

	quote := calc.Quote(decimal.NewFromInt(1000), 40, true)

	// 20% platform fee over base+surcharge: (1000+100)*0.8 = 880
	assertDecimal(t, "payout", quote.VendorPayout, "880")
	assertDecimal(t, "site visit installment", quote.VendorWalletPayments.SiteVisitPayment.Amount, "440")
	assertDecimal(t, "report installment", quote.VendorWalletPayments.ReportUploadPayment.Amount, "440")

	sum := quote.VendorWalletPayments.SiteVisitPayment.Amount.
		Add(quote.VendorWalletPayments.ReportUploadPayment.Amount)
	if !sum.Equal(quote.VendorPayout) {
		t.Fatalf("installments sum %s != payout %s", sum, quote.VendorPayout)
	}
}

func TestRequotePreservesSettlementFlags(t *testing.T) {
	calc := NewCalculator(testPricingConfig())

	prev := calc.Quote(decimal.NewFromInt(1000), 40, true)
	prev.AdvancePaid = true
	prev.AdvanceOrderID = "af-ord-1"
	prev.AdvancePaymentID = "pay-1"

	next := calc.Requote(prev, decimal.NewFromInt(1200), 10, true)

	if !next.AdvancePaid {
		t.Fatal("advance paid flag must survive repricing")
	}
	if next.AdvanceOrderID != "af-ord-1" || next.AdvancePaymentID != "pay-1" {
		t.Fatalf("settlement references lost: %+v", next)
	}
	assertDecimal(t, "repriced subtotal", next.Subtotal, "1200")
	if next.Total.Equal(prev.Total) {
		t.Fatal("expected total to change with new vendor pricing")
	}
	if next.VendorWalletPayments.SiteVisitPayment.Credited {
		t.Fatal("new payout plan must start uncredited")
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Bengaluru to Mysuru is roughly 128-130 km great-circle.
	blr := types.GeoPoint{Lat: 12.9716, Lng: 77.5946}
	mys := types.GeoPoint{Lat: 12.2958, Lng: 76.6394}

	got := HaversineKm(blr, mys)
	if math.Abs(got-128) > 5 {
		t.Fatalf("distance = %.2f km, want ~128", got)
	}

	if d := HaversineKm(blr, blr); d != 0 {
		t.Fatalf("zero distance expected, got %f", d)
	}
}

func TestDistanceKmMissingCoordinates(t *testing.T) {
	site := &types.GeoPoint{Lat: 12.9716, Lng: 77.5946}

	if _, ok := DistanceKm(nil, site); ok {
		t.Fatal("nil vendor location should not be comparable")
	}
	if _, ok := DistanceKm(site, &types.GeoPoint{}); ok {
		t.Fatal("zero site location should not be comparable")
	}
	if d, ok := DistanceKm(site, site); !ok || d != 0 {
		t.Fatalf("same point should be comparable at 0, got %f %v", d, ok)
	}
}

func TestRound2TruncatesForPresentation(t *testing.T) {
	if got := types.Round2(decimal.NewFromFloat(519.2089)); got.String() != "519.2" {
		t.Fatalf("Round2 = %s, want 519.2", got)
	}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	expected, err := decimal.NewFromString(want)
	if err != nil {
		t.Fatalf("bad expected value %q: %v", want, err)
	}
	if !got.Equal(expected) {
		t.Fatalf("%s = %s, want %s", field, got, want)
	}
}

package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentDetails is the booking's pricing and settlement value object. It is
// recomputed wholesale on (re)pricing and swapped atomically; individual
// fields are never updated in place, so a reader can never observe a
// subtotal/total/advance combination from two different pricings.
type PaymentDetails struct {
	BaseFee         decimal.Decimal `json:"baseFee"`
	TravelSurcharge decimal.Decimal `json:"travelSurcharge"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	AdvanceAmount   decimal.Decimal `json:"advanceAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`

	AdvancePaid        bool       `json:"advancePaid"`
	AdvancePaidAt      *time.Time `json:"advancePaidAt,omitempty"`
	AdvanceOrderID     string     `json:"advanceOrderId,omitempty"`
	AdvancePaymentID   string     `json:"advancePaymentId,omitempty"`
	RemainingPaid      bool       `json:"remainingPaid"`
	RemainingPaidAt    *time.Time `json:"remainingPaidAt,omitempty"`
	RemainingOrderID   string     `json:"remainingOrderId,omitempty"`
	RemainingPaymentID string     `json:"remainingPaymentId,omitempty"`

	VendorPayout         decimal.Decimal      `json:"vendorPayout"`
	VendorWalletPayments VendorWalletPayments `json:"vendorWalletPayments"`
}

// VendorWalletPayments is the two-installment payout plan for the assigned
// vendor: half on site visit, half on report approval.
type VendorWalletPayments struct {
	SiteVisitPayment    InstallmentPayment `json:"siteVisitPayment"`
	ReportUploadPayment InstallmentPayment `json:"reportUploadPayment"`
}

// InstallmentPayment records one payout installment and its ledger reference.
type InstallmentPayment struct {
	Amount        decimal.Decimal `json:"amount"`
	Credited      bool            `json:"credited"`
	CreditedAt    *time.Time      `json:"creditedAt,omitempty"`
	TransactionID *uuid.UUID      `json:"transactionId,omitempty"`
}

// SplitConsistent checks the advance/remaining split against the total,
// within a one paisa tolerance.
func (p PaymentDetails) SplitConsistent() bool {
	diff := p.AdvanceAmount.Add(p.RemainingAmount).Sub(p.Total).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(0.01))
}

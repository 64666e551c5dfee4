package gateway

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
)

// OrderPurpose names the installment an order collects.
type OrderPurpose string

const (
	PurposeAdvance   OrderPurpose = "ADVANCE"
	PurposeRemaining OrderPurpose = "REMAINING"
)

// OrderParams describes the collect intent for a booking installment.
type OrderParams struct {
	BookingID uuid.UUID
	Purpose   OrderPurpose
	Amount    decimal.Decimal
	Currency  string
}

func (p OrderParams) validate() error {
	if p.BookingID == uuid.Nil {
		return errors.New("booking id is required")
	}
	if p.Purpose != PurposeAdvance && p.Purpose != PurposeRemaining {
		return errors.New("order purpose must be ADVANCE or REMAINING")
	}
	if !p.Amount.IsPositive() {
		return errors.New("order amount must be positive")
	}
	return nil
}

// Order is the gateway-facing reference a client completes checkout against.
type Order struct {
	OrderID   string
	BookingID uuid.UUID
	Purpose   OrderPurpose
	Amount    decimal.Decimal
	Currency  string
}

// PaymentParams encapsulates the inputs for a server-side charge.
type PaymentParams struct {
	Amount         decimal.Decimal
	Currency       string
	SourceID       string
	OrderID        string
	Note           string
	IdempotencyKey string
}

// PaymentStatusCompleted is the gateway's terminal status for a captured
// charge.
const PaymentStatusCompleted = "COMPLETED"

// Payment is the gateway's record of a charge, reduced to the fields the
// settlement flow consumes.
type Payment struct {
	PaymentID   string
	Status      string
	ReferenceID string
	AmountCents int64
	Currency    string
}

// Captured reports whether the gateway settled the charge.
func (p *Payment) Captured() bool {
	return p != nil && strings.EqualFold(p.Status, PaymentStatusCompleted)
}

func paymentFromSDK(payment *sq.Payment) *Payment {
	if payment == nil {
		return nil
	}
	out := &Payment{
		PaymentID:   stringValue(payment.GetID()),
		Status:      stringValue(payment.GetStatus()),
		ReferenceID: stringValue(payment.GetReferenceID()),
	}
	if money := payment.GetAmountMoney(); money != nil {
		if money.Amount != nil {
			out.AmountCents = *money.Amount
		}
		if money.Currency != nil {
			out.Currency = string(*money.Currency)
		}
	}
	return out
}

// AmountCents converts the decimal amount into the gateway's minor units.
func (p PaymentParams) AmountCents() int64 {
	return p.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (p PaymentParams) toGatewayRequest(locationID, currency, idempotencyKey string) (*sq.CreatePaymentRequest, error) {
	if strings.TrimSpace(p.SourceID) == "" {
		return nil, errors.New("payment source id is required")
	}
	if !p.Amount.IsPositive() {
		return nil, errors.New("payment amount must be positive")
	}

	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       p.SourceID,
		AmountMoney:    moneyPtr(p.AmountCents(), currency),
	}
	if trimmed := strings.TrimSpace(locationID); trimmed != "" {
		req.LocationID = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.OrderID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	return req, nil
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	code := sq.Currency(strings.ToUpper(strings.TrimSpace(currency)))
	return &sq.Money{
		Amount:   &amount,
		Currency: &code,
	}
}

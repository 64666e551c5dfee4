package settlement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/internal/wallet"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/payloads"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentGateway interface {
	VerifySignature(orderID, paymentID, signature string) error
	SignPayment(orderID, paymentID string) string
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
	ChargePayment(ctx context.Context, params gateway.PaymentParams) (*gateway.Payment, error)
}

type walletLedger interface {
	Credit(ctx context.Context, input wallet.CreditInput) (*wallet.CreditOutcome, error)
}

// Service applies verified payment events to bookings and drives the
// vendor payout checkpoints. Signature verification failures are fatal to
// the triggering request; credit failures never are.
type Service interface {
	VerifyAdvancePayment(ctx context.Context, input PaymentEventInput) (*models.Booking, error)
	VerifyRemainingPayment(ctx context.Context, input PaymentEventInput) (*models.Booking, error)
	ChargeInstallment(ctx context.Context, input ChargeInput) (*models.Booking, error)
	RecordPaymentFailure(ctx context.Context, input PaymentFailureInput) error
	CreditSiteVisit(ctx context.Context, bookingID uuid.UUID) error
	ApproveReport(ctx context.Context, input ApproveReportInput) (*models.Booking, error)
	DecideTravelCharges(ctx context.Context, input DecideTravelChargesInput) (*models.Booking, error)
}

type service struct {
	repo   bookings.Repository
	tx     txRunner
	outbox outboxPublisher
	gw     paymentGateway
	ledger walletLedger
	logg   *logger.Logger
}

// PaymentEventInput is a gateway callback for one installment.
type PaymentEventInput struct {
	BookingID uuid.UUID
	OrderID   string
	PaymentID string
	Signature string
}

// PaymentFailureInput records a failed or unverifiable gateway callback.
type PaymentFailureInput struct {
	BookingID uuid.UUID
	OrderID   string
	Reason    string
}

// ChargeInput collects an installment server side against a tokenized
// payment source, instead of waiting for a client-checkout webhook.
type ChargeInput struct {
	BookingID uuid.UUID
	Purpose   gateway.OrderPurpose
	SourceID  string
	Note      string
}

// ApproveReportInput is the administrative action that releases the second
// payout installment.
type ApproveReportInput struct {
	BookingID  uuid.UUID
	ApprovedBy uuid.UUID
	// Complete additionally closes the booking when the remaining payment
	// has settled.
	Complete bool
}

// DecideTravelChargesInput resolves a pending travel charges request.
type DecideTravelChargesInput struct {
	BookingID uuid.UUID
	DecidedBy uuid.UUID
	Role      enums.ActorRole
	Approve   bool
}

// NewService wires the settlement dependencies.
func NewService(
	repo bookings.Repository,
	tx txRunner,
	events outboxPublisher,
	gw paymentGateway,
	ledger walletLedger,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if gw == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet ledger required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, tx: tx, outbox: events, gw: gw, ledger: ledger, logg: logg}, nil
}

func (s *service) VerifyAdvancePayment(ctx context.Context, input PaymentEventInput) (*models.Booking, error) {
	if err := validatePaymentEvent(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithBookingID(ctx, input.BookingID.String())
	if err := s.resolveCapturedPayment(ctx, input.PaymentID); err != nil {
		return nil, err
	}

	var booking *models.Booking
	var alreadyPaid bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.loadBooking(ctx, repo, input.BookingID)
		if err != nil {
			return err
		}
		if b.Payment.AdvanceOrderID == "" || b.Payment.AdvanceOrderID != input.OrderID {
			return pkgerrors.New(pkgerrors.CodeValidation, "order does not match booking")
		}
		if err := s.gw.VerifySignature(input.OrderID, input.PaymentID, input.Signature); err != nil {
			return err
		}
		if b.Payment.AdvancePaid {
			booking = b
			alreadyPaid = true
			return nil
		}

		guard := bookings.TripleOf(b)
		next, err := bookings.Apply(bookings.ActionAdvancePaymentVerified, guard)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		b.Payment.AdvancePaid = true
		b.Payment.AdvancePaidAt = &now
		b.Payment.AdvancePaymentID = input.PaymentID
		b.AssignedAt = &now
		next.ApplyTo(b)

		if err := repo.UpdateGuarded(ctx, b, guard); err != nil {
			return mapUpdateErr(err)
		}
		booking = b

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAdvancePaid,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         systemActor(),
			Data: payloads.PaymentRecordedEvent{
				BookingID: b.ID,
				OrderID:   input.OrderID,
				PaymentID: input.PaymentID,
				Amount:    b.Payment.AdvanceAmount,
				Purpose:   "ADVANCE",
			},
			Version: 1,
		}); err != nil {
			return err
		}
		return s.notify(ctx, tx, b, payloads.NotificationRequestedEvent{
			BookingID: b.ID,
			Recipient: b.VendorID,
			Kind:      enums.RecipientVendor,
			Event:     enums.NotifyBookingAssigned,
		})
	})
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		s.logg.Info(ctx, "advance already recorded")
		return booking, nil
	}

	s.logg.Info(ctx, "advance payment verified")

	// A travel surcharge is credited once; the SUCCESS triple makes the
	// retry after a dropped callback a no-op.
	if booking.Payment.TravelSurcharge.IsPositive() {
		s.creditBestEffort(ctx, booking, enums.WalletTxTravelCharges, booking.Payment.TravelSurcharge)
	}
	return booking, nil
}

func (s *service) VerifyRemainingPayment(ctx context.Context, input PaymentEventInput) (*models.Booking, error) {
	if err := validatePaymentEvent(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithBookingID(ctx, input.BookingID.String())
	if err := s.resolveCapturedPayment(ctx, input.PaymentID); err != nil {
		return nil, err
	}

	var booking *models.Booking
	var alreadyPaid bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.loadBooking(ctx, repo, input.BookingID)
		if err != nil {
			return err
		}
		if b.Payment.RemainingOrderID == "" || b.Payment.RemainingOrderID != input.OrderID {
			return pkgerrors.New(pkgerrors.CodeValidation, "order does not match booking")
		}
		if err := s.gw.VerifySignature(input.OrderID, input.PaymentID, input.Signature); err != nil {
			return err
		}
		if b.Payment.RemainingPaid {
			booking = b
			alreadyPaid = true
			return nil
		}

		guard := bookings.TripleOf(b)
		next, err := bookings.Apply(bookings.ActionRemainingPaymentVerified, guard)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		b.Payment.RemainingPaid = true
		b.Payment.RemainingPaidAt = &now
		b.Payment.RemainingPaymentID = input.PaymentID
		next.ApplyTo(b)

		if err := repo.UpdateGuarded(ctx, b, guard); err != nil {
			return mapUpdateErr(err)
		}
		booking = b

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRemainingPaid,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         systemActor(),
			Data: payloads.PaymentRecordedEvent{
				BookingID: b.ID,
				OrderID:   input.OrderID,
				PaymentID: input.PaymentID,
				Amount:    b.Payment.RemainingAmount,
				Purpose:   "REMAINING",
			},
			Version: 1,
		}); err != nil {
			return err
		}

		// Invoice generation rides the outbox; a worker failure later
		// never rolls back the payment state.
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceRequested,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         systemActor(),
			Data: payloads.InvoiceRequestedEvent{
				BookingID:  b.ID,
				CustomerID: b.CustomerID,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		return s.notify(ctx, tx, b, payloads.NotificationRequestedEvent{
			BookingID: b.ID,
			Recipient: b.VendorID,
			Kind:      enums.RecipientVendor,
			Event:     enums.NotifyPaymentReceived,
		})
	})
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		s.logg.Info(ctx, "remaining payment already recorded")
	} else {
		s.logg.Info(ctx, "remaining payment verified")
	}
	return booking, nil
}

// ChargeInstallment collects an installment with the gateway and then
// settles it through the same verified-payment path the webhook uses, so
// both entry points share one transition and one idempotency story.
func (s *service) ChargeInstallment(ctx context.Context, input ChargeInput) (*models.Booking, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if strings.TrimSpace(input.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source id required")
	}
	if input.Purpose != gateway.PurposeAdvance && input.Purpose != gateway.PurposeRemaining {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purpose must be ADVANCE or REMAINING")
	}
	ctx = s.logg.WithBookingID(ctx, input.BookingID.String())

	b, err := s.loadBooking(ctx, s.repo, input.BookingID)
	if err != nil {
		return nil, err
	}

	orderID := b.Payment.AdvanceOrderID
	amount := b.Payment.AdvanceAmount
	paid := b.Payment.AdvancePaid
	if input.Purpose == gateway.PurposeRemaining {
		orderID = b.Payment.RemainingOrderID
		amount = b.Payment.RemainingAmount
		paid = b.Payment.RemainingPaid
	}
	if paid {
		s.logg.Info(ctx, "installment already settled")
		return b, nil
	}
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "installment is not open for payment")
	}

	// The order id keys the charge so a double submit cannot collect the
	// same installment twice.
	payment, err := s.gw.ChargePayment(ctx, gateway.PaymentParams{
		Amount:         amount,
		SourceID:       input.SourceID,
		OrderID:        orderID,
		Note:           strings.TrimSpace(input.Note),
		IdempotencyKey: "charge-" + orderID,
	})
	if err != nil {
		return nil, err
	}
	if !payment.Captured() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway did not capture the payment")
	}

	event := PaymentEventInput{
		BookingID: b.ID,
		OrderID:   orderID,
		PaymentID: payment.PaymentID,
		Signature: s.gw.SignPayment(orderID, payment.PaymentID),
	}
	if input.Purpose == gateway.PurposeAdvance {
		return s.VerifyAdvancePayment(ctx, event)
	}
	return s.VerifyRemainingPayment(ctx, event)
}

func (s *service) RecordPaymentFailure(ctx context.Context, input PaymentFailureInput) error {
	if input.BookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	ctx = s.logg.WithBookingID(ctx, input.BookingID.String())

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateBooking,
			AggregateID:   input.BookingID,
			Actor:         systemActor(),
			Data: payloads.PaymentFailedEvent{
				BookingID: input.BookingID,
				OrderID:   input.OrderID,
				Reason:    input.Reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}
	s.logg.Warn(ctx, "payment failure recorded")
	return nil
}

// CreditSiteVisit releases the first payout installment. The visit
// transition is already committed when this runs; any failure here lands
// on the ledger for the retry sweep.
func (s *service) CreditSiteVisit(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}

	installment := booking.Payment.VendorWalletPayments.SiteVisitPayment
	if installment.Credited {
		return nil
	}
	if !installment.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "site visit installment not priced")
	}

	return s.creditInstallment(ctx, booking, enums.WalletTxSiteVisit, installment.Amount)
}

func (s *service) ApproveReport(ctx context.Context, input ApproveReportInput) (*models.Booking, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.ApprovedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "approver identity missing")
	}
	ctx = s.logg.WithBookingID(ctx, input.BookingID.String())

	var booking *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.loadBooking(ctx, repo, input.BookingID)
		if err != nil {
			return err
		}
		if b.VendorStatus != enums.BookingStatusReportUploaded {
			return pkgerrors.NewStateConflict(b.VendorStatus.String(), enums.BookingStatusReportUploaded.String())
		}
		if b.Report == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "booking has no report")
		}
		if b.Report.Approved {
			booking = b
			return nil
		}

		now := time.Now().UTC()
		b.Report.Approved = true
		b.Report.ApprovedAt = &now

		if err := repo.UpdateGuarded(ctx, b, bookings.TripleOf(b)); err != nil {
			return mapUpdateErr(err)
		}
		booking = b

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReportApproved,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         &outbox.ActorRef{UserID: input.ApprovedBy, Role: enums.RoleAdmin.String()},
			Data: payloads.ReportApprovedEvent{
				BookingID:  b.ID,
				VendorID:   b.VendorID,
				ApprovedBy: input.ApprovedBy,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "survey report approved")

	installment := booking.Payment.VendorWalletPayments.ReportUploadPayment
	if !installment.Credited && installment.Amount.IsPositive() {
		if err := s.creditInstallment(ctx, booking, enums.WalletTxReportUpload, installment.Amount); err != nil {
			s.logg.Error(ctx, "report installment credit", err)
		}
	}

	if input.Complete && booking.Payment.RemainingPaid {
		if completed, err := s.complete(ctx, booking.ID, input.ApprovedBy); err != nil {
			s.logg.Error(ctx, "completion after approval", err)
		} else {
			booking = completed
		}
	}
	return booking, nil
}

func (s *service) DecideTravelCharges(ctx context.Context, input DecideTravelChargesInput) (*models.Booking, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.DecidedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "decider identity missing")
	}
	ctx = s.logg.WithBookingID(ctx, input.BookingID.String())

	var booking *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.loadBooking(ctx, repo, input.BookingID)
		if err != nil {
			return err
		}
		request := b.TravelChargesRequest
		if request == nil || request.Status != enums.TravelChargesPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending travel charge request")
		}

		now := time.Now().UTC()
		request.DecidedAt = &now
		request.DecidedBy = input.DecidedBy.String()
		if input.Approve {
			request.Status = enums.TravelChargesApproved
		} else {
			request.Status = enums.TravelChargesRejected
		}

		if err := repo.UpdateGuarded(ctx, b, bookings.TripleOf(b)); err != nil {
			return mapUpdateErr(err)
		}
		booking = b

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTravelChargesDecided,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         &outbox.ActorRef{UserID: input.DecidedBy, Role: input.Role.String()},
			Data: payloads.TravelChargesDecidedEvent{
				BookingID: b.ID,
				VendorID:  b.VendorID,
				Status:    request.Status,
				Amount:    request.Amount,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		return s.notify(ctx, tx, b, payloads.NotificationRequestedEvent{
			BookingID: b.ID,
			Recipient: b.VendorID,
			Kind:      enums.RecipientVendor,
			Event:     enums.NotifyTravelChargesUpdate,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "travel charge request decided")

	if input.Approve {
		s.creditBestEffort(ctx, booking, enums.WalletTxTravelCharges, booking.TravelChargesRequest.Amount)
	}
	return booking, nil
}

// resolveCapturedPayment asks the gateway for its record of the payment
// id before any state changes. A callback naming a payment the gateway
// never captured is rejected outright.
func (s *service) resolveCapturedPayment(ctx context.Context, paymentID string) error {
	record, err := s.gw.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if !record.Captured() {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway payment not captured")
	}
	return nil
}

// stampInstallment marks the payout installment matching a settled ledger
// row on the booking's payment record. Returns false when the transaction
// type has no installment or the installment is already stamped.
func stampInstallment(b *models.Booking, txType enums.WalletTransactionType, txn *models.WalletTransaction, now time.Time) bool {
	var installment *types.InstallmentPayment
	switch txType {
	case enums.WalletTxSiteVisit:
		installment = &b.Payment.VendorWalletPayments.SiteVisitPayment
	case enums.WalletTxReportUpload:
		installment = &b.Payment.VendorWalletPayments.ReportUploadPayment
	default:
		return false
	}
	if installment.Credited {
		return false
	}
	installment.Credited = true
	installment.CreditedAt = &now
	if txn != nil {
		txID := txn.ID
		installment.TransactionID = &txID
	}
	return true
}

// creditInstallment runs a payout credit and stamps the matching
// installment record on the booking once the ledger row lands.
func (s *service) creditInstallment(ctx context.Context, booking *models.Booking, txType enums.WalletTransactionType, amount decimal.Decimal) error {
	outcome, err := s.ledger.Credit(ctx, wallet.CreditInput{
		VendorID:  booking.VendorID,
		BookingID: booking.ID,
		Type:      txType,
		Amount:    amount,
	})
	if err != nil {
		return err
	}
	if outcome.Failed {
		return pkgerrors.New(pkgerrors.CodeDependency, "wallet credit failed, queued for retry")
	}

	if !stampInstallment(booking, txType, outcome.Transaction, time.Now().UTC()) {
		return nil
	}

	// Stamping the installment is bookkeeping on an already settled
	// credit; a lost race against another transition is logged, not
	// retried, because the ledger row is the source of truth.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).UpdateGuarded(ctx, booking, bookings.TripleOf(booking))
	})
	if err != nil {
		s.logg.Error(ctx, "stamp installment", err)
	}
	return nil
}

func (s *service) creditBestEffort(ctx context.Context, booking *models.Booking, txType enums.WalletTransactionType, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	outcome, err := s.ledger.Credit(ctx, wallet.CreditInput{
		VendorID:  booking.VendorID,
		BookingID: booking.ID,
		Type:      txType,
		Amount:    amount,
	})
	if err != nil {
		s.logg.Error(ctx, "wallet credit", err)
		return
	}
	if outcome.Failed {
		s.logg.Warn(ctx, "wallet credit failed, queued for retry")
	}
}

func (s *service) complete(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := s.loadBooking(ctx, repo, bookingID)
		if err != nil {
			return err
		}
		guard := bookings.TripleOf(b)
		next, err := bookings.Apply(bookings.ActionMarkCompleted, guard)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		b.CompletedAt = &now
		next.ApplyTo(b)
		if err := repo.UpdateGuarded(ctx, b, guard); err != nil {
			return mapUpdateErr(err)
		}
		booking = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCompleted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.RoleAdmin.String()},
			Data: payloads.BookingCompletedEvent{
				BookingID:   b.ID,
				CustomerID:  b.CustomerID,
				VendorID:    b.VendorID,
				CompletedAt: now,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) loadBooking(ctx context.Context, repo bookings.Repository, id uuid.UUID) (*models.Booking, error) {
	booking, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

func (s *service) notify(ctx context.Context, tx *gorm.DB, b *models.Booking, payload payloads.NotificationRequestedEvent) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         systemActor(),
		Data:          payload,
		Version:       1,
	})
}

func validatePaymentEvent(input PaymentEventInput) error {
	if input.BookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if strings.TrimSpace(input.OrderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.PaymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if strings.TrimSpace(input.Signature) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature required")
	}
	return nil
}

func systemActor() *outbox.ActorRef {
	return &outbox.ActorRef{Role: enums.RoleSystem.String()}
}

func mapUpdateErr(err error) error {
	if errors.Is(err, bookings.ErrStatusChanged) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "booking changed, retry the action")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist booking")
}

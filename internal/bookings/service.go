package bookings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/internal/pricing"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/payloads"
	"github.com/aquafindr/aquafindr-backend/pkg/pagination"
	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

// minReasonLength is the shortest acceptable rejection or cancellation
// reason.
const minReasonLength = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type serviceCatalog interface {
	FindServiceByID(ctx context.Context, id uuid.UUID) (*models.SurveyService, error)
}

type orderOpener interface {
	OpenOrder(ctx context.Context, params gateway.OrderParams) (*gateway.Order, error)
}

// Reassigner substitutes a replacement vendor after a rejection or vendor
// cancellation. The rejected transition is already committed when it runs.
type Reassigner interface {
	Reassign(ctx context.Context, bookingID uuid.UUID, reason string, initiatedBy enums.ActorRole) (*models.Booking, error)
}

// SiteVisitCreditor releases the first payout installment after the visit
// transition commits. Failures are recorded on the ledger, never surfaced
// to the vendor's request.
type SiteVisitCreditor interface {
	CreditSiteVisit(ctx context.Context, bookingID uuid.UUID) error
}

// Service drives the booking lifecycle. Every mutation runs one transition
// from the table in transitions.go and persists it with the status guard
// re-checked at write time.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, bookingID uuid.UUID, actor Actor) (*models.Booking, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Accept(ctx context.Context, input DecisionInput) (*models.Booking, error)
	Reject(ctx context.Context, input DecisionInput) (*models.Booking, error)
	CancelByVendor(ctx context.Context, input DecisionInput) (*models.Booking, error)
	CancelByUser(ctx context.Context, input CancelInput) (*models.Booking, error)
	MarkVisited(ctx context.Context, input VendorActionInput) (*models.Booking, error)
	UploadReport(ctx context.Context, input UploadReportInput) (*models.Booking, error)
	UploadBorewellResult(ctx context.Context, input UploadBorewellInput) (*models.Booking, error)
	MarkCompleted(ctx context.Context, input VendorActionInput) (*models.Booking, error)
	RequestTravelCharges(ctx context.Context, input TravelChargesInput) (*models.Booking, error)
}

type service struct {
	repo     Repository
	catalog  serviceCatalog
	tx       txRunner
	outbox   outboxPublisher
	calc     *pricing.Calculator
	gateway  orderOpener
	reassign Reassigner
	credits  SiteVisitCreditor
	logg     *logger.Logger
}

// Actor identifies who is performing a booking action.
type Actor struct {
	UserID   uuid.UUID
	VendorID uuid.UUID
	Role     enums.ActorRole
}

// CreateInput is a customer's survey request against one catalog service.
type CreateInput struct {
	CustomerID   uuid.UUID
	ServiceID    uuid.UUID
	ScheduledFor time.Time
	Address      string
	Location     *types.GeoPoint
}

// CreateResult returns the new booking plus the gateway order the customer
// completes the advance payment against.
type CreateResult struct {
	Booking *models.Booking
	Order   *gateway.Order
}

// ListInput configures booking listing for the calling actor.
type ListInput struct {
	Actor  Actor
	Status *enums.BookingStatus
	Limit  int
	Cursor string
}

// ListResult wraps booking rows and the cursor for the next page.
type ListResult struct {
	Items  []models.Booking `json:"items"`
	Cursor string           `json:"cursor"`
}

// DecisionInput carries a vendor's accept/reject/cancel action.
type DecisionInput struct {
	BookingID uuid.UUID
	Actor     Actor
	Reason    string
}

// CancelInput carries a customer cancellation.
type CancelInput struct {
	BookingID uuid.UUID
	Actor     Actor
	Note      string
}

// VendorActionInput covers transitions that need no extra payload.
type VendorActionInput struct {
	BookingID uuid.UUID
	Actor     Actor
}

// ReportInput is the vendor's survey findings.
type ReportInput struct {
	WaterFound      bool
	DepthMeters     *float64
	RecommendedSpot string
	Remarks         string
	Media           []types.MediaRef
}

// UploadReportInput attaches findings and opens the remaining-payment order.
type UploadReportInput struct {
	BookingID uuid.UUID
	Actor     Actor
	Report    ReportInput
}

// BorewellInput is the drilling outcome the vendor records after payment.
type BorewellInput struct {
	WaterStruck bool
	DepthMeters *float64
	Remarks     string
	Media       []types.MediaRef
}

// UploadBorewellInput attaches the post-payment drilling outcome.
type UploadBorewellInput struct {
	BookingID uuid.UUID
	Actor     Actor
	Result    BorewellInput
}

// TravelChargesInput is a vendor's request for extra travel charges.
type TravelChargesInput struct {
	BookingID uuid.UUID
	Actor     Actor
	Amount    decimal.Decimal
	Reason    string
}

// NewService wires the booking service dependencies.
func NewService(
	repo Repository,
	catalog serviceCatalog,
	tx txRunner,
	events outboxPublisher,
	calc *pricing.Calculator,
	orders orderOpener,
	reassign Reassigner,
	credits SiteVisitCreditor,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	}
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog reader required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if calc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing calculator required")
	}
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order opener required")
	}
	if reassign == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reassigner required")
	}
	if credits == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "site visit creditor required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     repo,
		catalog:  catalog,
		tx:       tx,
		outbox:   events,
		calc:     calc,
		gateway:  orders,
		reassign: reassign,
		credits:  credits,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ServiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}
	if input.ScheduledFor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled time required")
	}
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address required")
	}

	svc, err := s.catalog.FindServiceByID(ctx, input.ServiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load survey service")
	}
	if svc == nil || !svc.Active || !svc.Approved {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "survey service not available")
	}
	if svc.Vendor == nil || !svc.Vendor.Active || !svc.Vendor.Approved {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not available")
	}

	var vendorLocation *types.GeoPoint
	if svc.Vendor != nil {
		vendorLocation = svc.Vendor.Location
	}
	distance, hasDistance := pricing.DistanceKm(vendorLocation, input.Location)
	quote := s.calc.Quote(svc.Price, distance, hasDistance)

	booking := &models.Booking{
		ID:           uuid.New(),
		CustomerID:   input.CustomerID,
		VendorID:     svc.VendorID,
		ServiceID:    svc.ID,
		ScheduledFor: input.ScheduledFor.UTC(),
		Address:      strings.TrimSpace(input.Address),
		Location:     input.Location,
		Payment:      quote,
	}
	uniform(enums.BookingStatusAwaitingAdvance).ApplyTo(booking)

	order, err := s.gateway.OpenOrder(ctx, gateway.OrderParams{
		BookingID: booking.ID,
		Purpose:   gateway.PurposeAdvance,
		Amount:    quote.AdvanceAmount,
	})
	if err != nil {
		return nil, err
	}
	booking.Payment.AdvanceOrderID = order.OrderID

	ctx = s.logg.WithBookingID(ctx, booking.ID.String())
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
		}

		actor := actorRef(Actor{UserID: input.CustomerID, Role: enums.RoleCustomer})
		vendorID := booking.VendorID
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         actor,
			Data: payloads.BookingCreatedEvent{
				BookingID:   booking.ID,
				CustomerID:  booking.CustomerID,
				ServiceID:   booking.ServiceID,
				VendorID:    &vendorID,
				TotalAmount: booking.Payment.Total,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingAssigned,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         actor,
			Data: payloads.BookingAssignedEvent{
				BookingID:  booking.ID,
				CustomerID: booking.CustomerID,
				VendorID:   booking.VendorID,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "booking created")
	return &CreateResult{Booking: booking, Order: order}, nil
}

func (s *service) Get(ctx context.Context, bookingID uuid.UUID, actor Actor) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if err := authorizeRead(booking, actor); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	query := ListBookingsQuery{Status: input.Status, Limit: input.Limit}
	switch input.Actor.Role {
	case enums.RoleCustomer:
		if input.Actor.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		}
		query.CustomerID = input.Actor.UserID
	case enums.RoleVendor:
		if input.Actor.VendorID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
		}
		query.VendorID = input.Actor.VendorID
	case enums.RoleAdmin:
		// Admins list everything.
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unsupported role")
	}

	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Accept(ctx context.Context, input DecisionInput) (*models.Booking, error) {
	var booking *models.Booking
	err := s.transition(ctx, input.BookingID, ActionAccept, func(tx *gorm.DB, b *models.Booking) error {
		if err := requireAssignedVendor(b, input.Actor); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.AcceptedAt = &now
		booking = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingAccepted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingDecisionEvent{
				BookingID:  b.ID,
				CustomerID: b.CustomerID,
				VendorID:   b.VendorID,
				Status:     enums.BookingStatusAccepted,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBookingID(ctx, booking.ID.String()), "booking accepted")
	return booking, nil
}

func (s *service) Reject(ctx context.Context, input DecisionInput) (*models.Booking, error) {
	reason := strings.TrimSpace(input.Reason)
	if len(reason) < minReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason too short")
	}

	err := s.transition(ctx, input.BookingID, ActionReject, func(tx *gorm.DB, b *models.Booking) error {
		if err := requireAssignedVendor(b, input.Actor); err != nil {
			return err
		}
		b.RejectionReason = &reason
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingRejected,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingDecisionEvent{
				BookingID:  b.ID,
				CustomerID: b.CustomerID,
				VendorID:   b.VendorID,
				Status:     enums.BookingStatusRejected,
				Reason:     reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithBookingID(ctx, input.BookingID.String()), "booking rejected by vendor")
	return s.reassign.Reassign(ctx, input.BookingID, reason, enums.RoleVendor)
}

func (s *service) CancelByVendor(ctx context.Context, input DecisionInput) (*models.Booking, error) {
	note := strings.TrimSpace(input.Reason)
	if len(note) < minReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation note too short")
	}

	err := s.transition(ctx, input.BookingID, ActionCancelByVendor, func(tx *gorm.DB, b *models.Booking) error {
		if err := requireAssignedVendor(b, input.Actor); err != nil {
			return err
		}
		b.CancellationNote = &note
		vendorID := b.VendorID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingCancelledEvent{
				BookingID:   b.ID,
				CustomerID:  b.CustomerID,
				VendorID:    &vendorID,
				CancelledBy: enums.RoleVendor,
				CancelledAt: time.Now().UTC(),
				Note:        note,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithBookingID(ctx, input.BookingID.String()), "booking cancelled by vendor")
	return s.reassign.Reassign(ctx, input.BookingID, note, enums.RoleVendor)
}

func (s *service) CancelByUser(ctx context.Context, input CancelInput) (*models.Booking, error) {
	var booking *models.Booking
	err := s.transition(ctx, input.BookingID, ActionCancelByUser, func(tx *gorm.DB, b *models.Booking) error {
		if input.Actor.Role != enums.RoleAdmin && b.CustomerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to user")
		}
		note := strings.TrimSpace(input.Note)
		if note != "" {
			b.CancellationNote = &note
		}
		booking = b
		vendorID := b.VendorID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.BookingCancelledEvent{
				BookingID:   b.ID,
				CustomerID:  b.CustomerID,
				VendorID:    &vendorID,
				CancelledBy: enums.RoleCustomer,
				CancelledAt: time.Now().UTC(),
				Note:        note,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBookingID(ctx, booking.ID.String()), "booking cancelled by customer")
	return booking, nil
}

func (s *service) MarkVisited(ctx context.Context, input VendorActionInput) (*models.Booking, error) {
	var booking *models.Booking
	err := s.transition(ctx, input.BookingID, ActionMarkVisited, func(tx *gorm.DB, b *models.Booking) error {
		if err := requireAssignedVendor(b, input.Actor); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.VisitedAt = &now
		booking = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingVisited,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.SiteVisitedEvent{
				BookingID: b.ID,
				VendorID:  b.VendorID,
				VisitedAt: now,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithBookingID(ctx, booking.ID.String())
	s.logg.Info(ctx, "site visit recorded")

	// The visit is committed; a credit failure lands on the ledger as a
	// FAILED row and the cron sweep picks it up.
	if err := s.credits.CreditSiteVisit(ctx, booking.ID); err != nil {
		s.logg.Error(ctx, "site visit credit", err)
	}
	return booking, nil
}

func (s *service) UploadReport(ctx context.Context, input UploadReportInput) (*models.Booking, error) {
	current, err := s.repo.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if err := requireAssignedVendor(current, input.Actor); err != nil {
		return nil, err
	}
	if _, err := Apply(ActionUploadReport, TripleOf(current)); err != nil {
		return nil, err
	}

	// Open the remaining-payment order before touching the aggregate; a
	// gateway failure leaves the booking at VISITED.
	order, err := s.gateway.OpenOrder(ctx, gateway.OrderParams{
		BookingID: current.ID,
		Purpose:   gateway.PurposeRemaining,
		Amount:    current.Payment.RemainingAmount,
	})
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	err = s.transition(ctx, input.BookingID, ActionUploadReport, func(tx *gorm.DB, b *models.Booking) error {
		if err := requireAssignedVendor(b, input.Actor); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.Report = &types.SurveyReport{
			WaterFound:      input.Report.WaterFound,
			DepthMeters:     input.Report.DepthMeters,
			RecommendedSpot: input.Report.RecommendedSpot,
			Remarks:         input.Report.Remarks,
			Media:           input.Report.Media,
			UploadedAt:      &now,
		}
		b.Payment.RemainingOrderID = order.OrderID
		booking = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReportUploaded,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.ReportUploadedEvent{
				BookingID:  b.ID,
				VendorID:   b.VendorID,
				WaterFound: input.Report.WaterFound,
				MediaCount: len(input.Report.Media),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBookingID(ctx, booking.ID.String()), "survey report uploaded")
	return booking, nil
}

func (s *service) UploadBorewellResult(ctx context.Context, input UploadBorewellInput) (*models.Booking, error) {
	var booking *models.Booking
	err := s.transition(ctx, input.BookingID, ActionUploadBorewellResult, func(tx *gorm.DB, b *models.Booking) error {
		if err := requireAssignedVendor(b, input.Actor); err != nil {
			return err
		}
		now := time.Now().UTC()
		b.BorewellResult = &types.BorewellResult{
			WaterStruck: input.Result.WaterStruck,
			DepthMeters: input.Result.DepthMeters,
			Remarks:     input.Result.Remarks,
			Media:       input.Result.Media,
			UploadedAt:  &now,
		}
		booking = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBorewellUploaded,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.BorewellUploadedEvent{
				BookingID: b.ID,
				VendorID:  b.VendorID,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBookingID(ctx, booking.ID.String()), "borewell result uploaded")
	return booking, nil
}

func (s *service) MarkCompleted(ctx context.Context, input VendorActionInput) (*models.Booking, error) {
	var booking *models.Booking
	err := s.transition(ctx, input.BookingID, ActionMarkCompleted, func(tx *gorm.DB, b *models.Booking) error {
		if input.Actor.Role != enums.RoleAdmin {
			if err := requireAssignedVendor(b, input.Actor); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		b.CompletedAt = &now
		booking = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCompleted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
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
	s.logg.Info(s.logg.WithBookingID(ctx, booking.ID.String()), "booking completed")
	return booking, nil
}

func (s *service) RequestTravelCharges(ctx context.Context, input TravelChargesInput) (*models.Booking, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "travel charge amount must be positive")
	}
	reason := strings.TrimSpace(input.Reason)
	if len(reason) < minReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "travel charge reason too short")
	}

	var booking *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		b, err := repo.FindByID(ctx, input.BookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if b == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		if err := requireAssignedVendor(b, input.Actor); err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return pkgerrors.NewStateConflict(b.Status.String(), "an active status")
		}
		if b.TravelChargesRequest != nil && b.TravelChargesRequest.Status == enums.TravelChargesPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "travel charge request already pending")
		}

		b.TravelChargesRequest = &types.TravelChargesRequest{
			Amount:      input.Amount,
			Reason:      reason,
			Status:      enums.TravelChargesPending,
			RequestedAt: time.Now().UTC(),
		}
		if err := repo.UpdateGuarded(ctx, b, TripleOf(b)); err != nil {
			return mapUpdateErr(err)
		}
		booking = b
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actorRef(input.Actor),
			Data: payloads.NotificationRequestedEvent{
				BookingID: b.ID,
				Recipient: b.CustomerID,
				Kind:      enums.RecipientCustomer,
				Event:     enums.NotifyTravelChargesUpdate,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBookingID(ctx, booking.ID.String()), "travel charges requested")
	return booking, nil
}

// transition is the shared load-guard-mutate-persist path. The mutate
// callback runs after the in-memory guard passes and before the guarded
// write; it sets payload fields and emits the transition's events.
func (s *service) transition(ctx context.Context, bookingID uuid.UUID, action Action, mutate func(tx *gorm.DB, b *models.Booking) error) error {
	if bookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindByID(ctx, bookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}

		guard := TripleOf(booking)
		next, err := Apply(action, guard)
		if err != nil {
			return err
		}
		if err := mutate(tx, booking); err != nil {
			return err
		}
		next.ApplyTo(booking)

		if err := repo.UpdateGuarded(ctx, booking, guard); err != nil {
			return mapUpdateErr(err)
		}
		return nil
	})
}

func mapUpdateErr(err error) error {
	if errors.Is(err, ErrStatusChanged) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "booking changed, retry the action")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist booking")
}

func requireAssignedVendor(b *models.Booking, actor Actor) error {
	if actor.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	if b.VendorID != actor.VendorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "booking is not assigned to vendor")
	}
	return nil
}

func authorizeRead(b *models.Booking, actor Actor) error {
	switch actor.Role {
	case enums.RoleAdmin, enums.RoleSystem:
		return nil
	case enums.RoleVendor:
		if actor.VendorID != uuid.Nil && b.VendorID == actor.VendorID {
			return nil
		}
	case enums.RoleCustomer:
		if actor.UserID != uuid.Nil && b.CustomerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "booking not visible to actor")
}

func actorRef(actor Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
	if actor.VendorID != uuid.Nil {
		vendorID := actor.VendorID
		ref.VendorID = &vendorID
	}
	return ref
}

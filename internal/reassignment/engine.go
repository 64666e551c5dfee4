package reassignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/internal/pricing"
	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type catalogReader interface {
	FindServiceByID(ctx context.Context, id uuid.UUID) (*models.SurveyService, error)
	FindAlternateServices(ctx context.Context, name, category string, excludeVendors []uuid.UUID) ([]models.SurveyService, error)
}

// Engine substitutes a replacement vendor on a rejected booking, repricing
// it against the new vendor's service and location. When no candidate
// exists the booking stays terminally REJECTED; that is a normal outcome,
// not an error.
type Engine struct {
	repo    bookings.Repository
	catalog catalogReader
	tx      txRunner
	outbox  outboxPublisher
	calc    *pricing.Calculator
	logg    *logger.Logger
}

// NewEngine wires the reassignment dependencies.
func NewEngine(
	repo bookings.Repository,
	catalog catalogReader,
	tx txRunner,
	events outboxPublisher,
	calc *pricing.Calculator,
	logg *logger.Logger,
) (*Engine, error) {
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
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Engine{repo: repo, catalog: catalog, tx: tx, outbox: events, calc: calc, logg: logg}, nil
}

// Reassign runs the substitution for a booking the current vendor just
// rejected or cancelled. It expects the REJECTED transition to be committed
// already and returns the booking in its post-reassignment state.
func (e *Engine) Reassign(ctx context.Context, bookingID uuid.UUID, reason string, initiatedBy enums.ActorRole) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	ctx = e.logg.WithBookingID(ctx, bookingID.String())

	var booking *models.Booking
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		b, err := repo.FindByID(ctx, bookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if b == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}

		guard := bookings.TripleOf(b)
		if guard.Status != enums.BookingStatusRejected {
			return pkgerrors.NewStateConflict(guard.Status.String(), enums.BookingStatusRejected.String())
		}

		b.RejectedVendors = b.RejectedVendors.Append(b.VendorID)

		svc, err := e.catalog.FindServiceByID(ctx, b.ServiceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load original service")
		}
		if svc == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "original service missing")
		}

		candidates, err := e.catalog.FindAlternateServices(ctx, svc.Name, svc.Category, b.RejectedVendors)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find alternate services")
		}

		if len(candidates) == 0 {
			booking = b
			return e.finalizeFailed(ctx, tx, repo, b, guard, reason, initiatedBy)
		}

		pick := rank(candidates, b)
		booking = b
		return e.assignReplacement(ctx, tx, repo, b, guard, pick, initiatedBy)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// finalizeFailed keeps the booking terminally REJECTED, composes the final
// reason and notifies the customer. booking_failed is emitted at most once
// per booking even across repeated reassignment attempts.
func (e *Engine) finalizeFailed(ctx context.Context, tx *gorm.DB, repo bookings.Repository, b *models.Booking, guard bookings.StatusTriple, reason string, initiatedBy enums.ActorRole) error {
	composed := fmt.Sprintf("no alternate vendor available: %s", reason)
	b.RejectionReason = &composed

	if err := repo.UpdateGuarded(ctx, b, guard); err != nil {
		return mapUpdateErr(err)
	}

	actor := systemActor(initiatedBy)
	if err := e.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBookingFailed,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         actor,
		Data: payloads.BookingFailedEvent{
			BookingID:       b.ID,
			CustomerID:      b.CustomerID,
			RejectedVendors: len(b.RejectedVendors),
		},
		Version: 1,
	}); err != nil {
		return err
	}
	if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         actor,
		Data: payloads.NotificationRequestedEvent{
			BookingID: b.ID,
			Recipient: b.CustomerID,
			Kind:      enums.RecipientCustomer,
			Event:     enums.NotifyBookingFailed,
		},
		Version: 1,
	}); err != nil {
		return err
	}

	e.logg.Warn(ctx, "no replacement vendor, booking stays rejected")
	return nil
}

func (e *Engine) assignReplacement(ctx context.Context, tx *gorm.DB, repo bookings.Repository, b *models.Booking, guard bookings.StatusTriple, pick models.SurveyService, initiatedBy enums.ActorRole) error {
	next, err := bookings.Apply(bookings.ActionReassign, guard)
	if err != nil {
		return err
	}

	distance, hasDistance := candidateDistance(pick.Vendor, b)

	// Pricing is recomputed wholesale against the new vendor and swapped
	// in one assignment; the price can legitimately change here.
	b.Payment = e.calc.Requote(b.Payment, pick.Price, distance, hasDistance)
	b.VendorID = pick.VendorID
	b.ServiceID = pick.ID

	now := time.Now().UTC()
	b.AssignedAt = &now
	b.AcceptedAt = nil
	b.VisitedAt = nil
	next.ApplyTo(b)

	if err := repo.UpdateGuarded(ctx, b, guard); err != nil {
		return mapUpdateErr(err)
	}

	actor := systemActor(initiatedBy)
	if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBookingReassigned,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         actor,
		Data: payloads.BookingAssignedEvent{
			BookingID:    b.ID,
			CustomerID:   b.CustomerID,
			VendorID:     b.VendorID,
			Reassignment: true,
		},
		Version: 1,
	}); err != nil {
		return err
	}
	for _, notification := range []payloads.NotificationRequestedEvent{
		{BookingID: b.ID, Recipient: b.VendorID, Kind: enums.RecipientVendor, Event: enums.NotifyBookingAssigned},
		{BookingID: b.ID, Recipient: b.CustomerID, Kind: enums.RecipientCustomer, Event: enums.NotifyBookingReassigned},
	} {
		if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         actor,
			Data:          notification,
			Version:       1,
		}); err != nil {
			return err
		}
	}

	e.logg.Info(e.logg.WithVendorID(ctx, b.VendorID.String()), "booking reassigned")
	return nil
}

type rankedCandidate struct {
	service     models.SurveyService
	rating      float64
	success     float64
	experience  int
	distance    float64
	hasDistance bool
}

// rank orders candidates by rating desc, success ratio desc, experience
// desc, then distance asc with unknown distances last, and returns the top
// one.
func rank(candidates []models.SurveyService, b *models.Booking) models.SurveyService {
	ranked := make([]rankedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		entry := rankedCandidate{service: candidate}
		if candidate.Vendor != nil {
			entry.rating = candidate.Vendor.AverageRating
			entry.success = candidate.Vendor.SuccessRatio
			entry.experience = candidate.Vendor.ExperienceYears
			entry.distance, entry.hasDistance = candidateDistance(candidate.Vendor, b)
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.rating != b.rating {
			return a.rating > b.rating
		}
		if a.success != b.success {
			return a.success > b.success
		}
		if a.experience != b.experience {
			return a.experience > b.experience
		}
		if a.hasDistance != b.hasDistance {
			return a.hasDistance
		}
		return a.distance < b.distance
	})

	return ranked[0].service
}

func candidateDistance(vendor *models.Vendor, b *models.Booking) (float64, bool) {
	if vendor == nil {
		return 0, false
	}
	return pricing.DistanceKm(vendor.Location, b.Location)
}

func systemActor(initiatedBy enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{Role: initiatedBy.String()}
}

func mapUpdateErr(err error) error {
	if errors.Is(err, bookings.ErrStatusChanged) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "booking changed, retry the action")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist booking")
}

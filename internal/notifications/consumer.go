package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/idempotency"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/payloads"
)

const notificationConsumer = "booking-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer materializes notification rows from notification_requested events.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a booking notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.NotificationRequestedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"booking_id": payload.BookingID.String(),
		"recipient":  payload.Recipient.String(),
		"event":      string(payload.Event),
	})

	if err := c.handlePayload(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handlePayload(ctx context.Context, payload payloads.NotificationRequestedEvent, logCtx context.Context) error {
	if payload.Recipient == uuid.Nil {
		return fmt.Errorf("recipient missing")
	}
	if !payload.Event.IsValid() {
		c.logg.Info(logCtx, "event not handled")
		return nil
	}

	title, message := composeCopy(payload)
	bookingID := payload.BookingID
	notification := &models.Notification{
		RecipientID:   payload.Recipient,
		RecipientKind: payload.Kind,
		Event:         payload.Event,
		Title:         title,
		Message:       message,
		BookingID:     &bookingID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "notification recorded")
	return nil
}

func composeCopy(payload payloads.NotificationRequestedEvent) (string, string) {
	short := shortBookingRef(payload.BookingID)
	switch payload.Event {
	case enums.NotifyBookingAssigned:
		return "New survey booking", fmt.Sprintf("Booking %s has been assigned to you. Accept or reject it from your dashboard.", short)
	case enums.NotifyBookingAccepted:
		return "Booking accepted", fmt.Sprintf("Your surveyor accepted booking %s and will schedule the site visit.", short)
	case enums.NotifyBookingReassigned:
		return "Surveyor reassigned", fmt.Sprintf("Booking %s was moved to a new surveyor. Pricing may have been adjusted.", short)
	case enums.NotifyBookingFailed:
		return "Booking could not be assigned", fmt.Sprintf("We could not find an available surveyor for booking %s. Your advance will be refunded.", short)
	case enums.NotifyBookingCancelled:
		return "Booking cancelled", fmt.Sprintf("Booking %s has been cancelled.", short)
	case enums.NotifySiteVisited:
		return "Site visit completed", fmt.Sprintf("The surveyor marked the site visit for booking %s as done.", short)
	case enums.NotifyReportUploaded:
		return "Survey report ready", fmt.Sprintf("The survey report for booking %s is uploaded. Pay the remaining amount to unlock it.", short)
	case enums.NotifyPaymentReceived:
		return "Payment received", fmt.Sprintf("Payment for booking %s has been received.", short)
	case enums.NotifyWalletCredited:
		return "Wallet credited", fmt.Sprintf("A payout for booking %s has landed in your wallet.", short)
	case enums.NotifyTravelChargesUpdate:
		return "Travel charges update", fmt.Sprintf("The travel charge request on booking %s has an update.", short)
	case enums.NotifyBookingCompleted:
		return "Booking completed", fmt.Sprintf("Booking %s is complete. Thank you for using AquaFindr.", short)
	default:
		return "Booking update", fmt.Sprintf("Booking %s has an update.", short)
	}
}

func shortBookingRef(id uuid.UUID) string {
	s := id.String()
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

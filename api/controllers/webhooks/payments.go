package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/api/responses"
	"github.com/aquafindr/aquafindr-backend/internal/settlement"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

const (
	paymentSignatureHeader = "X-Gateway-Signature"
	paymentWebhookConsumer = "payments-webhook"

	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

type paymentWebhookEvent struct {
	EventID   string `json:"event_id"`
	Event     string `json:"event"`
	BookingID string `json:"booking_id"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	Purpose   string `json:"purpose"`
	Reason    string `json:"reason,omitempty"`
}

type webhookGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

type gatewayClient interface {
	SigningSecret() string
}

// PaymentWebhook handles the gateway's payment lifecycle callbacks. The
// body HMAC authenticates the gateway; the per-payment signature inside
// the event is verified again by the settlement service.
func PaymentWebhook(svc settlement.Service, client gatewayClient, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(paymentSignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "gateway signature missing"))
			return
		}
		if !validatePaymentSignature(payload, client.SigningSecret(), sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "invalid gateway signature"))
			return
		}

		var event paymentWebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		bookingID, err := uuid.Parse(strings.TrimSpace(event.BookingID))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
			return
		}

		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			eventID = strings.TrimSpace(event.PaymentID)
		}
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id missing"))
			return
		}

		already, err := guard.CheckAndMarkProcessed(ctx, paymentWebhookConsumer, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if already {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := dispatchPaymentEvent(ctx, svc, bookingID, event); err != nil {
			_ = guard.Delete(ctx, paymentWebhookConsumer, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"event_id":   eventID,
				"event":      event.Event,
				"booking_id": bookingID.String(),
			}), "payment.webhook.processed")
		}
		responses.WriteSuccess(w, nil)
	}
}

func dispatchPaymentEvent(ctx context.Context, svc settlement.Service, bookingID uuid.UUID, event paymentWebhookEvent) error {
	switch strings.TrimSpace(event.Event) {
	case eventPaymentCaptured:
		input := settlement.PaymentEventInput{
			BookingID: bookingID,
			OrderID:   strings.TrimSpace(event.OrderID),
			PaymentID: strings.TrimSpace(event.PaymentID),
			Signature: strings.TrimSpace(event.Signature),
		}
		switch gateway.OrderPurpose(strings.ToUpper(strings.TrimSpace(event.Purpose))) {
		case gateway.PurposeAdvance:
			_, err := svc.VerifyAdvancePayment(ctx, input)
			return err
		case gateway.PurposeRemaining:
			_, err := svc.VerifyRemainingPayment(ctx, input)
			return err
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "purpose must be ADVANCE or REMAINING")
		}
	case eventPaymentFailed:
		return svc.RecordPaymentFailure(ctx, settlement.PaymentFailureInput{
			BookingID: bookingID,
			OrderID:   strings.TrimSpace(event.OrderID),
			Reason:    strings.TrimSpace(event.Reason),
		})
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported event type")
	}
}

func validatePaymentSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

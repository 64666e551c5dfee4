package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/aquafindr/aquafindr-backend/pkg/config"
	pkgerrors "github.com/aquafindr/aquafindr-backend/pkg/errors"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired   = errors.New("gateway access token is required")
	errWebhookSecretRequired = errors.New("gateway webhook secret is required")
	errInvalidGatewayEnv     = fmt.Errorf("gateway environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired        = errors.New("gateway logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Client wraps the payment gateway SDK with centralized auth, logging,
// idempotency keys, and error mapping. Booking code never talks to the
// SDK directly.
type Client struct {
	sdk           *sqclient.Client
	accessToken   string
	environment   string
	webhookSecret string
	locationID    string
	currency      string
	baseURL       string
	logger        *logger.Logger
}

// NewClient initializes the gateway wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.NormalizedEnvironment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	baseURL := baseURLs[env]
	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	c := &Client{
		sdk:           sdk,
		accessToken:   accessToken,
		environment:   env,
		webhookSecret: webhookSecret,
		locationID:    strings.TrimSpace(cfg.LocationID),
		currency:      strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		baseURL:       baseURL,
		logger:        logg,
	}

	logg.Info(ctx, "payment gateway client initialized")
	return c, nil
}

// Environment reports the normalized gateway environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Currency returns the configured settlement currency.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// NewIdempotencyKey returns a unique key for gateway operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "af"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// OpenOrder registers a collect intent for an installment and returns the
// order reference the client completes checkout against. The reference is
// minted locally; the webhook later reports the gateway payment id against it.
func (c *Client) OpenOrder(ctx context.Context, params OrderParams) (*Order, error) {
	if err := params.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "open order")
	}

	order := &Order{
		OrderID:   fmt.Sprintf("af-ord-%s", uuid.NewString()),
		BookingID: params.BookingID,
		Purpose:   params.Purpose,
		Amount:    params.Amount,
		Currency:  c.currencyOrDefault(params.Currency),
	}

	c.log(ctx, "response", "open_order", map[string]any{
		"order_id":   order.OrderID,
		"booking_id": order.BookingID.String(),
		"purpose":    order.Purpose,
		"amount":     order.Amount.String(),
	})
	return order, nil
}

// ChargePayment collects an installment server side against a tokenized
// payment source.
func (c *Client) ChargePayment(ctx context.Context, params PaymentParams) (*Payment, error) {
	req, err := params.toGatewayRequest(c.locationID, c.currencyOrDefault(params.Currency), c.ensureIdempotencyKey("payment.create", params.IdempotencyKey))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "charge payment")
	}
	c.log(ctx, "request", "charge_payment", map[string]any{
		"location_id":  c.locationID,
		"order_id":     params.OrderID,
		"amount_cents": params.AmountCents(),
	})

	resp, err := c.sdk.Payments.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "charge_payment", map[string]any{"error": err.Error()})
		return nil, c.mapGatewayError(err, "charge payment")
	}

	payment := paymentFromSDK(resp.GetPayment())
	c.log(ctx, "response", "charge_payment", map[string]any{
		"payment_id": payment.PaymentID,
		"status":     payment.Status,
	})
	return payment, nil
}

// GetPayment resolves a gateway payment id back to the gateway's record of
// it. Webhook handling calls this before trusting a callback so a forged
// or mistyped payment id never settles an installment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": trimmed})

	resp, err := c.sdk.Payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: trimmed})
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, c.mapGatewayError(err, "get payment")
	}

	payment := paymentFromSDK(resp.GetPayment())
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gateway returned no payment")
	}
	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id": payment.PaymentID,
		"status":     payment.Status,
	})
	return payment, nil
}

// SignPayment computes the webhook signature for an order/payment pair.
// Exposed so tests and sandbox tooling can produce valid callbacks.
func (c *Client) SignPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(orderID))
	mac.Write([]byte("|"))
	mac.Write([]byte(paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the webhook signature over the order/payment pair.
// A mismatch is fatal for the caller; the payment must not be recorded.
func (c *Client) VerifySignature(orderID, paymentID, signature string) error {
	expected := c.SignPayment(orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return pkgerrors.New(pkgerrors.CodeSignature, "payment signature verification failed")
	}
	return nil
}

func (c *Client) currencyOrDefault(currency string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(currency))
	if trimmed != "" {
		return trimmed
	}
	if c.currency != "" {
		return c.currency
	}
	return "INR"
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return c.NewIdempotencyKey(prefix)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("gateway %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("gateway %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "cvv", "cvc", "secret", "source"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapGatewayError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		code := domainCodeForStatus(apiErr.StatusCode)
		for _, gwErr := range c.extractGatewayErrors(apiErr) {
			if gwErr == nil {
				continue
			}
			if gwErr.Code == sq.ErrorCodeIdempotencyKeyReused {
				code = pkgerrors.CodeConflict
				break
			}
			if gwErr.Category == sq.ErrorCategoryAuthenticationError {
				code = pkgerrors.CodeUnauthorized
				break
			}
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("gateway %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("gateway %s failed", op))
}

func (c *Client) extractGatewayErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidGatewayEnv
	}
}

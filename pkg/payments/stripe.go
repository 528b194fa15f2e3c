package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/noah-isme/tutor-booking-api/pkg/config"
)

const stripeSignatureHeader = "Stripe-Signature"

// Checkout sessions must expire between 30 minutes and 24 hours after creation.
// The lower bound keeps a minute of headroom for the request in flight.
const (
	stripeMinSessionTTL = 31 * time.Minute
	stripeMaxSessionTTL = 24 * time.Hour
)

type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway opens Stripe Checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	sessions      checkoutSessions
	webhookSecret string
	successURL    string
	cancelURL     string
	now           func() time.Time
}

// NewStripeGateway builds a gateway with its own Stripe API client.
func NewStripeGateway(cfg config.StripeConfig, successURL, cancelURL string) *StripeGateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		sessions:      sc.CheckoutSessions,
		webhookSecret: cfg.WebhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		now:           time.Now,
	}
}

// Name implements Gateway.
func (g *StripeGateway) Name() string { return "stripe" }

// CreateIntent opens a one-item Checkout session referencing the intent.
func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	description := req.Description
	if description == "" {
		description = "Tutoring session"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.IntentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(g.sessionExpiry(req.ExpiresAt).Unix())
	}
	params.Context = ctx
	params.AddMetadata("intent_id", req.IntentID)
	params.AddMetadata("booking_id", req.BookingID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	session, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &Intent{ProviderRef: session.ID, URL: session.URL}, nil
}

// sessionExpiry clamps the requested expiry into the window Stripe accepts.
func (g *StripeGateway) sessionExpiry(requested time.Time) time.Time {
	now := time.Now()
	if g.now != nil {
		now = g.now()
	}
	if earliest := now.Add(stripeMinSessionTTL); requested.Before(earliest) {
		return earliest
	}
	if latest := now.Add(stripeMaxSessionTTL); requested.After(latest) {
		return latest
	}
	return requested
}

// ParseNotification verifies the Stripe-Signature header and maps Checkout events.
func (g *StripeGateway) ParseNotification(body []byte, headers http.Header) (*Notification, error) {
	event, err := webhook.ConstructEventWithOptions(body, headers.Get(stripeSignatureHeader), g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcome Outcome
	var reason string
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		outcome = OutcomeSucceeded
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		outcome, reason = OutcomeFailed, "stripe payment failed"
	case stripe.EventTypeCheckoutSessionExpired:
		outcome, reason = OutcomeFailed, "stripe checkout expired"
	default:
		return nil, ErrIgnoredEvent
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode stripe checkout session: %w", err)
	}
	// Delayed payment methods complete the session before the money arrives.
	if event.Type == stripe.EventTypeCheckoutSessionCompleted && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		outcome = OutcomePending
	}

	intentID := session.ClientReferenceID
	if intentID == "" {
		intentID = session.Metadata["intent_id"]
	}
	if intentID == "" {
		return nil, ErrIgnoredEvent
	}
	return &Notification{IntentID: intentID, ProviderRef: session.ID, Outcome: outcome, Reason: reason}, nil
}

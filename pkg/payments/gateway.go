// Package payments adapts payment providers to a single checkout and webhook contract.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/tutor-booking-api/pkg/config"
)

var (
	// ErrInvalidSignature means a webhook could not be authenticated.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrIgnoredEvent means a webhook is authentic but carries nothing to settle.
	ErrIgnoredEvent = errors.New("ignored webhook event")
	// ErrInvalidRequest means the intent request was rejected before reaching the provider.
	ErrInvalidRequest = errors.New("invalid payment request")
)

// Outcome is the payment result reported by a provider.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomePending   Outcome = "pending"
)

// IntentRequest describes a checkout to open with the provider.
type IntentRequest struct {
	IntentID      string
	BookingID     string
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
	ExpiresAt     time.Time
	Metadata      map[string]string
}

// Validate rejects requests no provider would accept.
func (r IntentRequest) Validate() error {
	switch {
	case r.IntentID == "":
		return fmt.Errorf("%w: intent id required", ErrInvalidRequest)
	case r.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	case len(r.Currency) != 3:
		return fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalidRequest)
	}
	return nil
}

// Intent is the provider-side checkout created for an IntentRequest.
type Intent struct {
	ProviderRef string
	URL         string
}

// Notification is a verified settlement callback.
type Notification struct {
	IntentID    string
	ProviderRef string
	Outcome     Outcome
	Reason      string
}

// Gateway is implemented by every payment provider.
type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ParseNotification(body []byte, headers http.Header) (*Notification, error)
}

// New builds the gateway selected by cfg.Provider.
func New(cfg config.PaymentsConfig) (Gateway, error) {
	switch cfg.Provider {
	case config.PaymentProviderSandbox, "":
		return NewSandboxGateway(cfg.SandboxURL, NewCheckoutSigner(cfg.SandboxSecret, cfg.IntentTTL)), nil
	case config.PaymentProviderStripe:
		if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
			return nil, fmt.Errorf("stripe requires STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")
		}
		return NewStripeGateway(cfg.Stripe, cfg.SuccessURL, cfg.CancelURL), nil
	case config.PaymentProviderMidtrans:
		if cfg.Midtrans.ServerKey == "" {
			return nil, fmt.Errorf("midtrans requires MIDTRANS_SERVER_KEY")
		}
		return NewMidtransGateway(cfg.Midtrans), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Provider)
	}
}

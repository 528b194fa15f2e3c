package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// SandboxSignatureHeader carries the body HMAC on sandbox webhooks.
const SandboxSignatureHeader = "X-Sandbox-Signature"

// SandboxGateway settles payments locally through signed checkout links. It never moves money.
type SandboxGateway struct {
	checkoutURL string
	signer      *CheckoutSigner
}

// NewSandboxGateway builds a sandbox gateway linking to checkoutURL.
func NewSandboxGateway(checkoutURL string, signer *CheckoutSigner) *SandboxGateway {
	return &SandboxGateway{checkoutURL: checkoutURL, signer: signer}
}

// Name implements Gateway.
func (g *SandboxGateway) Name() string { return "sandbox" }

// CreateIntent returns a signed checkout link for the intent.
func (g *SandboxGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	token, _, err := g.signer.Generate(req.IntentID)
	if err != nil {
		return nil, fmt.Errorf("sign checkout: %w", err)
	}
	link, err := url.Parse(g.checkoutURL)
	if err != nil {
		return nil, fmt.Errorf("parse sandbox checkout url: %w", err)
	}
	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()
	return &Intent{ProviderRef: "sbx_" + req.IntentID, URL: link.String()}, nil
}

type sandboxNotification struct {
	IntentID string  `json:"intent_id"`
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason"`
}

// ParseNotification verifies the body HMAC and decodes the outcome.
func (g *SandboxGateway) ParseNotification(body []byte, headers http.Header) (*Notification, error) {
	if !g.signer.VerifyBody(body, headers.Get(SandboxSignatureHeader)) {
		return nil, ErrInvalidSignature
	}
	var n sandboxNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode sandbox notification: %w", err)
	}
	if n.IntentID == "" {
		return nil, fmt.Errorf("decode sandbox notification: intent_id missing")
	}
	switch n.Outcome {
	case OutcomeSucceeded, OutcomeFailed, OutcomePending:
	default:
		return nil, ErrIgnoredEvent
	}
	return &Notification{IntentID: n.IntentID, ProviderRef: "sbx_" + n.IntentID, Outcome: n.Outcome, Reason: n.Reason}, nil
}

// CompleteCheckout turns a visit to a signed checkout link into a notification.
func (g *SandboxGateway) CompleteCheckout(token string, outcome Outcome) (*Notification, error) {
	intentID, _, err := g.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	n := &Notification{IntentID: intentID, ProviderRef: "sbx_" + intentID, Outcome: outcome}
	switch outcome {
	case OutcomeSucceeded:
	case OutcomeFailed:
		n.Reason = "declined in sandbox checkout"
	default:
		return nil, ErrIgnoredEvent
	}
	return n, nil
}

// SignBody exposes the webhook signature for tooling and tests.
func (g *SandboxGateway) SignBody(body []byte) string {
	return g.signer.SignBody(body)
}

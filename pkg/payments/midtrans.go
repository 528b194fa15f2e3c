package payments

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/noah-isme/tutor-booking-api/pkg/config"
)

type snapTransactions interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// MidtransGateway opens Snap transactions and verifies Midtrans HTTP notifications.
type MidtransGateway struct {
	snap      snapTransactions
	serverKey string
	now       func() time.Time
}

// NewMidtransGateway builds a Snap client for the configured environment.
func NewMidtransGateway(cfg config.MidtransConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(cfg.ServerKey, env)
	return &MidtransGateway{snap: &client, serverKey: cfg.ServerKey, now: time.Now}
}

// Name implements Gateway.
func (g *MidtransGateway) Name() string { return "midtrans" }

// Snap rejects item names longer than this many characters.
const midtransItemNameLimit = 50

// CreateIntent opens a Snap transaction with the intent ID as order ID. Amounts are whole IDR.
func (g *MidtransGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !strings.EqualFold(req.Currency, "IDR") {
		return nil, fmt.Errorf("%w: midtrans only settles IDR", ErrInvalidRequest)
	}
	name := req.Description
	if name == "" {
		name = "Tutoring session"
	}
	if runes := []rune(name); len(runes) > midtransItemNameLimit {
		name = string(runes[:midtransItemNameLimit])
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.IntentID,
			GrossAmt: req.Amount,
		},
		Items: &[]midtrans.ItemDetails{
			{ID: req.BookingID, Name: name, Price: req.Amount, Qty: 1},
		},
	}
	if req.CustomerEmail != "" {
		snapReq.CustomerDetail = &midtrans.CustomerDetails{Email: req.CustomerEmail}
	}
	if !req.ExpiresAt.IsZero() {
		if minutes := int64(req.ExpiresAt.Sub(g.now()) / time.Minute); minutes > 0 {
			snapReq.Expiry = &snap.ExpiryDetails{Unit: "minute", Duration: minutes}
		}
	}

	resp, mErr := g.snap.CreateTransaction(snapReq)
	if mErr != nil {
		return nil, fmt.Errorf("create midtrans transaction: %w", mErr)
	}
	return &Intent{ProviderRef: resp.Token, URL: resp.RedirectURL}, nil
}

type midtransNotification struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

// ParseNotification checks SHA512(order_id+status_code+gross_amount+server_key) and maps the status.
func (g *MidtransGateway) ParseNotification(body []byte, _ http.Header) (*Notification, error) {
	var n midtransNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode midtrans notification: %w", err)
	}
	if !g.validSignature(n) {
		return nil, ErrInvalidSignature
	}

	out := &Notification{IntentID: n.OrderID, ProviderRef: n.TransactionID}
	switch n.TransactionStatus {
	case "settlement":
		out.Outcome = OutcomeSucceeded
	case "capture":
		switch n.FraudStatus {
		case "", "accept":
			out.Outcome = OutcomeSucceeded
		case "deny":
			out.Outcome, out.Reason = OutcomeFailed, "midtrans fraud check denied"
		default:
			out.Outcome = OutcomePending
		}
	case "pending":
		out.Outcome = OutcomePending
	case "deny", "cancel", "expire", "failure":
		out.Outcome, out.Reason = OutcomeFailed, "midtrans transaction "+n.TransactionStatus
	default:
		return nil, ErrIgnoredEvent
	}
	return out, nil
}

func (g *MidtransGateway) validSignature(n midtransNotification) bool {
	if n.SignatureKey == "" {
		return false
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + g.serverKey))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.SignatureKey))) == 1
}

package payments

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

type stubSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (s *stubSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

const testWebhookSecret = "whsec_test"

func newStripe(sessions checkoutSessions) *StripeGateway {
	return &StripeGateway{sessions: sessions, webhookSecret: testWebhookSecret, successURL: "https://app/ok", cancelURL: "https://app/cancel"}
}

func TestStripeCreateIntent(t *testing.T) {
	sessions := &stubSessions{}
	gw := newStripe(sessions)

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		IntentID:  "intent-1",
		BookingID: "booking-1",
		Amount:    4500,
		Currency:  "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", intent.ProviderRef)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", intent.URL)

	require.NotNil(t, sessions.params)
	assert.Equal(t, "intent-1", *sessions.params.ClientReferenceID)
	assert.Equal(t, "booking-1", sessions.params.Metadata["booking_id"])
	require.Len(t, sessions.params.LineItems, 1)
	assert.Equal(t, int64(4500), *sessions.params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *sessions.params.LineItems[0].PriceData.Currency)
	assert.Nil(t, sessions.params.ExpiresAt)
}

func TestStripeCreateIntentSessionExpiry(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		expiresAt time.Time
		want      time.Time
	}{
		{name: "within window", expiresAt: now.Add(time.Hour), want: now.Add(time.Hour)},
		{name: "too soon", expiresAt: now.Add(10 * time.Minute), want: now.Add(31 * time.Minute)},
		{name: "too late", expiresAt: now.Add(48 * time.Hour), want: now.Add(24 * time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &stubSessions{}
			gw := newStripe(sessions)
			gw.now = func() time.Time { return now }

			_, err := gw.CreateIntent(context.Background(), IntentRequest{
				IntentID: "intent-1", Amount: 4500, Currency: "USD", ExpiresAt: tc.expiresAt,
			})
			require.NoError(t, err)
			require.NotNil(t, sessions.params.ExpiresAt)
			assert.Equal(t, tc.want.Unix(), *sessions.params.ExpiresAt)
		})
	}
}

func TestStripeCreateIntentError(t *testing.T) {
	gw := newStripe(&stubSessions{err: errors.New("card network down")})
	_, err := gw.CreateIntent(context.Background(), IntentRequest{IntentID: "intent-1", Amount: 100, Currency: "USD"})
	assert.ErrorContains(t, err, "card network down")
}

func signedStripe(t *testing.T, payload string) ([]byte, http.Header) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	headers := http.Header{}
	headers.Set(stripeSignatureHeader, signed.Header)
	return signed.Payload, headers
}

func TestStripeParseNotification(t *testing.T) {
	gw := newStripe(&stubSessions{})

	body, headers := signedStripe(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","object":"checkout.session","client_reference_id":"intent-1","payment_status":"paid"}}}`)
	n, err := gw.ParseNotification(body, headers)
	require.NoError(t, err)
	assert.Equal(t, "intent-1", n.IntentID)
	assert.Equal(t, OutcomeSucceeded, n.Outcome)

	body, headers = signedStripe(t, `{"id":"evt_2","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_test_1","object":"checkout.session","metadata":{"intent_id":"intent-2"}}}}`)
	n, err = gw.ParseNotification(body, headers)
	require.NoError(t, err)
	assert.Equal(t, "intent-2", n.IntentID)
	assert.Equal(t, OutcomeFailed, n.Outcome)

	body, headers = signedStripe(t, `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	_, err = gw.ParseNotification(body, headers)
	assert.ErrorIs(t, err, ErrIgnoredEvent)
}

func TestStripeParseNotificationRejectsBadSignature(t *testing.T) {
	gw := newStripe(&stubSessions{})
	headers := http.Header{}
	headers.Set(stripeSignatureHeader, "t=1,v1=bad")
	_, err := gw.ParseNotification([]byte(`{}`), headers)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

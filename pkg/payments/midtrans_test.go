package payments

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSnap struct {
	req *snap.Request
	err *midtrans.Error
}

func (s *stubSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &snap.Response{Token: "snap-token", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token"}, nil
}

func newMidtrans(stub *stubSnap) *MidtransGateway {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	return &MidtransGateway{snap: stub, serverKey: "server-key", now: func() time.Time { return now }}
}

func TestMidtransCreateIntent(t *testing.T) {
	stub := &stubSnap{}
	gw := newMidtrans(stub)

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		IntentID:  "intent-1",
		BookingID: "booking-1",
		Amount:    150000,
		Currency:  "IDR",
		ExpiresAt: time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-token", intent.ProviderRef)
	assert.Contains(t, intent.URL, "snap-token")

	require.NotNil(t, stub.req)
	assert.Equal(t, "intent-1", stub.req.TransactionDetails.OrderID)
	assert.Equal(t, int64(150000), stub.req.TransactionDetails.GrossAmt)
	require.NotNil(t, stub.req.Expiry)
	assert.Equal(t, int64(30), stub.req.Expiry.Duration)
}

func TestMidtransCreateIntentTruncatesItemNameByRune(t *testing.T) {
	stub := &stubSnap{}
	gw := newMidtrans(stub)

	_, err := gw.CreateIntent(context.Background(), IntentRequest{
		IntentID:    "intent-1",
		BookingID:   "booking-1",
		Amount:      150000,
		Currency:    "IDR",
		Description: strings.Repeat("é", 49) + "日本語",
	})
	require.NoError(t, err)

	require.NotNil(t, stub.req.Items)
	name := (*stub.req.Items)[0].Name
	assert.True(t, utf8.ValidString(name))
	assert.Equal(t, 50, utf8.RuneCountInString(name))
	assert.Equal(t, strings.Repeat("é", 49)+"日", name)
}

func TestMidtransCreateIntentRejectsCurrency(t *testing.T) {
	_, err := newMidtrans(&stubSnap{}).CreateIntent(context.Background(), IntentRequest{IntentID: "i", Amount: 1, Currency: "USD"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func midtransBody(status, fraud, key string) []byte {
	sum := sha512.Sum512([]byte("intent-1" + "200" + "150000.00" + key))
	return []byte(fmt.Sprintf(`{"order_id":"intent-1","status_code":"200","gross_amount":"150000.00","transaction_status":%q,"fraud_status":%q,"transaction_id":"tx-1","signature_key":%q}`,
		status, fraud, hex.EncodeToString(sum[:])))
}

func TestMidtransParseNotification(t *testing.T) {
	gw := newMidtrans(&stubSnap{})

	cases := []struct {
		status  string
		fraud   string
		outcome Outcome
	}{
		{"settlement", "", OutcomeSucceeded},
		{"capture", "accept", OutcomeSucceeded},
		{"capture", "challenge", OutcomePending},
		{"pending", "", OutcomePending},
		{"expire", "", OutcomeFailed},
		{"deny", "", OutcomeFailed},
	}
	for _, tc := range cases {
		n, err := gw.ParseNotification(midtransBody(tc.status, tc.fraud, "server-key"), nil)
		require.NoError(t, err, tc.status)
		assert.Equal(t, tc.outcome, n.Outcome, tc.status)
		assert.Equal(t, "intent-1", n.IntentID)
	}

	_, err := gw.ParseNotification(midtransBody("refund", "", "server-key"), nil)
	assert.ErrorIs(t, err, ErrIgnoredEvent)

	_, err = gw.ParseNotification(midtransBody("settlement", "", "wrong-key"), nil)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CheckoutSigner issues and validates HMAC tokens for sandbox checkout links and webhook bodies.
type CheckoutSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCheckoutSigner constructs a signer with the provided secret and token TTL.
func NewCheckoutSigner(secret string, ttl time.Duration) *CheckoutSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CheckoutSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token bound to intentID.
func (s *CheckoutSigner) Generate(intentID string) (string, time.Time, error) {
	if intentID == "" || strings.Contains(intentID, ".") {
		return "", time.Time{}, fmt.Errorf("invalid intent id")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{intentID, ts, s.mac(intentID + "|" + ts)}, ".")
	return token, time.Unix(expiresAt.Unix(), 0), nil
}

// Parse validates token and returns the intent it was issued for.
func (s *CheckoutSigner) Parse(token string) (string, time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", time.Time{}, fmt.Errorf("invalid token format")
	}
	intentID, ts, signature := parts[0], parts[1], parts[2]

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid timestamp")
	}
	if !hmac.Equal([]byte(s.mac(intentID+"|"+ts)), []byte(signature)) {
		return "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", time.Time{}, fmt.Errorf("token expired")
	}
	return intentID, expiresAt, nil
}

// SignBody returns the hex HMAC of a webhook body.
func (s *CheckoutSigner) SignBody(body []byte) string {
	return s.mac(string(body))
}

// VerifyBody checks signature against body in constant time.
func (s *CheckoutSigner) VerifyBody(body []byte, signature string) bool {
	if len(s.secret) == 0 || signature == "" {
		return false
	}
	return hmac.Equal([]byte(s.SignBody(body)), []byte(strings.ToLower(signature)))
}

func (s *CheckoutSigner) mac(payload string) string {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(payload))
	return hex.EncodeToString(m.Sum(nil))
}

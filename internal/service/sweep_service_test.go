package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func TestSweepExpiresStaleIntents(t *testing.T) {
	h := newBookingHarness(t)
	ctx := context.Background()

	booking := h.bookSlot(t, studentID)
	intent, err := h.svc.InitiatePayment(ctx, booking.ID)
	require.NoError(t, err)

	sweeps := NewSweepService(h.intents, h.bookings, h.svc, 30*time.Minute, nil)
	sweeps.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	expired, err := sweeps.ExpireStaleIntents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := h.svc.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, ReasonIntentExpired, *stored.FailureReason)
	assert.True(t, h.intents.get(intent.ID).Retired())
	assert.Equal(t, "open", string(h.slots.get(slotID).Status))
}

func TestSweepExpiryDisabledWithZeroTTL(t *testing.T) {
	h := newBookingHarness(t)

	sweeps := NewSweepService(h.intents, h.bookings, h.svc, 0, nil)
	expired, err := sweeps.ExpireStaleIntents(context.Background())

	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestSweepCompletesElapsedSessions(t *testing.T) {
	h := newBookingHarness(t)
	ctx := context.Background()

	booking := h.bookSlot(t, studentID)
	intent, err := h.svc.InitiatePayment(ctx, booking.ID)
	require.NoError(t, err)
	_, err = h.svc.ConfirmPayment(ctx, intent.ID)
	require.NoError(t, err)

	h.clock = slotEnd.Add(time.Minute)
	sweeps := NewSweepService(h.intents, h.bookings, h.svc, 0, nil)
	sweeps.now = func() time.Time { return h.clock }

	completed, err := sweeps.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.Equal(t, "completed", string(h.bookings.status(booking.ID)))
}

type failingLister struct{}

func (failingLister) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error) {
	return nil, errors.New("db down")
}

func TestSweepRegisterRejectsBadSchedule(t *testing.T) {
	sweeps := NewSweepService(failingLister{}, nil, nil, time.Minute, nil)

	_, err := sweeps.Register(cron.New(), "not a schedule")
	assert.Error(t, err)

	_, err = sweeps.ExpireStaleIntents(context.Background())
	assert.Error(t, err)
}

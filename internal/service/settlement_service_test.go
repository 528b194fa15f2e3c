package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/jobs"
	"github.com/noah-isme/tutor-booking-api/pkg/payments"
)

type stubProcessor struct {
	confirmErr error
	failErr    error
	intent     *models.PaymentIntent
	confirmed  []string
	failed     map[string]string
}

func (p *stubProcessor) ConfirmPayment(ctx context.Context, intentID string) (*models.Booking, error) {
	p.confirmed = append(p.confirmed, intentID)
	if p.confirmErr != nil {
		return nil, p.confirmErr
	}
	return &models.Booking{Status: models.BookingStatusConfirmed}, nil
}

func (p *stubProcessor) FailPayment(ctx context.Context, intentID, reason string) (*models.Booking, error) {
	if p.failed == nil {
		p.failed = map[string]string{}
	}
	p.failed[intentID] = reason
	if p.failErr != nil {
		return nil, p.failErr
	}
	return &models.Booking{Status: models.BookingStatusPaymentFailed}, nil
}

func (p *stubProcessor) GetPaymentIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	if p.intent == nil {
		return nil, appErrors.Clone(appErrors.ErrIntentNotFound, "payment intent not found")
	}
	return p.intent, nil
}

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func settlementJob(outcome payments.Outcome) jobs.Job {
	return jobs.Job{Type: SettlementJobType, Payload: SettlementJob{
		Provider:     "sandbox",
		Notification: payments.Notification{IntentID: "intent-1", Outcome: outcome},
	}}
}

func newSandboxGateway() *payments.SandboxGateway {
	return payments.NewSandboxGateway("http://localhost/sandbox/checkout", payments.NewCheckoutSigner("secret", time.Hour))
}

func TestSettlementConfirmsSucceededPayment(t *testing.T) {
	processor := &stubProcessor{}
	svc := NewSettlementService(newSandboxGateway(), processor, nil, nil)

	require.NoError(t, svc.Process(context.Background(), settlementJob(payments.OutcomeSucceeded)))
	assert.Equal(t, []string{"intent-1"}, processor.confirmed)
	assert.Empty(t, processor.failed)
}

func TestSettlementFailsPaymentWhenSlotLost(t *testing.T) {
	processor := &stubProcessor{confirmErr: appErrors.Clone(appErrors.ErrSlotUnavailable, "taken")}
	svc := NewSettlementService(newSandboxGateway(), processor, NewMetricsService(), nil)

	require.NoError(t, svc.Process(context.Background(), settlementJob(payments.OutcomeSucceeded)))
	assert.Equal(t, ReasonSlotLost, processor.failed["intent-1"])
}

func TestSettlementDefaultsFailureReason(t *testing.T) {
	processor := &stubProcessor{}
	svc := NewSettlementService(newSandboxGateway(), processor, nil, nil)

	require.NoError(t, svc.Process(context.Background(), settlementJob(payments.OutcomeFailed)))
	assert.Equal(t, "payment failed", processor.failed["intent-1"])
}

func TestSettlementClassifiesErrors(t *testing.T) {
	processor := &stubProcessor{confirmErr: appErrors.Clone(appErrors.ErrInvalidState, "already confirmed")}
	svc := NewSettlementService(newSandboxGateway(), processor, nil, nil)

	err := svc.Process(context.Background(), settlementJob(payments.OutcomeSucceeded))
	assert.True(t, jobs.IsPermanent(err))

	processor.confirmErr = appErrors.Internal(errors.New("db down"), "failed to load booking")
	err = svc.Process(context.Background(), settlementJob(payments.OutcomeSucceeded))
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))

	err = svc.Process(context.Background(), jobs.Job{Payload: "garbage"})
	assert.True(t, jobs.IsPermanent(err))
}

func TestSettlementFlagsPaymentOnExpiredIntent(t *testing.T) {
	h := newBookingHarness(t)
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewSettlementService(newSandboxGateway(), h.svc, NewMetricsService(), zap.New(core))

	booking := h.bookSlot(t, studentID)
	intent, err := h.svc.InitiatePayment(ctx, booking.ID)
	require.NoError(t, err)
	_, err = h.svc.FailPayment(ctx, intent.ID, ReasonIntentExpired)
	require.NoError(t, err)

	err = svc.Process(ctx, jobs.Job{Type: SettlementJobType, Payload: SettlementJob{
		Provider:     "sandbox",
		Notification: payments.Notification{IntentID: intent.ID, ProviderRef: "cs_late", Outcome: payments.OutcomeSucceeded},
	}})
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))

	flagged := logs.FilterMessage("payment captured for a closed booking, refund required").All()
	require.Len(t, flagged, 1)
	fields := flagged[0].ContextMap()
	assert.Equal(t, booking.ID, fields["booking_id"])
	assert.Equal(t, "cs_late", fields["provider_ref"])
	assert.Equal(t, models.BookingStatusPaymentFailed, h.bookings.status(booking.ID))
}

func TestSettlementDuplicateSuccessIsNotFlagged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	now := time.Now()
	processor := &stubProcessor{
		confirmErr: appErrors.Clone(appErrors.ErrInvalidState, "already confirmed"),
		intent:     &models.PaymentIntent{ID: "intent-1", Status: models.BookingStatusConfirmed, RetiredAt: &now},
	}
	svc := NewSettlementService(newSandboxGateway(), processor, nil, zap.New(core))

	err := svc.Process(context.Background(), settlementJob(payments.OutcomeSucceeded))
	assert.True(t, jobs.IsPermanent(err))
	assert.Zero(t, logs.FilterMessage("payment captured for a closed booking, refund required").Len())
}

func TestHandleWebhookEnqueuesVerifiedNotification(t *testing.T) {
	gateway := newSandboxGateway()
	queue := &recordingQueue{}
	svc := NewSettlementService(gateway, &stubProcessor{}, nil, nil)
	svc.UseQueue(queue)

	body := []byte(`{"intent_id":"intent-1","outcome":"succeeded"}`)
	headers := http.Header{}
	headers.Set(payments.SandboxSignatureHeader, gateway.SignBody(body))

	require.NoError(t, svc.HandleWebhook(context.Background(), "sandbox", body, headers))
	require.Len(t, queue.jobs, 1)
	payload := queue.jobs[0].Payload.(SettlementJob)
	assert.Equal(t, "intent-1", payload.Notification.IntentID)
	assert.Equal(t, SettlementJobType, queue.jobs[0].Type)

	headers.Set(payments.SandboxSignatureHeader, "forged")
	err := svc.HandleWebhook(context.Background(), "sandbox", body, headers)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	err = svc.HandleWebhook(context.Background(), "stripe", body, headers)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.Len(t, queue.jobs, 1)
}

func TestHandleWebhookSkipsPendingOutcome(t *testing.T) {
	gateway := newSandboxGateway()
	processor := &stubProcessor{}
	svc := NewSettlementService(gateway, processor, nil, nil)

	body := []byte(`{"intent_id":"intent-1","outcome":"pending"}`)
	headers := http.Header{}
	headers.Set(payments.SandboxSignatureHeader, gateway.SignBody(body))

	require.NoError(t, svc.HandleWebhook(context.Background(), "sandbox", body, headers))
	assert.Empty(t, processor.confirmed)
}

func TestCompleteSandboxCheckoutSettlesInline(t *testing.T) {
	gateway := newSandboxGateway()
	processor := &stubProcessor{}
	svc := NewSettlementService(gateway, processor, nil, nil)

	intent, err := gateway.CreateIntent(context.Background(), payments.IntentRequest{IntentID: "intent-9", Amount: 100, Currency: "USD"})
	require.NoError(t, err)
	link, err := url.Parse(intent.URL)
	require.NoError(t, err)
	token := link.Query().Get("token")

	require.NoError(t, svc.CompleteSandboxCheckout(context.Background(), token, payments.OutcomeSucceeded))
	assert.Equal(t, []string{"intent-9"}, processor.confirmed)

	err = svc.CompleteSandboxCheckout(context.Background(), "bad", payments.OutcomeSucceeded)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

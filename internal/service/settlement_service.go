package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/jobs"
	"github.com/noah-isme/tutor-booking-api/pkg/payments"
)

// SettlementJobType tags settlement jobs on the queue.
const SettlementJobType = "payment.settlement"

// ReasonSlotLost is recorded when a paid booking loses its slot to another booking.
const ReasonSlotLost = "slot no longer available"

// SettlementJob is the queue payload for one verified provider notification.
type SettlementJob struct {
	Provider     string
	Notification payments.Notification
}

type settlementProcessor interface {
	ConfirmPayment(ctx context.Context, intentID string) (*models.Booking, error)
	FailPayment(ctx context.Context, intentID, reason string) (*models.Booking, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type sandboxCheckout interface {
	CompleteCheckout(token string, outcome payments.Outcome) (*payments.Notification, error)
}

// SettlementService turns provider notifications into ConfirmPayment and FailPayment calls.
// Transient failures are retried by the queue; the booking core never retries.
type SettlementService struct {
	gateway   payments.Gateway
	processor settlementProcessor
	queue     jobEnqueuer
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewSettlementService constructs SettlementService. Without a queue, notifications settle inline.
func NewSettlementService(gateway payments.Gateway, processor settlementProcessor, metrics *MetricsService, logger *zap.Logger) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{gateway: gateway, processor: processor, metrics: metrics, logger: logger}
}

// UseQueue routes notifications through queue.
func (s *SettlementService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// HandleWebhook authenticates a provider callback and schedules its settlement.
func (s *SettlementService) HandleWebhook(ctx context.Context, provider string, body []byte, headers http.Header) error {
	if provider != s.gateway.Name() {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("payment provider %q is not enabled", provider))
	}
	notification, err := s.gateway.ParseNotification(body, headers)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrIgnoredEvent):
			s.logger.Debug("ignored payment webhook", zap.String("provider", provider))
			return nil
		case errors.Is(err, payments.ErrInvalidSignature):
			return appErrors.Clone(appErrors.ErrUnauthorized, "invalid webhook signature")
		default:
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed webhook payload")
		}
	}
	return s.Submit(ctx, *notification)
}

// CompleteSandboxCheckout settles a sandbox checkout link visit.
func (s *SettlementService) CompleteSandboxCheckout(ctx context.Context, token string, outcome payments.Outcome) error {
	sandbox, ok := s.gateway.(sandboxCheckout)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "sandbox checkout is not enabled")
	}
	notification, err := sandbox.CompleteCheckout(token, outcome)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired checkout token")
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout outcome")
	}
	return s.Submit(ctx, *notification)
}

// Submit schedules a verified notification. Pending outcomes need no action.
func (s *SettlementService) Submit(ctx context.Context, notification payments.Notification) error {
	if notification.Outcome == payments.OutcomePending {
		s.logger.Info("payment pending", zap.String("intent_id", notification.IntentID))
		return nil
	}
	job := jobs.Job{Type: SettlementJobType, Payload: SettlementJob{Provider: s.gateway.Name(), Notification: notification}}
	if s.queue == nil {
		return s.Process(ctx, job)
	}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Internal(err, "failed to schedule settlement")
	}
	return nil
}

// Process is the queue handler. Errors that retrying cannot fix are marked permanent.
func (s *SettlementService) Process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(SettlementJob)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected settlement payload %T", job.Payload))
	}
	n := payload.Notification
	logger := s.logger.With(zap.String("intent_id", n.IntentID), zap.String("outcome", string(n.Outcome)))

	var err error
	switch n.Outcome {
	case payments.OutcomeSucceeded:
		_, err = s.processor.ConfirmPayment(ctx, n.IntentID)
		if appErrors.HasCode(err, appErrors.ErrSlotUnavailable) {
			logger.Warn("paid booking lost its slot, failing payment")
			_, err = s.processor.FailPayment(ctx, n.IntentID, ReasonSlotLost)
		}
	case payments.OutcomeFailed:
		reason := n.Reason
		if reason == "" {
			reason = "payment failed"
		}
		_, err = s.processor.FailPayment(ctx, n.IntentID, reason)
	default:
		return jobs.Permanent(fmt.Errorf("unsupported outcome %q", n.Outcome))
	}

	switch {
	case err == nil:
		s.metrics.RecordSettlement(payload.Provider, "ok")
		logger.Info("payment settled")
		return nil
	case n.Outcome == payments.OutcomeSucceeded && appErrors.HasCode(err, appErrors.ErrInvalidState):
		result := "rejected"
		if s.capturedAfterClose(ctx, logger, n) {
			result = "refund_required"
		}
		s.metrics.RecordSettlement(payload.Provider, result)
		return jobs.Permanent(err)
	case appErrors.HasCode(err, appErrors.ErrInvalidState),
		appErrors.HasCode(err, appErrors.ErrIntentNotFound),
		appErrors.HasCode(err, appErrors.ErrNotFound):
		s.metrics.RecordSettlement(payload.Provider, "rejected")
		return jobs.Permanent(err)
	default:
		s.metrics.RecordSettlement(payload.Provider, "error")
		return err
	}
}

// capturedAfterClose reports whether money arrived for an intent that was already
// retired without confirming, such as one failed by the expiry sweep.
func (s *SettlementService) capturedAfterClose(ctx context.Context, logger *zap.Logger, n payments.Notification) bool {
	intent, err := s.processor.GetPaymentIntent(ctx, n.IntentID)
	if err != nil {
		logger.Warn("failed to inspect rejected payment", zap.Error(err))
		return false
	}
	if !intent.Retired() || intent.Status == models.BookingStatusConfirmed {
		return false
	}
	logger.Error("payment captured for a closed booking, refund required",
		zap.String("booking_id", intent.BookingID),
		zap.String("provider_ref", n.ProviderRef),
		zap.String("intent_status", string(intent.Status)),
		zap.Int64("amount", intent.Amount),
		zap.String("currency", intent.Currency),
	)
	return true
}

// OnDrop logs settlements the queue gave up on.
func (s *SettlementService) OnDrop(job jobs.Job, err error) {
	fields := []zap.Field{zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if payload, ok := job.Payload.(SettlementJob); ok {
		fields = append(fields, zap.String("intent_id", payload.Notification.IntentID))
	}
	if jobs.IsPermanent(err) {
		s.logger.Warn("settlement rejected", fields...)
		return
	}
	s.logger.Error("settlement abandoned after retries", fields...)
}

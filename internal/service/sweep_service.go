package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

// ReasonIntentExpired is recorded on payments abandoned past the intent TTL.
const ReasonIntentExpired = "payment intent expired"

const sweepBatchSize = 100

type expiredIntentLister interface {
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error)
}

type completableLister interface {
	ListCompletable(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
}

type sweepProcessor interface {
	FailPayment(ctx context.Context, intentID, reason string) (*models.Booking, error)
	MarkCompleted(ctx context.Context, bookingID string) (*models.Booking, error)
}

// SweepService runs the periodic housekeeping transitions.
type SweepService struct {
	intents   expiredIntentLister
	bookings  completableLister
	processor sweepProcessor
	intentTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewSweepService constructs SweepService. An intentTTL of zero disables payment expiry.
func NewSweepService(intents expiredIntentLister, bookings completableLister, processor sweepProcessor, intentTTL time.Duration, logger *zap.Logger) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{
		intents:   intents,
		bookings:  bookings,
		processor: processor,
		intentTTL: intentTTL,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register schedules Run on c.
func (s *SweepService) Register(c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Run(ctx)
	})
}

// Run executes both sweeps once.
func (s *SweepService) Run(ctx context.Context) {
	expired, err := s.ExpireStaleIntents(ctx)
	if err != nil {
		s.logger.Error("payment expiry sweep failed", zap.Error(err))
	}
	completed, err := s.CompleteElapsed(ctx)
	if err != nil {
		s.logger.Error("completion sweep failed", zap.Error(err))
	}
	if expired > 0 || completed > 0 {
		s.logger.Info("sweep finished", zap.Int("expired", expired), zap.Int("completed", completed))
	}
}

// ExpireStaleIntents fails payments whose intent outlived the TTL.
func (s *SweepService) ExpireStaleIntents(ctx context.Context) (int, error) {
	if s.intentTTL <= 0 {
		return 0, nil
	}
	intents, err := s.intents.ListExpired(ctx, s.now().Add(-s.intentTTL), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	var expired int
	for _, intent := range intents {
		if _, err := s.processor.FailPayment(ctx, intent.ID, ReasonIntentExpired); err != nil {
			if !appErrors.HasCode(err, appErrors.ErrInvalidState) {
				s.logger.Warn("failed to expire payment intent", zap.String("intent_id", intent.ID), zap.Error(err))
			}
			continue
		}
		expired++
	}
	return expired, nil
}

// CompleteElapsed completes confirmed bookings whose session has ended.
func (s *SweepService) CompleteElapsed(ctx context.Context) (int, error) {
	bookings, err := s.bookings.ListCompletable(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	var completed int
	for _, booking := range bookings {
		if _, err := s.processor.MarkCompleted(ctx, booking.ID); err != nil {
			s.logger.Warn("failed to complete booking", zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}
		completed++
	}
	return completed, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

// Cache key families, used as the metrics label for lookups.
const (
	CacheFamilyOpenSlots = "open_slots"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService fronts the read-side caches. Lookups fail open: a broken cache
// reads as a miss and the caller falls back to the database.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// OpenSlotsKey is the key of a teacher's open availability listing.
func OpenSlotsKey(teacherID string) string {
	return "availability:open:" + teacherID
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// OpenSlots returns the cached open listing of a teacher and whether it was present.
func (s *CacheService) OpenSlots(ctx context.Context, teacherID string) ([]models.Availability, bool) {
	var slots []models.Availability
	if !s.get(ctx, CacheFamilyOpenSlots, OpenSlotsKey(teacherID), &slots) {
		return nil, false
	}
	return slots, true
}

// StoreOpenSlots caches a teacher's open listing. A nil listing is stored as empty.
func (s *CacheService) StoreOpenSlots(ctx context.Context, teacherID string, slots []models.Availability, ttl time.Duration) {
	if slots == nil {
		slots = []models.Availability{}
	}
	s.set(ctx, OpenSlotsKey(teacherID), slots, ttl)
}

// InvalidateOpenSlots drops the cached open listing of each teacher.
func (s *CacheService) InvalidateOpenSlots(ctx context.Context, teacherIDs ...string) error {
	if !s.Enabled() || len(teacherIDs) == 0 {
		return nil
	}
	keys := make([]string, len(teacherIDs))
	for i, id := range teacherIDs {
		keys[i] = OpenSlotsKey(id)
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) get(ctx context.Context, family, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(family, err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *CacheService) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

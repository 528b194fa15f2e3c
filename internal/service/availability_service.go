package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type availabilityRepository interface {
	Create(ctx context.Context, slot *models.Availability) error
	Delete(ctx context.Context, teacherID, id string) error
	ListOpenByTeacher(ctx context.Context, teacherID string, from time.Time) ([]models.Availability, error)
}

type teacherSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherSubject, error)
	Create(ctx context.Context, subject *models.TeacherSubject) error
}

// AvailabilityService publishes teacher slots and serves the open-slot listing through the cache.
type AvailabilityService struct {
	repo      availabilityRepository
	subjects  teacherSubjectRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAvailabilityService constructs AvailabilityService. cache may be nil.
func NewAvailabilityService(repo availabilityRepository, subjects teacherSubjectRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		repo:      repo,
		subjects:  subjects,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSubject offers a priced subject for one-on-one sessions.
func (s *AvailabilityService) CreateSubject(ctx context.Context, teacherID string, req dto.CreateTeacherSubjectRequest) (*models.TeacherSubject, error) {
	cleaned, err := dto.ValidateCreateTeacherSubject(s.validator, req)
	if err != nil {
		return nil, err
	}
	subject := &models.TeacherSubject{
		TeacherID:       teacherID,
		Name:            cleaned.Name,
		Amount:          cleaned.Amount,
		Currency:        cleaned.Currency,
		DurationMinutes: cleaned.DurationMinutes,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Internal(err, "failed to create teacher subject")
	}
	return subject, nil
}

// Publish adds an open slot for one of the teacher's subjects.
func (s *AvailabilityService) Publish(ctx context.Context, teacherID string, req dto.CreateAvailabilityRequest) (*models.Availability, error) {
	cleaned, err := dto.ValidateCreateAvailability(s.validator, req)
	if err != nil {
		return nil, err
	}
	subject, err := s.subjects.FindByID(ctx, cleaned.TeacherSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher subject not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher subject")
	}
	if subject.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher subject belongs to another teacher")
	}

	slot := &models.Availability{
		TeacherID:        teacherID,
		TeacherSubjectID: subject.ID,
		StartTime:        cleaned.StartTime.UTC(),
		EndTime:          cleaned.EndTime.UTC(),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Internal(err, "failed to publish availability")
	}
	s.InvalidateTeacher(ctx, teacherID)
	return slot, nil
}

// ListOpen returns the teacher's open slots that have not ended yet.
func (s *AvailabilityService) ListOpen(ctx context.Context, teacherID string) ([]models.Availability, error) {
	if cached, ok := s.cache.OpenSlots(ctx, teacherID); ok {
		return cached, nil
	}

	slots, err := s.repo.ListOpenByTeacher(ctx, teacherID, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list availability")
	}
	s.cache.StoreOpenSlots(ctx, teacherID, slots, s.cacheTTL)
	return slots, nil
}

// Delete withdraws an open slot. Held or committed slots cannot be withdrawn.
func (s *AvailabilityService) Delete(ctx context.Context, teacherID, id string) error {
	if err := s.repo.Delete(ctx, teacherID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "open availability not found")
		}
		return appErrors.Internal(err, "failed to delete availability")
	}
	s.InvalidateTeacher(ctx, teacherID)
	return nil
}

// InvalidateTeacher drops the cached open-slot listing for teacherID.
func (s *AvailabilityService) InvalidateTeacher(ctx context.Context, teacherID string) {
	if err := s.cache.InvalidateOpenSlots(ctx, teacherID); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

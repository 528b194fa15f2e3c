package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	UpdateScheduleDays(ctx context.Context, teacherID, id string, days models.ScheduleDays) error
}

// ClassService manages the class catalogue.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}
	return class, nil
}

// ListByTeacher returns the classes a teacher runs.
func (s *ClassService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	classes, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, nil
}

// Create publishes a class owned by teacherID.
func (s *ClassService) Create(ctx context.Context, teacherID string, req dto.CreateClassRequest) (*models.Class, error) {
	input, err := dto.ValidateCreateClass(s.validator, req)
	if err != nil {
		return nil, err
	}
	class := &models.Class{
		TeacherID:       teacherID,
		Title:           input.Title,
		Amount:          input.Amount,
		Currency:        input.Currency,
		DurationMinutes: input.DurationMinutes,
		ScheduleDays:    input.ScheduleDays,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("teacher_id", teacherID))
	return class, nil
}

// UpdateScheduleDays replaces the weekday set of a class. Existing bookings and
// schedule day reservations are left as they are.
func (s *ClassService) UpdateScheduleDays(ctx context.Context, teacherID, classID string, req dto.UpdateScheduleDaysRequest) (*models.Class, error) {
	days, err := dto.ValidateUpdateScheduleDays(s.validator, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateScheduleDays(ctx, teacherID, classID, days); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to update schedule days")
	}
	return s.Get(ctx, classID)
}

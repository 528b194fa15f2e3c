package dto

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// CreateClassRequest publishes a class.
type CreateClassRequest struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Amount          int64    `json:"amount" validate:"min=1"`
	Currency        string   `json:"currency" validate:"required,len=3,alpha"`
	DurationMinutes int      `json:"durationMinutes" validate:"min=15,max=480"`
	ScheduleDays    []string `json:"scheduleDays" validate:"omitempty,max=7"`
}

// ClassInput is a validated class payload.
type ClassInput struct {
	Title           string
	Amount          int64
	Currency        string
	DurationMinutes int
	ScheduleDays    models.ScheduleDays
}

// ValidateCreateClass checks the payload and parses schedule days.
func ValidateCreateClass(v *validator.Validate, req CreateClassRequest) (ClassInput, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validate(v, req); err != nil {
		return ClassInput{}, err
	}
	days, err := models.ParseScheduleDays(req.ScheduleDays)
	if err != nil {
		return ClassInput{}, invalid("scheduleDays: %v", err)
	}
	return ClassInput{
		Title:           req.Title,
		Amount:          req.Amount,
		Currency:        req.Currency,
		DurationMinutes: req.DurationMinutes,
		ScheduleDays:    days,
	}, nil
}

// UpdateScheduleDaysRequest replaces a class's schedule days. An empty list clears them.
type UpdateScheduleDaysRequest struct {
	ScheduleDays []string `json:"scheduleDays" validate:"omitempty,max=7"`
}

// ValidateUpdateScheduleDays parses the days into a set.
func ValidateUpdateScheduleDays(v *validator.Validate, req UpdateScheduleDaysRequest) (models.ScheduleDays, error) {
	if err := validate(v, req); err != nil {
		return nil, err
	}
	days, err := models.ParseScheduleDays(req.ScheduleDays)
	if err != nil {
		return nil, invalid("scheduleDays: %v", err)
	}
	return days, nil
}

// CreateAvailabilityRequest publishes a bookable window for a teacher subject.
type CreateAvailabilityRequest struct {
	TeacherSubjectID string    `json:"teacherSubjectId" validate:"required,uuid"`
	StartTime        time.Time `json:"startTime" validate:"required"`
	EndTime          time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
}

// ValidateCreateAvailability enforces end > start.
func ValidateCreateAvailability(v *validator.Validate, req CreateAvailabilityRequest) (CreateAvailabilityRequest, error) {
	req.TeacherSubjectID = strings.TrimSpace(req.TeacherSubjectID)
	if err := validate(v, req); err != nil {
		return CreateAvailabilityRequest{}, err
	}
	return req, nil
}

// CreateTeacherSubjectRequest offers a subject for one-on-one sessions.
type CreateTeacherSubjectRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Amount          int64  `json:"amount" validate:"min=1"`
	Currency        string `json:"currency" validate:"required,len=3,alpha"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=15,max=480"`
}

// ValidateCreateTeacherSubject normalises the currency code.
func ValidateCreateTeacherSubject(v *validator.Validate, req CreateTeacherSubjectRequest) (CreateTeacherSubjectRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validate(v, req); err != nil {
		return CreateTeacherSubjectRequest{}, err
	}
	return req, nil
}

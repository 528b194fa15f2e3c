package dto

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// CreateBookingRequest books either a class session or a teacher availability slot.
type CreateBookingRequest struct {
	Kind           models.BookingKind `json:"kind" validate:"required,oneof=class teacher"`
	ClassID        *string            `json:"classId" validate:"omitempty,uuid"`
	AvailabilityID *string            `json:"availabilityId" validate:"omitempty,uuid"`
	BookingDate    time.Time          `json:"bookingDate" validate:"required"`
}

// ValidateCreateBooking checks the request and that exactly the reference matching Kind is set.
func ValidateCreateBooking(v *validator.Validate, req CreateBookingRequest) (CreateBookingRequest, error) {
	req.Kind = models.BookingKind(strings.ToLower(strings.TrimSpace(string(req.Kind))))
	req.ClassID = trimPtr(req.ClassID)
	req.AvailabilityID = trimPtr(req.AvailabilityID)
	if err := validate(v, req); err != nil {
		return CreateBookingRequest{}, err
	}
	switch req.Kind {
	case models.BookingKindClass:
		if req.ClassID == nil || req.AvailabilityID != nil {
			return CreateBookingRequest{}, invalid("class bookings require classId only")
		}
	case models.BookingKindTeacher:
		if req.AvailabilityID == nil || req.ClassID != nil {
			return CreateBookingRequest{}, invalid("teacher bookings require availabilityId only")
		}
	}
	return req, nil
}

// CancelBookingRequest carries an optional cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ValidateCancelBooking trims and bounds the reason.
func ValidateCancelBooking(v *validator.Validate, req CancelBookingRequest) (CancelBookingRequest, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validate(v, req); err != nil {
		return CancelBookingRequest{}, err
	}
	return req, nil
}

// BookingListQuery filters booking listings.
type BookingListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending payment_processing confirmed completed cancelled payment_failed"`
	Kind     string `form:"kind" validate:"omitempty,oneof=class teacher"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ValidateBookingListQuery returns a filter with paging defaults applied.
func ValidateBookingListQuery(v *validator.Validate, q BookingListQuery) (models.BookingFilter, error) {
	if err := validate(v, q); err != nil {
		return models.BookingFilter{}, err
	}
	filter := models.BookingFilter{
		Status:   models.BookingStatus(q.Status),
		Kind:     models.BookingKind(q.Kind),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}
	return filter, nil
}

// CreateReviewRequest rates a completed booking.
type CreateReviewRequest struct {
	Rating  int     `json:"rating" validate:"min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// ValidateCreateReview rejects ratings outside [1,5].
func ValidateCreateReview(v *validator.Validate, req CreateReviewRequest) (CreateReviewRequest, error) {
	req.Comment = trimPtr(req.Comment)
	if err := validate(v, req); err != nil {
		return CreateReviewRequest{}, err
	}
	return req, nil
}

// SubmitAssignmentRequest attaches homework to a class booking.
type SubmitAssignmentRequest struct {
	SubmissionText *string  `json:"submissionText" validate:"omitempty,max=10000"`
	Files          []string `json:"files" validate:"omitempty,max=10,dive,required,url"`
}

// ValidateSubmitAssignment requires text or at least one file.
func ValidateSubmitAssignment(v *validator.Validate, req SubmitAssignmentRequest) (SubmitAssignmentRequest, error) {
	req.SubmissionText = trimPtr(req.SubmissionText)
	files := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	req.Files = files
	if err := validate(v, req); err != nil {
		return SubmitAssignmentRequest{}, err
	}
	if req.SubmissionText == nil && len(req.Files) == 0 {
		return SubmitAssignmentRequest{}, invalid("submissionText or files is required")
	}
	return req, nil
}

package dto

import (
	"time"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// PaymentIntentResponse is returned when a payment is initiated.
type PaymentIntentResponse struct {
	URL              string               `json:"url"`
	ID               string               `json:"id"`
	Amount           int64                `json:"amount"`
	Currency         string               `json:"currency"`
	Status           models.BookingStatus `json:"status"`
	BookingDate      time.Time            `json:"bookingDate"`
	TeacherID        string               `json:"teacherId"`
	StudentID        string               `json:"studentId"`
	TeacherSubjectID *string              `json:"teacherSubjectId"`
	AvailabilityID   *string              `json:"availabilityId"`
	ClassID          *string              `json:"classId,omitempty"`
}

// NewPaymentIntentResponse maps a persisted intent to its response shape.
func NewPaymentIntentResponse(intent *models.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		URL:              intent.URL,
		ID:               intent.ID,
		Amount:           intent.Amount,
		Currency:         intent.Currency,
		Status:           intent.Status,
		BookingDate:      intent.BookingDate,
		TeacherID:        intent.TeacherID,
		StudentID:        intent.StudentID,
		TeacherSubjectID: intent.TeacherSubjectID,
		AvailabilityID:   intent.AvailabilityID,
		ClassID:          intent.ClassID,
	}
}

// SandboxCheckoutQuery completes a sandbox checkout link.
type SandboxCheckoutQuery struct {
	Token   string `form:"token" binding:"required"`
	Outcome string `form:"outcome"`
}

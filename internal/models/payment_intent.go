package models

import "time"

// PaymentIntent shadows the payment state of a booking until it settles.
type PaymentIntent struct {
	ID               string        `db:"id" json:"id"`
	BookingID        string        `db:"booking_id" json:"booking_id"`
	Provider         string        `db:"provider" json:"provider"`
	ProviderRef      *string       `db:"provider_ref" json:"provider_ref,omitempty"`
	URL              string        `db:"url" json:"url"`
	Amount           int64         `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	Status           BookingStatus `db:"status" json:"status"`
	BookingDate      time.Time     `db:"booking_date" json:"booking_date"`
	TeacherID        string        `db:"teacher_id" json:"teacher_id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	TeacherSubjectID *string       `db:"teacher_subject_id" json:"teacher_subject_id,omitempty"`
	AvailabilityID   *string       `db:"availability_id" json:"availability_id,omitempty"`
	ClassID          *string       `db:"class_id" json:"class_id,omitempty"`
	FailureReason    *string       `db:"failure_reason" json:"failure_reason,omitempty"`
	RetiredAt        *time.Time    `db:"retired_at" json:"retired_at,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// Retired reports whether the intent no longer tracks its booking.
func (p *PaymentIntent) Retired() bool {
	return p.RetiredAt != nil
}

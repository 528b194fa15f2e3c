package models

import "time"

// AvailabilityStatus tracks whether a slot can still be booked.
type AvailabilityStatus string

const (
	AvailabilityOpen      AvailabilityStatus = "open"
	AvailabilityHeld      AvailabilityStatus = "held"
	AvailabilityCommitted AvailabilityStatus = "committed"
)

// Availability is a teacher-published window consumable by one booking.
type Availability struct {
	ID               string             `db:"id" json:"id"`
	TeacherID        string             `db:"teacher_id" json:"teacher_id"`
	TeacherSubjectID string             `db:"teacher_subject_id" json:"teacher_subject_id"`
	StartTime        time.Time          `db:"start_time" json:"start_time"`
	EndTime          time.Time          `db:"end_time" json:"end_time"`
	Status           AvailabilityStatus `db:"status" json:"status"`
	BookingID        *string            `db:"booking_id" json:"booking_id,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// Covers reports whether t falls in [StartTime, EndTime).
func (a *Availability) Covers(t time.Time) bool {
	return !t.Before(a.StartTime) && t.Before(a.EndTime)
}

// ClaimedByOther reports whether a booking other than bookingID holds or owns the slot.
func (a *Availability) ClaimedByOther(bookingID string) bool {
	if a.Status == AvailabilityOpen {
		return false
	}
	return a.BookingID == nil || *a.BookingID != bookingID
}

// TeacherSubject is a subject a teacher offers one-on-one, with its price.
type TeacherSubject struct {
	ID              string    `db:"id" json:"id"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	Name            string    `db:"name" json:"name"`
	Amount          int64     `db:"amount" json:"amount"`
	Currency        string    `db:"currency" json:"currency"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

package models

import (
	"fmt"
	"time"
)

// BookingKind distinguishes class bookings from one-on-one teacher bookings.
type BookingKind string

const (
	BookingKindClass   BookingKind = "class"
	BookingKindTeacher BookingKind = "teacher"
)

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingStatusPending           BookingStatus = "pending"
	BookingStatusPaymentProcessing BookingStatus = "payment_processing"
	BookingStatusConfirmed         BookingStatus = "confirmed"
	BookingStatusCompleted         BookingStatus = "completed"
	BookingStatusCancelled         BookingStatus = "cancelled"
	BookingStatusPaymentFailed     BookingStatus = "payment_failed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:           {BookingStatusPaymentProcessing, BookingStatusCancelled},
	BookingStatusPaymentProcessing: {BookingStatusConfirmed, BookingStatusPaymentFailed, BookingStatusCancelled},
	BookingStatusConfirmed:         {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransitionTo reports whether to is a direct successor of s.
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusPaymentProcessing, BookingStatusConfirmed,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusPaymentFailed:
		return true
	}
	return false
}

// Booking is a reservation of a teacher slot or a class session by a student.
type Booking struct {
	ID               string        `db:"id" json:"id"`
	Kind             BookingKind   `db:"kind" json:"kind"`
	StudentID        string        `db:"student_id" json:"student_id"`
	TeacherID        string        `db:"teacher_id" json:"teacher_id"`
	ClassID          *string       `db:"class_id" json:"class_id,omitempty"`
	ScheduleDay      *Weekday      `db:"schedule_day" json:"schedule_day,omitempty"`
	TeacherSubjectID *string       `db:"teacher_subject_id" json:"teacher_subject_id,omitempty"`
	AvailabilityID   *string       `db:"availability_id" json:"availability_id,omitempty"`
	Status           BookingStatus `db:"status" json:"status"`
	BookingDate      time.Time     `db:"booking_date" json:"booking_date"`
	EndsAt           time.Time     `db:"ends_at" json:"ends_at"`
	Amount           int64         `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	FailureReason    *string       `db:"failure_reason" json:"failure_reason,omitempty"`
	CancelReason     *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	ConfirmedAt      *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CompletedAt      *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt      *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// SlotKey identifies the scarce resource consumed by the booking.
func (b *Booking) SlotKey() string {
	if b.Kind == BookingKindClass {
		var day Weekday
		if b.ScheduleDay != nil {
			day = *b.ScheduleDay
		}
		return fmt.Sprintf("class:%s:%s", deref(b.ClassID), day)
	}
	return fmt.Sprintf("slot:%s:%s", deref(b.TeacherSubjectID), deref(b.AvailabilityID))
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	StudentID string
	TeacherID string
	Kind      BookingKind
	Status    BookingStatus
	Page      int
	PageSize  int
}

// BookingEvent is emitted after every successful status transition.
type BookingEvent struct {
	BookingID string        `json:"booking_id"`
	Kind      BookingKind   `json:"kind"`
	From      BookingStatus `json:"from"`
	To        BookingStatus `json:"to"`
	Reason    string        `json:"reason,omitempty"`
	At        time.Time     `json:"at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// Review is a student's rating of a completed booking.
type Review struct {
	ID        string    `db:"id" json:"id"`
	BookingID string    `db:"booking_id" json:"booking_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignmentSubmission is homework attached to a class booking.
type AssignmentSubmission struct {
	ID             string         `db:"id" json:"id"`
	BookingID      string         `db:"booking_id" json:"booking_id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	SubmissionText *string        `db:"submission_text" json:"submission_text,omitempty"`
	Files          pq.StringArray `db:"files" json:"files"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

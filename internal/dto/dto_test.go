package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestValidateCreateReviewBounds(t *testing.T) {
	v := NewValidator()
	for _, rating := range []int{0, 6} {
		_, err := ValidateCreateReview(v, CreateReviewRequest{Rating: rating})
		require.Error(t, err, rating)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	}
	for _, rating := range []int{1, 5} {
		req, err := ValidateCreateReview(v, CreateReviewRequest{Rating: rating, Comment: strPtr("  great  ")})
		require.NoError(t, err, rating)
		assert.Equal(t, "great", *req.Comment)
	}
}

func TestValidateSubmitAssignmentRequiresContent(t *testing.T) {
	v := NewValidator()

	_, err := ValidateSubmitAssignment(v, SubmitAssignmentRequest{SubmissionText: strPtr("   "), Files: []string{" "}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	req, err := ValidateSubmitAssignment(v, SubmitAssignmentRequest{Files: []string{"https://files.example/hw.pdf"}})
	require.NoError(t, err)
	assert.Nil(t, req.SubmissionText)
	assert.Len(t, req.Files, 1)

	_, err = ValidateSubmitAssignment(v, SubmitAssignmentRequest{Files: []string{"not a url"}})
	assert.Error(t, err)
}

func TestValidateCreateBookingReferences(t *testing.T) {
	v := NewValidator()
	id := "5b0d3f8e-8a39-4a5c-9a43-1f0f6f0b7c11"
	date := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	req, err := ValidateCreateBooking(v, CreateBookingRequest{Kind: "Teacher", AvailabilityID: &id, BookingDate: date})
	require.NoError(t, err)
	assert.Equal(t, models.BookingKindTeacher, req.Kind)

	_, err = ValidateCreateBooking(v, CreateBookingRequest{Kind: "class", AvailabilityID: &id, BookingDate: date})
	assert.Error(t, err)

	_, err = ValidateCreateBooking(v, CreateBookingRequest{Kind: "class", ClassID: &id})
	assert.Error(t, err)

	_, err = ValidateCreateBooking(v, CreateBookingRequest{Kind: "group", ClassID: &id, BookingDate: date})
	assert.Error(t, err)
}

func TestValidateCreateClassParsesDays(t *testing.T) {
	in, err := ValidateCreateClass(NewValidator(), CreateClassRequest{
		Title:           " Algebra ",
		Amount:          2500,
		Currency:        "usd",
		DurationMinutes: 60,
		ScheduleDays:    []string{"Wed", "mon"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Algebra", in.Title)
	assert.Equal(t, "USD", in.Currency)
	assert.Equal(t, models.ScheduleDays{models.Monday, models.Wednesday}, in.ScheduleDays)

	_, err = ValidateCreateClass(NewValidator(), CreateClassRequest{Title: "x", Amount: 1, Currency: "USD", DurationMinutes: 60, ScheduleDays: []string{"Someday"}})
	assert.Error(t, err)
}

func TestValidateCreateAvailabilityWindow(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	req := CreateAvailabilityRequest{TeacherSubjectID: "5b0d3f8e-8a39-4a5c-9a43-1f0f6f0b7c11", StartTime: start, EndTime: start}

	_, err := ValidateCreateAvailability(NewValidator(), req)
	assert.Error(t, err)

	req.EndTime = start.Add(time.Hour)
	_, err = ValidateCreateAvailability(NewValidator(), req)
	assert.NoError(t, err)
}

func TestValidateBookingListQueryDefaults(t *testing.T) {
	filter, err := ValidateBookingListQuery(nil, BookingListQuery{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, 1, filter.Page)
	assert.Equal(t, 20, filter.PageSize)
	assert.Equal(t, models.BookingStatusConfirmed, filter.Status)

	_, err = ValidateBookingListQuery(nil, BookingListQuery{Status: "archived"})
	assert.Error(t, err)
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

var bookingRowColumns = []string{"id", "kind", "student_id", "teacher_id", "class_id", "schedule_day", "teacher_subject_id",
	"availability_id", "status", "booking_date", "ends_at", "amount", "currency", "failure_reason", "cancel_reason",
	"confirmed_at", "completed_at", "cancelled_at", "created_at", "updated_at"}

func TestBookingFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(bookingRowColumns).
		AddRow("b1", "class", "s1", "t1", "c1", "Tue", nil, nil, "pending", now, now.Add(time.Hour), int64(4500), "USD",
			nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + bookingColumns + " FROM bookings WHERE id = $1")).
		WithArgs("b1").
		WillReturnRows(rows)

	booking, err := repo.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingKindClass, booking.Kind)
	require.NotNil(t, booking.ScheduleDay)
	assert.Equal(t, models.Tuesday, *booking.ScheduleDay)
	assert.Nil(t, booking.AvailabilityID)
	assert.Equal(t, "class:c1:Tue", booking.SlotKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery("(?s)SELECT .* FROM bookings WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestBookingCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(1, 1))

	booking := &models.Booking{Kind: models.BookingKindTeacher, StudentID: "s1", TeacherID: "t1", Status: models.BookingStatusPending,
		BookingDate: time.Now(), EndsAt: time.Now().Add(time.Hour), Amount: 100, Currency: "USD"}
	require.NoError(t, repo.Create(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingUpdateStatusIsConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	booking := &models.Booking{ID: "b1", Status: models.BookingStatusConfirmed}
	mock.ExpectExec("UPDATE bookings").
		WithArgs("b1", models.BookingStatusPaymentProcessing, models.BookingStatusConfirmed, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), booking, models.BookingStatusPaymentProcessing)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE 1=1 AND student_id = $1 AND status = $2")).
		WithArgs("s1", models.BookingStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	mock.ExpectQuery("(?s)SELECT .* FROM bookings WHERE 1=1 AND student_id = \\$1 AND status = \\$2 ORDER BY booking_date DESC, id LIMIT 10 OFFSET 10").
		WithArgs("s1", models.BookingStatusConfirmed).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).
			AddRow("b1", "teacher", "s1", "t1", nil, nil, "ts1", "a1", "confirmed", now, now.Add(time.Hour), int64(100), "USD",
				nil, nil, now, nil, nil, now, now))

	bookings, total, err := repo.List(context.Background(), models.BookingFilter{StudentID: "s1", Status: models.BookingStatusConfirmed, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, bookings, 1)
	assert.Equal(t, "slot:ts1:a1", bookings[0].SlotKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}

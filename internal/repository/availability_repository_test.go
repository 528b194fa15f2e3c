package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func TestAvailabilityCommitReportsLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("UPDATE availabilities SET status = 'committed'").
		WithArgs("a1", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE availabilities SET status = 'committed'").
		WithArgs("a1", "b2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Commit(context.Background(), "a1", "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Commit(context.Background(), "a1", "b2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityCreateForcesOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("INSERT INTO availabilities").WillReturnResult(sqlmock.NewResult(1, 1))

	owner := "b1"
	slot := &models.Availability{TeacherID: "t1", TeacherSubjectID: "ts1", Status: models.AvailabilityCommitted, BookingID: &owner}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.Equal(t, models.AvailabilityOpen, slot.Status)
	assert.Nil(t, slot.BookingID)
	assert.NotEmpty(t, slot.ID)
}

func TestAvailabilityDeleteOnlyOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("DELETE FROM availabilities WHERE id = \\$1 AND teacher_id = \\$2 AND status = 'open'").
		WithArgs("a1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "t1", "a1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleDayHoldConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleDayRepository(db)

	mock.ExpectExec("INSERT INTO schedule_day_reservations").
		WithArgs("c1", models.Tuesday, "b2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Hold(context.Background(), "c1", models.Tuesday, "b2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleDayFindFree(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleDayRepository(db)

	mock.ExpectQuery("SELECT class_id, weekday, booking_id, status").
		WithArgs("c1", models.Monday).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "weekday", "booking_id", "status", "created_at", "updated_at"}))

	_, err := repo.Find(context.Background(), "c1", models.Monday)
	assert.Equal(t, sql.ErrNoRows, err)
}

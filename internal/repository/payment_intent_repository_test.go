package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func TestPaymentIntentCreateDuplicateOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentIntentRepository(db)

	mock.ExpectExec("INSERT INTO payment_intents").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.PaymentIntent{BookingID: "b1", Amount: 100, Currency: "USD"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPaymentIntentRetire(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentIntentRepository(db)

	reason := "card declined"
	intent := &models.PaymentIntent{ID: "i1", Status: models.BookingStatusPaymentFailed, FailureReason: &reason}
	mock.ExpectExec("UPDATE payment_intents SET status = \\$2, failure_reason = \\$3, retired_at = \\$4").
		WithArgs("i1", models.BookingStatusPaymentFailed, &reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Retire(context.Background(), intent))
	assert.True(t, intent.Retired())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentIntentListExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentIntentRepository(db)

	cutoff := time.Now().Add(-30 * time.Minute)
	mock.ExpectQuery("(?s)SELECT .* FROM payment_intents\\s+WHERE retired_at IS NULL AND created_at < \\$1").
		WithArgs(cutoff, 50).
		WillReturnError(errors.New("db down"))

	_, err := repo.ListExpired(context.Background(), cutoff, 50)
	assert.ErrorContains(t, err, "list expired payment intents")
}

func TestReviewCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec("INSERT INTO reviews").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Review{BookingID: "b1", Rating: 5})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAssignmentCreateDefaultsFiles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignment_submissions").WillReturnResult(sqlmock.NewResult(1, 1))

	submission := &models.AssignmentSubmission{BookingID: "b1", StudentID: "s1"}
	require.NoError(t, repo.Create(context.Background(), submission))
	assert.NotNil(t, submission.Files)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassUpdateScheduleDaysNotOwned(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET schedule_days").
		WithArgs("c1", "t2", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateScheduleDays(context.Background(), "t2", "c1", models.ScheduleDays{models.Monday})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

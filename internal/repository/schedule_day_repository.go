package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// ScheduleDayRepository tracks which booking holds each (class, weekday) pair.
type ScheduleDayRepository struct {
	db *sqlx.DB
}

// NewScheduleDayRepository constructs the repository.
func NewScheduleDayRepository(db *sqlx.DB) *ScheduleDayRepository {
	return &ScheduleDayRepository{db: db}
}

// Find returns the reservation for the pair or sql.ErrNoRows when the day is free.
func (r *ScheduleDayRepository) Find(ctx context.Context, classID string, day models.Weekday) (*models.ScheduleDayReservation, error) {
	const query = `SELECT class_id, weekday, booking_id, status, created_at, updated_at
FROM schedule_day_reservations WHERE class_id = $1 AND weekday = $2`
	var reservation models.ScheduleDayReservation
	if err := r.db.GetContext(ctx, &reservation, query, classID, day); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get schedule day reservation: %w", err)
	}
	return &reservation, nil
}

// Hold claims the day for bookingID unless another booking already holds or owns it.
func (r *ScheduleDayRepository) Hold(ctx context.Context, classID string, day models.Weekday, bookingID string) (bool, error) {
	const query = `INSERT INTO schedule_day_reservations (class_id, weekday, booking_id, status, created_at, updated_at)
VALUES ($1, $2, $3, 'held', NOW(), NOW())
ON CONFLICT (class_id, weekday) DO UPDATE SET updated_at = NOW()
WHERE schedule_day_reservations.booking_id = EXCLUDED.booking_id AND schedule_day_reservations.status = 'held'`
	return r.claim(ctx, "hold schedule day", query, classID, day, bookingID)
}

// Commit assigns the day to bookingID unless another booking owns it.
func (r *ScheduleDayRepository) Commit(ctx context.Context, classID string, day models.Weekday, bookingID string) (bool, error) {
	const query = `INSERT INTO schedule_day_reservations (class_id, weekday, booking_id, status, created_at, updated_at)
VALUES ($1, $2, $3, 'committed', NOW(), NOW())
ON CONFLICT (class_id, weekday) DO UPDATE SET status = 'committed', updated_at = NOW()
WHERE schedule_day_reservations.booking_id = EXCLUDED.booking_id`
	return r.claim(ctx, "commit schedule day", query, classID, day, bookingID)
}

// Release frees the day if bookingID still holds it.
func (r *ScheduleDayRepository) Release(ctx context.Context, classID string, day models.Weekday, bookingID string) error {
	const query = `DELETE FROM schedule_day_reservations WHERE class_id = $1 AND weekday = $2 AND booking_id = $3`
	if _, err := r.db.ExecContext(ctx, query, classID, day, bookingID); err != nil {
		return fmt.Errorf("release schedule day: %w", err)
	}
	return nil
}

func (r *ScheduleDayRepository) claim(ctx context.Context, op, query, classID string, day models.Weekday, bookingID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, classID, day, bookingID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows: %w", op, err)
	}
	return affectedOne(affected), nil
}

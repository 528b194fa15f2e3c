package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

const availabilityColumns = `id, teacher_id, teacher_subject_id, start_time, end_time, status, booking_id, created_at, updated_at`

// AvailabilityRepository persists teacher availability slots. Claim methods are
// conditional updates and report whether the claim was granted.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// FindByID returns a slot or sql.ErrNoRows.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.Availability, error) {
	const query = `SELECT ` + availabilityColumns + ` FROM availabilities WHERE id = $1`
	var slot models.Availability
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return &slot, nil
}

// Create inserts an open slot.
func (r *AvailabilityRepository) Create(ctx context.Context, slot *models.Availability) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.Status = models.AvailabilityOpen
	slot.BookingID = nil
	slot.CreatedAt = now
	slot.UpdatedAt = now
	const query = `INSERT INTO availabilities (id, teacher_id, teacher_subject_id, start_time, end_time, status, booking_id, created_at, updated_at)
VALUES (:id, :teacher_id, :teacher_subject_id, :start_time, :end_time, :status, :booking_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// Delete removes an open slot owned by teacherID.
func (r *AvailabilityRepository) Delete(ctx context.Context, teacherID, id string) error {
	const query = `DELETE FROM availabilities WHERE id = $1 AND teacher_id = $2 AND status = 'open'`
	result, err := r.db.ExecContext(ctx, query, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted availability rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListOpenByTeacher returns open slots starting at or after from.
func (r *AvailabilityRepository) ListOpenByTeacher(ctx context.Context, teacherID string, from time.Time) ([]models.Availability, error) {
	const query = `SELECT ` + availabilityColumns + ` FROM availabilities
WHERE teacher_id = $1 AND status = 'open' AND end_time > $2
ORDER BY start_time ASC`
	slots := []models.Availability{}
	if err := r.db.SelectContext(ctx, &slots, query, teacherID, from); err != nil {
		return nil, fmt.Errorf("list open availability: %w", err)
	}
	return slots, nil
}

// Hold tentatively claims the slot for bookingID.
func (r *AvailabilityRepository) Hold(ctx context.Context, id, bookingID string) (bool, error) {
	const query = `UPDATE availabilities SET status = 'held', booking_id = $2, updated_at = NOW()
WHERE id = $1 AND (status = 'open' OR (status = 'held' AND booking_id = $2))`
	return r.claim(ctx, "hold availability", query, id, bookingID)
}

// Commit permanently assigns the slot to bookingID unless another booking owns it.
func (r *AvailabilityRepository) Commit(ctx context.Context, id, bookingID string) (bool, error) {
	const query = `UPDATE availabilities SET status = 'committed', booking_id = $2, updated_at = NOW()
WHERE id = $1 AND (status = 'open' OR booking_id = $2)`
	return r.claim(ctx, "commit availability", query, id, bookingID)
}

// Release reopens the slot if bookingID still owns it.
func (r *AvailabilityRepository) Release(ctx context.Context, id, bookingID string) error {
	const query = `UPDATE availabilities SET status = 'open', booking_id = NULL, updated_at = NOW()
WHERE id = $1 AND booking_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, bookingID); err != nil {
		return fmt.Errorf("release availability: %w", err)
	}
	return nil
}

func (r *AvailabilityRepository) claim(ctx context.Context, op, query, id, bookingID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, id, bookingID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows: %w", op, err)
	}
	return affectedOne(affected), nil
}

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

const classColumns = `id, teacher_id, title, amount, currency, duration_minutes, schedule_days, created_at, updated_at`

// ClassRepository persists classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class or sql.ErrNoRows.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return &class, nil
}

// ListByTeacher returns the teacher's classes ordered by title.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	const query = `SELECT ` + classColumns + ` FROM classes WHERE teacher_id = $1 ORDER BY title ASC`
	classes := []models.Class{}
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, teacher_id, title, amount, currency, duration_minutes, schedule_days, created_at, updated_at)
VALUES (:id, :teacher_id, :title, :amount, :currency, :duration_minutes, :schedule_days, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateScheduleDays replaces the schedule days of a class owned by teacherID.
func (r *ClassRepository) UpdateScheduleDays(ctx context.Context, teacherID, id string, days models.ScheduleDays) error {
	const query = `UPDATE classes SET schedule_days = $3, updated_at = $4 WHERE id = $1 AND teacher_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, teacherID, days, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update class schedule days: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated class rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

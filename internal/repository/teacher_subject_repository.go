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

// TeacherSubjectRepository persists the subjects teachers offer one-on-one.
type TeacherSubjectRepository struct {
	db *sqlx.DB
}

// NewTeacherSubjectRepository constructs the repository.
func NewTeacherSubjectRepository(db *sqlx.DB) *TeacherSubjectRepository {
	return &TeacherSubjectRepository{db: db}
}

// FindByID returns a teacher subject or sql.ErrNoRows.
func (r *TeacherSubjectRepository) FindByID(ctx context.Context, id string) (*models.TeacherSubject, error) {
	const query = `SELECT id, teacher_id, name, amount, currency, duration_minutes, created_at, updated_at FROM teacher_subjects WHERE id = $1`
	var subject models.TeacherSubject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get teacher subject: %w", err)
	}
	return &subject, nil
}

// Create inserts a teacher subject.
func (r *TeacherSubjectRepository) Create(ctx context.Context, subject *models.TeacherSubject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO teacher_subjects (id, teacher_id, name, amount, currency, duration_minutes, created_at, updated_at)
VALUES (:id, :teacher_id, :name, :amount, :currency, :duration_minutes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create teacher subject: %w", err)
	}
	return nil
}

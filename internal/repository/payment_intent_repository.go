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

const intentColumns = `id, booking_id, provider, provider_ref, url, amount, currency, status, booking_date, teacher_id, student_id,
       teacher_subject_id, availability_id, class_id, failure_reason, retired_at, created_at, updated_at`

// PaymentIntentRepository persists payment intents.
type PaymentIntentRepository struct {
	db *sqlx.DB
}

// NewPaymentIntentRepository constructs the repository.
func NewPaymentIntentRepository(db *sqlx.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

// FindByID returns an intent or sql.ErrNoRows.
func (r *PaymentIntentRepository) FindByID(ctx context.Context, id string) (*models.PaymentIntent, error) {
	const query = `SELECT ` + intentColumns + ` FROM payment_intents WHERE id = $1`
	return r.get(ctx, query, id)
}

// FindOpenByBooking returns the unretired intent of a booking or sql.ErrNoRows.
func (r *PaymentIntentRepository) FindOpenByBooking(ctx context.Context, bookingID string) (*models.PaymentIntent, error) {
	const query = `SELECT ` + intentColumns + ` FROM payment_intents WHERE booking_id = $1 AND retired_at IS NULL`
	return r.get(ctx, query, bookingID)
}

func (r *PaymentIntentRepository) get(ctx context.Context, query string, arg string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.GetContext(ctx, &intent, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return &intent, nil
}

// Create inserts an intent. A booking may only have one open intent.
func (r *PaymentIntentRepository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	const query = `INSERT INTO payment_intents (id, booking_id, provider, provider_ref, url, amount, currency, status, booking_date,
       teacher_id, student_id, teacher_subject_id, availability_id, class_id, created_at, updated_at)
VALUES (:id, :booking_id, :provider, :provider_ref, :url, :amount, :currency, :status, :booking_date,
       :teacher_id, :student_id, :teacher_subject_id, :availability_id, :class_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, intent); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create payment intent: %w", err)
	}
	return nil
}

// Retire records the final status of an open intent.
func (r *PaymentIntentRepository) Retire(ctx context.Context, intent *models.PaymentIntent) error {
	now := time.Now().UTC()
	intent.RetiredAt = &now
	intent.UpdatedAt = now
	const query = `UPDATE payment_intents SET status = $2, failure_reason = $3, retired_at = $4, updated_at = $4
WHERE id = $1 AND retired_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, intent.ID, intent.Status, intent.FailureReason, now); err != nil {
		return fmt.Errorf("retire payment intent: %w", err)
	}
	return nil
}

// ListExpired returns open intents created before cutoff, oldest first.
func (r *PaymentIntentRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentIntent, error) {
	const query = `SELECT ` + intentColumns + ` FROM payment_intents
WHERE retired_at IS NULL AND created_at < $1
ORDER BY created_at ASC
LIMIT $2`
	var intents []models.PaymentIntent
	if err := r.db.SelectContext(ctx, &intents, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list expired payment intents: %w", err)
	}
	return intents, nil
}

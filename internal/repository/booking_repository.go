package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

const bookingColumns = `id, kind, student_id, teacher_id, class_id, schedule_day, teacher_subject_id, availability_id, status,
       booking_date, ends_at, amount, currency, failure_reason, cancel_reason, confirmed_at, completed_at, cancelled_at,
       created_at, updated_at`

// BookingRepository persists bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByID returns a booking or sql.ErrNoRows.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	const query = `INSERT INTO bookings (id, kind, student_id, teacher_id, class_id, schedule_day, teacher_subject_id, availability_id,
       status, booking_date, ends_at, amount, currency, created_at, updated_at)
VALUES (:id, :kind, :student_id, :teacher_id, :class_id, :schedule_day, :teacher_subject_id, :availability_id,
       :status, :booking_date, :ends_at, :amount, :currency, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// UpdateStatus persists a transition only if the stored status still equals from.
// It returns sql.ErrNoRows when another writer moved the booking first.
func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *models.Booking, from models.BookingStatus) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings
SET status = $3, failure_reason = $4, cancel_reason = $5, confirmed_at = $6, completed_at = $7, cancelled_at = $8, updated_at = $9
WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, booking.ID, from, booking.Status, booking.FailureReason, booking.CancelReason,
		booking.ConfirmedAt, booking.CompletedAt, booking.CancelledAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated booking rows: %w", err)
	}
	if !affectedOne(affected) {
		return sql.ErrNoRows
	}
	return nil
}

// List returns a page of bookings and the total matching count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	add := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.TeacherID != "" {
		add("teacher_id = $%d", filter.TeacherID)
	}
	if filter.Kind != "" {
		add("kind = $%d", filter.Kind)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bookings WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE %s ORDER BY booking_date DESC, id LIMIT %d OFFSET %d",
		bookingColumns, where, size, (page-1)*size)

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

// ListCompletable returns confirmed bookings whose session ended at or before now.
func (r *BookingRepository) ListCompletable(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings
WHERE status = 'confirmed' AND ends_at <= $1
ORDER BY ends_at ASC
LIMIT $2`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, now, limit); err != nil {
		return nil, fmt.Errorf("list completable bookings: %w", err)
	}
	return bookings, nil
}

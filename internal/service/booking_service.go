package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/lock"
	"github.com/noah-isme/tutor-booking-api/pkg/payments"
)

type bookingStore interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	UpdateStatus(ctx context.Context, booking *models.Booking, from models.BookingStatus) error
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type availabilityStore interface {
	FindByID(ctx context.Context, id string) (*models.Availability, error)
	Hold(ctx context.Context, id, bookingID string) (bool, error)
	Commit(ctx context.Context, id, bookingID string) (bool, error)
	Release(ctx context.Context, id, bookingID string) error
}

type scheduleDayStore interface {
	Find(ctx context.Context, classID string, day models.Weekday) (*models.ScheduleDayReservation, error)
	Hold(ctx context.Context, classID string, day models.Weekday, bookingID string) (bool, error)
	Commit(ctx context.Context, classID string, day models.Weekday, bookingID string) (bool, error)
	Release(ctx context.Context, classID string, day models.Weekday, bookingID string) error
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type teacherSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.TeacherSubject, error)
}

type intentStore interface {
	Create(ctx context.Context, intent *models.PaymentIntent) error
	FindByID(ctx context.Context, id string) (*models.PaymentIntent, error)
	FindOpenByBooking(ctx context.Context, bookingID string) (*models.PaymentIntent, error)
	Retire(ctx context.Context, intent *models.PaymentIntent) error
}

type reviewStore interface {
	Create(ctx context.Context, review *models.Review) error
}

type assignmentStore interface {
	Create(ctx context.Context, submission *models.AssignmentSubmission) error
}

// EventPublisher receives a BookingEvent after every committed transition.
type EventPublisher interface {
	Publish(ctx context.Context, event models.BookingEvent) error
}

// SlotCache is told when a teacher's open slots change.
type SlotCache interface {
	InvalidateTeacher(ctx context.Context, teacherID string)
}

// BookingDependencies groups the collaborators of BookingService.
type BookingDependencies struct {
	Bookings        bookingStore
	Availability    availabilityStore
	ScheduleDays    scheduleDayStore
	Classes         classReader
	TeacherSubjects teacherSubjectReader
	Intents         intentStore
	Reviews         reviewStore
	Assignments     assignmentStore
	Gateway         payments.Gateway
	Locker          lock.Locker
	Events          EventPublisher
	SlotCache       SlotCache
	Metrics         *MetricsService
}

// BookingConfig tunes the lifecycle manager.
type BookingConfig struct {
	// IntentTTL bounds how long a checkout stays payable. Zero disables expiry.
	IntentTTL time.Duration

	// GatewayTimeout caps the checkout call made while the booking and slot locks are held.
	GatewayTimeout time.Duration
}

// BookingService owns booking status transitions and their slot side effects.
type BookingService struct {
	bookings     bookingStore
	availability availabilityStore
	scheduleDays scheduleDayStore
	classes      classReader
	subjects     teacherSubjectReader
	intents      intentStore
	reviews      reviewStore
	assignments  assignmentStore
	gateway      payments.Gateway
	locker       lock.Locker
	events       EventPublisher
	slotCache    SlotCache
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          BookingConfig
	now          func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(deps BookingDependencies, cfg BookingConfig, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewKeyedMutex()
	}
	return &BookingService{
		bookings:     deps.Bookings,
		availability: deps.Availability,
		scheduleDays: deps.ScheduleDays,
		classes:      deps.Classes,
		subjects:     deps.TeacherSubjects,
		intents:      deps.Intents,
		reviews:      deps.Reviews,
		assignments:  deps.Assignments,
		gateway:      deps.Gateway,
		locker:       deps.Locker,
		events:       deps.Events,
		slotCache:    deps.SlotCache,
		metrics:      deps.Metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetBooking returns a booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.loadBooking(ctx, id)
}

// GetPaymentIntent returns a payment intent by id.
func (s *BookingService) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	return s.loadIntent(ctx, id)
}

// ListBookings returns a page of bookings.
func (s *BookingService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list bookings")
	}
	return bookings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// CreateBooking records a pending booking after checking the date and the slot.
func (s *BookingService) CreateBooking(ctx context.Context, studentID string, req dto.CreateBookingRequest) (*models.Booking, error) {
	cleaned, err := dto.ValidateCreateBooking(s.validator, req)
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	switch cleaned.Kind {
	case models.BookingKindClass:
		booking, err = s.newClassBooking(ctx, studentID, *cleaned.ClassID, cleaned.BookingDate)
	default:
		booking, err = s.newTeacherBooking(ctx, studentID, *cleaned.AvailabilityID, cleaned.BookingDate)
	}
	if err != nil {
		return nil, err
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Internal(err, "failed to create booking")
	}
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("kind", string(booking.Kind)),
		zap.String("slot", booking.SlotKey()),
	)
	return booking, nil
}

func (s *BookingService) newTeacherBooking(ctx context.Context, studentID, availabilityID string, date time.Time) (*models.Booking, error) {
	slot, err := s.availability.FindByID(ctx, availabilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return nil, appErrors.Internal(err, "failed to load availability")
	}
	if slot.ClaimedByOther("") {
		s.metrics.RecordSlotConflict(models.BookingKindTeacher, "create")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "availability is already taken")
	}
	if !slot.Covers(date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bookingDate must fall within the availability window")
	}

	subject, err := s.subjects.FindByID(ctx, slot.TeacherSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher subject not found")
		}
		return nil, appErrors.Internal(err, "failed to load teacher subject")
	}

	return &models.Booking{
		ID:               uuid.NewString(),
		Kind:             models.BookingKindTeacher,
		StudentID:        studentID,
		TeacherID:        slot.TeacherID,
		TeacherSubjectID: &subject.ID,
		AvailabilityID:   &slot.ID,
		Status:           models.BookingStatusPending,
		BookingDate:      date,
		EndsAt:           slot.EndTime,
		Amount:           subject.Amount,
		Currency:         subject.Currency,
	}, nil
}

func (s *BookingService) newClassBooking(ctx context.Context, studentID, classID string, date time.Time) (*models.Booking, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}

	day := models.WeekdayOf(date)
	if !class.ScheduleDays.Allows(date) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("class does not meet on %s", day))
	}

	reservation, err := s.scheduleDays.Find(ctx, class.ID, day)
	switch {
	case err == nil && reservation != nil:
		s.metrics.RecordSlotConflict(models.BookingKindClass, "create")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, fmt.Sprintf("class is already booked on %s", day))
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load schedule day")
	}

	return &models.Booking{
		ID:          uuid.NewString(),
		Kind:        models.BookingKindClass,
		StudentID:   studentID,
		TeacherID:   class.TeacherID,
		ClassID:     &class.ID,
		ScheduleDay: &day,
		Status:      models.BookingStatusPending,
		BookingDate: date,
		EndsAt:      date.Add(class.Duration()),
		Amount:      class.Amount,
		Currency:    class.Currency,
	}, nil
}

// InitiatePayment holds the slot, opens a checkout with the gateway and moves the booking to payment_processing.
func (s *BookingService) InitiatePayment(ctx context.Context, bookingID string) (*models.PaymentIntent, error) {
	unlock, err := s.lockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, invalidTransition(booking, models.BookingStatusPaymentProcessing)
	}

	unlockSlot, err := s.lockSlot(ctx, booking)
	if err != nil {
		return nil, err
	}
	defer unlockSlot()

	held, err := s.holdSlot(ctx, booking)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hold slot")
	}
	if !held {
		s.metrics.RecordSlotConflict(booking.Kind, "hold")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "slot is held by another booking")
	}
	s.invalidateSlots(ctx, booking)

	intent := &models.PaymentIntent{
		ID:               uuid.NewString(),
		BookingID:        booking.ID,
		Provider:         s.gateway.Name(),
		Amount:           booking.Amount,
		Currency:         booking.Currency,
		Status:           models.BookingStatusPaymentProcessing,
		BookingDate:      booking.BookingDate,
		TeacherID:        booking.TeacherID,
		StudentID:        booking.StudentID,
		TeacherSubjectID: booking.TeacherSubjectID,
		AvailabilityID:   booking.AvailabilityID,
		ClassID:          booking.ClassID,
	}

	req := payments.IntentRequest{
		IntentID:    intent.ID,
		BookingID:   booking.ID,
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		Description: fmt.Sprintf("%s booking on %s", booking.Kind, booking.BookingDate.Format(time.RFC3339)),
		Metadata: map[string]string{
			"student_id": booking.StudentID,
			"teacher_id": booking.TeacherID,
		},
	}
	if s.cfg.IntentTTL > 0 {
		req.ExpiresAt = s.now().Add(s.cfg.IntentTTL)
	}

	gatewayCtx := ctx
	if s.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		gatewayCtx, cancel = context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
	}
	start := time.Now()
	checkout, err := s.gateway.CreateIntent(gatewayCtx, req)
	s.metrics.ObserveGatewayCall(s.gateway.Name(), err, time.Since(start))
	if err != nil {
		s.releaseSlot(ctx, booking)
		if errors.Is(err, payments.ErrInvalidRequest) {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentGateway.Code, appErrors.ErrPaymentGateway.Status, "failed to create payment intent")
	}
	if checkout.ProviderRef != "" {
		ref := checkout.ProviderRef
		intent.ProviderRef = &ref
	}
	intent.URL = checkout.URL

	if err := s.intents.Create(ctx, intent); err != nil {
		s.releaseSlot(ctx, booking)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "booking already has an open payment intent")
		}
		return nil, appErrors.Internal(err, "failed to persist payment intent")
	}

	if err := s.transition(ctx, booking, models.BookingStatusPaymentProcessing, ""); err != nil {
		s.releaseSlot(ctx, booking)
		intent.Status = models.BookingStatusCancelled
		s.retireIntent(ctx, intent, nil)
		return nil, err
	}
	return intent, nil
}

// ConfirmPayment commits the slot and confirms the booking behind intentID.
func (s *BookingService) ConfirmPayment(ctx context.Context, intentID string) (*models.Booking, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockBooking(ctx, intent.BookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking, err := s.loadBooking(ctx, intent.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPaymentProcessing || intent.Retired() {
		return nil, invalidTransition(booking, models.BookingStatusConfirmed)
	}

	unlockSlot, err := s.lockSlot(ctx, booking)
	if err != nil {
		return nil, err
	}
	defer unlockSlot()

	committed, err := s.commitSlot(ctx, booking)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to commit slot")
	}
	if !committed {
		s.metrics.RecordSlotConflict(booking.Kind, "commit")
		s.logger.Warn("slot committed by another booking",
			zap.String("booking_id", booking.ID),
			zap.String("slot", booking.SlotKey()),
		)
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "slot was committed by another booking")
	}

	now := s.now()
	booking.ConfirmedAt = &now
	if err := s.transition(ctx, booking, models.BookingStatusConfirmed, ""); err != nil {
		s.releaseSlot(ctx, booking)
		return nil, err
	}
	s.invalidateSlots(ctx, booking)

	intent.Status = models.BookingStatusConfirmed
	s.retireIntent(ctx, intent, nil)
	return booking, nil
}

// FailPayment releases the held slot and marks the booking payment_failed.
func (s *BookingService) FailPayment(ctx context.Context, intentID, reason string) (*models.Booking, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockBooking(ctx, intent.BookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking, err := s.loadBooking(ctx, intent.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPaymentProcessing || intent.Retired() {
		return nil, invalidTransition(booking, models.BookingStatusPaymentFailed)
	}

	unlockSlot, err := s.lockSlot(ctx, booking)
	if err != nil {
		return nil, err
	}
	defer unlockSlot()

	if reason == "" {
		reason = "payment failed"
	}
	booking.FailureReason = &reason
	if err := s.transition(ctx, booking, models.BookingStatusPaymentFailed, reason); err != nil {
		return nil, err
	}
	s.releaseSlot(ctx, booking)

	intent.Status = models.BookingStatusPaymentFailed
	s.retireIntent(ctx, intent, &reason)
	return booking, nil
}

// MarkCompleted closes a confirmed booking once its session has ended. A class
// booking hands its weekday back so later sessions of the class can be booked;
// a teacher slot stays committed to the finished session.
func (s *BookingService) MarkCompleted(ctx context.Context, bookingID string) (*models.Booking, error) {
	unlock, err := s.lockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, invalidTransition(booking, models.BookingStatusCompleted)
	}
	now := s.now()
	if now.Before(booking.EndsAt) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "session has not ended yet")
	}

	if booking.Kind == models.BookingKindClass {
		unlockSlot, err := s.lockSlot(ctx, booking)
		if err != nil {
			return nil, err
		}
		defer unlockSlot()
	}

	booking.CompletedAt = &now
	if err := s.transition(ctx, booking, models.BookingStatusCompleted, ""); err != nil {
		return nil, err
	}
	if booking.Kind == models.BookingKindClass {
		s.releaseSlot(ctx, booking)
	}
	return booking, nil
}

// Cancel moves any non-terminal booking to cancelled and frees its slot.
// Cancelling a booking that already reached a terminal state returns it unchanged.
func (s *BookingService) Cancel(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	unlock, err := s.lockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return booking, nil
	}

	unlockSlot, err := s.lockSlot(ctx, booking)
	if err != nil {
		return nil, err
	}
	defer unlockSlot()

	now := s.now()
	booking.CancelledAt = &now
	if reason != "" {
		booking.CancelReason = &reason
	}
	if err := s.transition(ctx, booking, models.BookingStatusCancelled, reason); err != nil {
		return nil, err
	}
	s.releaseSlot(ctx, booking)

	intent, err := s.intents.FindOpenByBooking(ctx, booking.ID)
	switch {
	case err == nil:
		intent.Status = models.BookingStatusCancelled
		s.retireIntent(ctx, intent, booking.CancelReason)
	case !errors.Is(err, sql.ErrNoRows):
		s.logger.Warn("failed to load open payment intent", zap.String("booking_id", booking.ID), zap.Error(err))
	}
	return booking, nil
}

// SubmitAssignment attaches homework to a confirmed or completed class booking.
func (s *BookingService) SubmitAssignment(ctx context.Context, bookingID, studentID string, req dto.SubmitAssignmentRequest) (*models.AssignmentSubmission, error) {
	cleaned, err := dto.ValidateSubmitAssignment(s.validator, req)
	if err != nil {
		return nil, err
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another student")
	}
	if booking.Kind != models.BookingKindClass {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignments can only be submitted for class bookings")
	}
	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot submit an assignment for a %s booking", booking.Status))
	}

	submission := &models.AssignmentSubmission{
		BookingID:      booking.ID,
		StudentID:      studentID,
		SubmissionText: cleaned.SubmissionText,
		Files:          cleaned.Files,
	}
	if err := s.assignments.Create(ctx, submission); err != nil {
		return nil, appErrors.Internal(err, "failed to save assignment")
	}
	return submission, nil
}

// SubmitReview rates a completed booking. A booking can be reviewed once.
func (s *BookingService) SubmitReview(ctx context.Context, bookingID, studentID string, req dto.CreateReviewRequest) (*models.Review, error) {
	cleaned, err := dto.ValidateCreateReview(s.validator, req)
	if err != nil {
		return nil, err
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another student")
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only completed bookings can be reviewed")
	}

	review := &models.Review{
		BookingID: booking.ID,
		StudentID: studentID,
		TeacherID: booking.TeacherID,
		Rating:    cleaned.Rating,
		Comment:   cleaned.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "booking has already been reviewed")
		}
		return nil, appErrors.Internal(err, "failed to save review")
	}
	return review, nil
}

func (s *BookingService) transition(ctx context.Context, booking *models.Booking, to models.BookingStatus, reason string) error {
	from := booking.Status
	if !from.CanTransitionTo(to) {
		return invalidTransition(booking, to)
	}
	booking.Status = to
	if err := s.bookings.UpdateStatus(ctx, booking, from); err != nil {
		booking.Status = from
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidState, "booking was modified concurrently")
		}
		return appErrors.Internal(err, "failed to update booking status")
	}

	s.metrics.RecordTransition(booking.Kind, from, to)
	s.logger.Info("booking transitioned",
		zap.String("booking_id", booking.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	if s.events != nil {
		event := models.BookingEvent{BookingID: booking.ID, Kind: booking.Kind, From: from, To: to, Reason: reason, At: booking.UpdatedAt}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish booking event", zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
	return nil
}

func invalidTransition(booking *models.Booking, to models.BookingStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidState,
		fmt.Sprintf("cannot move booking from %s to %s", booking.Status, to))
}

func (s *BookingService) loadBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Internal(err, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) loadIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	intent, err := s.intents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrIntentNotFound, fmt.Sprintf("payment intent %s not found", id))
		}
		return nil, appErrors.Internal(err, "failed to load payment intent")
	}
	return intent, nil
}

func (s *BookingService) lockBooking(ctx context.Context, id string) (lock.Unlock, error) {
	unlock, err := s.locker.Lock(ctx, "booking:"+id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to lock booking")
	}
	return unlock, nil
}

func (s *BookingService) lockSlot(ctx context.Context, booking *models.Booking) (lock.Unlock, error) {
	unlock, err := s.locker.Lock(ctx, booking.SlotKey())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to lock slot")
	}
	return unlock, nil
}

func (s *BookingService) holdSlot(ctx context.Context, booking *models.Booking) (bool, error) {
	if booking.Kind == models.BookingKindClass {
		return s.scheduleDays.Hold(ctx, *booking.ClassID, *booking.ScheduleDay, booking.ID)
	}
	return s.availability.Hold(ctx, *booking.AvailabilityID, booking.ID)
}

func (s *BookingService) commitSlot(ctx context.Context, booking *models.Booking) (bool, error) {
	if booking.Kind == models.BookingKindClass {
		return s.scheduleDays.Commit(ctx, *booking.ClassID, *booking.ScheduleDay, booking.ID)
	}
	return s.availability.Commit(ctx, *booking.AvailabilityID, booking.ID)
}

// releaseSlot frees whatever the booking holds. Releases are conditional on ownership,
// so a slot committed by another booking is left alone.
func (s *BookingService) releaseSlot(ctx context.Context, booking *models.Booking) {
	var err error
	if booking.Kind == models.BookingKindClass {
		err = s.scheduleDays.Release(ctx, *booking.ClassID, *booking.ScheduleDay, booking.ID)
	} else {
		err = s.availability.Release(ctx, *booking.AvailabilityID, booking.ID)
	}
	if err != nil {
		s.logger.Error("failed to release slot",
			zap.String("booking_id", booking.ID),
			zap.String("slot", booking.SlotKey()),
			zap.Error(err),
		)
		return
	}
	s.invalidateSlots(ctx, booking)
}

func (s *BookingService) retireIntent(ctx context.Context, intent *models.PaymentIntent, reason *string) {
	intent.FailureReason = reason
	if err := s.intents.Retire(ctx, intent); err != nil {
		s.logger.Error("failed to retire payment intent", zap.String("intent_id", intent.ID), zap.Error(err))
	}
}

func (s *BookingService) invalidateSlots(ctx context.Context, booking *models.Booking) {
	if s.slotCache != nil && booking.Kind == models.BookingKindTeacher {
		s.slotCache.InvalidateTeacher(ctx, booking.TeacherID)
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type bookingService interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error)
	CreateBooking(ctx context.Context, studentID string, req dto.CreateBookingRequest) (*models.Booking, error)
	InitiatePayment(ctx context.Context, bookingID string) (*models.PaymentIntent, error)
	MarkCompleted(ctx context.Context, bookingID string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, reason string) (*models.Booking, error)
	SubmitAssignment(ctx context.Context, bookingID, studentID string, req dto.SubmitAssignmentRequest) (*models.AssignmentSubmission, error)
	SubmitReview(ctx context.Context, bookingID, studentID string, req dto.CreateReviewRequest) (*models.Review, error)
}

type bookingExporter interface {
	ExportBookings(ctx context.Context, filter models.BookingFilter, format models.ExportFormat) (*models.ExportFile, error)
	Receipt(ctx context.Context, booking *models.Booking) (*models.ExportFile, error)
}

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	service   bookingService
	exporter  bookingExporter
	validator *validator.Validate
}

// NewBookingHandler builds a new handler.
func NewBookingHandler(service bookingService, exporter bookingExporter, validate *validator.Validate) *BookingHandler {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &BookingHandler{service: service, exporter: exporter, validator: validate}
}

// Create godoc
// @Summary Book a class session or a teacher slot
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	booking, err := h.service.CreateBooking(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// List godoc
// @Summary List bookings visible to the caller
// @Tags Bookings
// @Produce json
// @Param status query string false "Status filter"
// @Param kind query string false "class or teacher"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	filter, err := h.scopedFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	bookings, pagination, err := h.service.ListBookings(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.visibleBooking(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// InitiatePayment godoc
// @Summary Start checkout for a pending booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 201 {object} response.Envelope{data=dto.PaymentIntentResponse}
// @Router /bookings/{id}/payment [post]
func (h *BookingHandler) InitiatePayment(c *gin.Context) {
	booking, err := h.visibleBooking(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims.Role != models.RoleAdmin && booking.StudentID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only the student can pay for a booking"))
		return
	}
	intent, err := h.service.InitiatePayment(c.Request.Context(), booking.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewPaymentIntentResponse(intent))
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.CancelBookingRequest false "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	booking, err := h.visibleBooking(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
			return
		}
	}
	req, err = dto.ValidateCancelBooking(h.validator, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	updated, err := h.service.Cancel(c.Request.Context(), booking.ID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Complete godoc
// @Summary Mark a session as completed
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	booking, err := h.visibleBooking(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims.Role == models.RoleStudent {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students cannot complete sessions"))
		return
	}
	updated, err := h.service.MarkCompleted(c.Request.Context(), booking.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Review godoc
// @Summary Review a completed booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Router /bookings/{id}/review [post]
func (h *BookingHandler) Review(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	review, err := h.service.SubmitReview(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// SubmitAssignment godoc
// @Summary Submit homework for a class booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.SubmitAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /bookings/{id}/assignments [post]
func (h *BookingHandler) SubmitAssignment(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	submission, err := h.service.SubmitAssignment(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Export godoc
// @Summary Download bookings visible to the caller
// @Tags Bookings
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /bookings/export [get]
func (h *BookingHandler) Export(c *gin.Context) {
	filter, err := h.scopedFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportBookings(c.Request.Context(), filter, models.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file)
}

// Receipt godoc
// @Summary Download the payment receipt of a booking
// @Tags Bookings
// @Produce application/pdf
// @Param id path string true "Booking ID"
// @Success 200 {file} file
// @Router /bookings/{id}/receipt [get]
func (h *BookingHandler) Receipt(c *gin.Context) {
	booking, err := h.visibleBooking(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.Receipt(c.Request.Context(), booking)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file)
}

func (h *BookingHandler) visibleBooking(c *gin.Context) (*models.Booking, error) {
	claims, err := requireClaims(c)
	if err != nil {
		return nil, err
	}
	booking, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if !canViewBooking(claims, booking) {
		// Hide bookings the caller has no part in.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	return booking, nil
}

func (h *BookingHandler) scopedFilter(c *gin.Context) (models.BookingFilter, error) {
	claims, err := requireClaims(c)
	if err != nil {
		return models.BookingFilter{}, err
	}
	var query dto.BookingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return models.BookingFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query")
	}
	filter, err := dto.ValidateBookingListQuery(h.validator, query)
	if err != nil {
		return models.BookingFilter{}, err
	}
	switch claims.Role {
	case models.RoleStudent:
		filter.StudentID = claims.UserID
	case models.RoleTeacher:
		filter.TeacherID = claims.UserID
	}
	return filter, nil
}

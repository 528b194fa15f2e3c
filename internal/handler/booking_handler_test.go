package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type bookingServiceMock struct {
	booking       *models.Booking
	getErr        error
	lastFilter    models.BookingFilter
	cancelReason  *string
	initiated     bool
	completed     bool
	createStudent string
}

func (m *bookingServiceMock) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.booking, nil
}

func (m *bookingServiceMock) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Booking{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *bookingServiceMock) CreateBooking(ctx context.Context, studentID string, req dto.CreateBookingRequest) (*models.Booking, error) {
	m.createStudent = studentID
	return &models.Booking{ID: "booking-1", StudentID: studentID, Status: models.BookingStatusPending}, nil
}

func (m *bookingServiceMock) InitiatePayment(ctx context.Context, bookingID string) (*models.PaymentIntent, error) {
	m.initiated = true
	return &models.PaymentIntent{ID: "intent-1", BookingID: bookingID, URL: "https://pay.example/intent-1", Amount: 4500, Currency: "USD"}, nil
}

func (m *bookingServiceMock) MarkCompleted(ctx context.Context, bookingID string) (*models.Booking, error) {
	m.completed = true
	return m.booking, nil
}

func (m *bookingServiceMock) Cancel(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	m.cancelReason = &reason
	return m.booking, nil
}

func (m *bookingServiceMock) SubmitAssignment(ctx context.Context, bookingID, studentID string, req dto.SubmitAssignmentRequest) (*models.AssignmentSubmission, error) {
	return &models.AssignmentSubmission{ID: "submission-1", BookingID: bookingID, StudentID: studentID}, nil
}

func (m *bookingServiceMock) SubmitReview(ctx context.Context, bookingID, studentID string, req dto.CreateReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rating must be between 1 and 5")
	}
	return &models.Review{ID: "review-1", BookingID: bookingID, Rating: req.Rating}, nil
}

type exporterMock struct {
	lastFormat models.ExportFormat
}

func (m *exporterMock) ExportBookings(ctx context.Context, filter models.BookingFilter, format models.ExportFormat) (*models.ExportFile, error) {
	m.lastFormat = format
	return &models.ExportFile{Filename: "bookings.csv", ContentType: "text/csv", Data: []byte("ID\n")}, nil
}

func (m *exporterMock) Receipt(ctx context.Context, booking *models.Booking) (*models.ExportFile, error) {
	return &models.ExportFile{Filename: "receipt-" + booking.ID + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func ownedBooking() *models.Booking {
	return &models.Booking{ID: "booking-1", StudentID: "student-1", TeacherID: "teacher-1", Status: models.BookingStatusPending}
}

func newBookingContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

var (
	studentClaims  = &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}
	teacherClaims  = &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
	strangerClaims = &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
)

func TestBookingHandlerCreateUsesCaller(t *testing.T) {
	svc := &bookingServiceMock{}
	handler := NewBookingHandler(svc, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodPost, "/bookings", []byte(`{"kind":"class","classId":"c","bookingDate":"2024-03-06T10:00:00Z"}`), studentClaims)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "student-1", svc.createStudent)
}

func TestBookingHandlerCreateInvalidBody(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{}, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodPost, "/bookings", []byte(`{"kind":`), studentClaims)
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerHidesForeignBookings(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{booking: ownedBooking()}, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodGet, "/bookings/booking-1", nil, strangerClaims)
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	c, w = newBookingContext(http.MethodGet, "/bookings/booking-1", nil, teacherClaims)
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBookingHandlerListScopesToCaller(t *testing.T) {
	svc := &bookingServiceMock{}
	handler := NewBookingHandler(svc, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodGet, "/bookings?status=confirmed&page=2", nil, studentClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", svc.lastFilter.StudentID)
	assert.Empty(t, svc.lastFilter.TeacherID)
	assert.Equal(t, models.BookingStatusConfirmed, svc.lastFilter.Status)
	assert.Equal(t, 2, svc.lastFilter.Page)

	c, w = newBookingContext(http.MethodGet, "/bookings?status=unknown", nil, studentClaims)
	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerInitiatePayment(t *testing.T) {
	svc := &bookingServiceMock{booking: ownedBooking()}
	handler := NewBookingHandler(svc, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodPost, "/bookings/booking-1/payment", nil, teacherClaims)
	handler.InitiatePayment(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, svc.initiated)

	c, w = newBookingContext(http.MethodPost, "/bookings/booking-1/payment", nil, studentClaims)
	handler.InitiatePayment(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data dto.PaymentIntentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://pay.example/intent-1", body.Data.URL)
	assert.Equal(t, int64(4500), body.Data.Amount)
}

func TestBookingHandlerCancelWithoutBody(t *testing.T) {
	svc := &bookingServiceMock{booking: ownedBooking()}
	handler := NewBookingHandler(svc, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodPost, "/bookings/booking-1/cancel", nil, studentClaims)
	handler.Cancel(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.cancelReason)
	assert.Empty(t, *svc.cancelReason)
}

func TestBookingHandlerCompleteForbiddenForStudents(t *testing.T) {
	svc := &bookingServiceMock{booking: ownedBooking()}
	handler := NewBookingHandler(svc, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodPost, "/bookings/booking-1/complete", nil, studentClaims)
	handler.Complete(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = newBookingContext(http.MethodPost, "/bookings/booking-1/complete", nil, teacherClaims)
	handler.Complete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.completed)
}

func TestBookingHandlerReviewValidation(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{}, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodPost, "/bookings/booking-1/review", []byte(`{"rating":6}`), studentClaims)
	handler.Review(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newBookingContext(http.MethodPost, "/bookings/booking-1/review", []byte(`{"rating":5}`), studentClaims)
	handler.Review(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestBookingHandlerReceiptDownload(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{booking: ownedBooking()}, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodGet, "/bookings/booking-1/receipt", nil, studentClaims)
	handler.Receipt(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "receipt-booking-1.pdf")
}

func TestBookingHandlerExportPassesFormat(t *testing.T) {
	exporter := &exporterMock{}
	handler := NewBookingHandler(&bookingServiceMock{}, exporter, nil)

	c, w := newBookingContext(http.MethodGet, "/bookings/export?format=pdf", nil, teacherClaims)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ExportFormatPDF, exporter.lastFormat)
}

func TestBookingHandlerRequiresClaims(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{}, &exporterMock{}, nil)

	c, w := newBookingContext(http.MethodGet, "/bookings", nil, nil)
	handler.List(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

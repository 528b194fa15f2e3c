package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/export"
)

const (
	exportPageSize = 200
	exportMaxRows  = 5000
)

type bookingLister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderReceipt(r export.Receipt) ([]byte, error)
}

// ExportService renders booking listings and receipts.
type ExportService struct {
	bookings bookingLister
	csv      csvRenderer
	pdf      pdfRenderer
	issuer   string
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(bookings bookingLister, csv csvRenderer, pdf pdfRenderer, issuer string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		bookings: bookings,
		csv:      csv,
		pdf:      pdf,
		issuer:   issuer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var bookingHeaders = []string{"ID", "Kind", "Status", "Student", "Teacher", "Date", "Ends", "Amount", "Currency"}

// ExportBookings renders every booking matching filter, ignoring its paging.
func (s *ExportService) ExportBookings(ctx context.Context, filter models.BookingFilter, format models.ExportFormat) (*models.ExportFile, error) {
	rows, err := s.collect(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: bookingHeaders, Rows: rows}
	stamp := s.now().Format("20060102-150405")

	switch format {
	case models.ExportFormatCSV, "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		return &models.ExportFile{Filename: "bookings-" + stamp + ".csv", ContentType: "text/csv", Data: payload}, nil
	case models.ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, "Bookings")
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		return &models.ExportFile{Filename: "bookings-" + stamp + ".pdf", ContentType: "application/pdf", Data: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ExportService) collect(ctx context.Context, filter models.BookingFilter) ([]map[string]string, error) {
	filter.PageSize = exportPageSize
	var rows []map[string]string
	for page := 1; ; page++ {
		filter.Page = page
		bookings, total, err := s.bookings.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list bookings")
		}
		for i := range bookings {
			rows = append(rows, bookingRow(&bookings[i]))
		}
		if len(bookings) == 0 || len(rows) >= total {
			break
		}
		if len(rows) >= exportMaxRows {
			s.logger.Warn("booking export truncated", zap.Int("rows", len(rows)), zap.Int("total", total))
			break
		}
	}
	return rows, nil
}

func bookingRow(b *models.Booking) map[string]string {
	return map[string]string{
		"ID":       b.ID,
		"Kind":     string(b.Kind),
		"Status":   string(b.Status),
		"Student":  b.StudentID,
		"Teacher":  b.TeacherID,
		"Date":     b.BookingDate.UTC().Format(time.RFC3339),
		"Ends":     b.EndsAt.UTC().Format(time.RFC3339),
		"Amount":   strconv.FormatInt(b.Amount, 10),
		"Currency": b.Currency,
	}
}

// Receipt renders a payment receipt for a paid booking.
func (s *ExportService) Receipt(ctx context.Context, booking *models.Booking) (*models.ExportFile, error) {
	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "receipts are only available for paid bookings")
	}

	fields := []export.Field{
		{Label: "Booking", Value: booking.ID},
		{Label: "Type", Value: string(booking.Kind)},
		{Label: "Session", Value: booking.BookingDate.UTC().Format("Mon, 02 Jan 2006 15:04 MST")},
		{Label: "Status", Value: string(booking.Status)},
	}
	if booking.ConfirmedAt != nil {
		fields = append(fields, export.Field{Label: "Paid at", Value: booking.ConfirmedAt.UTC().Format(time.RFC3339)})
	}
	payload, err := s.pdf.RenderReceipt(export.Receipt{
		Title:    "Booking receipt",
		Number:   booking.ID,
		Issuer:   s.issuer,
		Fields:   fields,
		Total:    export.FormatAmount(booking.Amount, booking.Currency),
		Footnote: "Generated " + s.now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render receipt")
	}
	return &models.ExportFile{Filename: "receipt-" + booking.ID + ".pdf", ContentType: "application/pdf", Data: payload}, nil
}

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"supperclub/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingHeaders = []string{
	"Booking ID", "Date", "Experience", "Host", "Guest", "Guests",
	"Status", "Gift", "Coupon", "Base", "Discount", "Total", "Created",
}

// Exporter renders booking reports as XLSX workbooks.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// InRange keeps bookings whose date falls in [from, to]. A zero bound is open.
func InRange(bookings []models.Booking, from, to time.Time) []models.Booking {
	var out []models.Booking
	for _, b := range bookings {
		if !from.IsZero() && b.BookingDate.Before(from) {
			continue
		}
		if !to.IsZero() && b.BookingDate.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// WriteBookings streams a workbook with a row per booking and a per-status summary.
func (e *Exporter) WriteBookings(w io.Writer, bookings []models.Booking) error {
	f, err := e.build(bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveBookings writes the workbook under the export directory and returns its path.
func (e *Exporter) SaveBookings(bookings []models.Booking, from, to time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) build(bookings []models.Booking) (*excelize.File, error) {
	sorted := append([]models.Booking(nil), bookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].BookingDate.Equal(sorted[j].BookingDate) {
			return sorted[i].BookingDate.Before(sorted[j].BookingDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	f := excelize.NewFile()
	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeBookingRows(f, sorted); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, sorted); err != nil {
		f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeBookingRows(f *excelize.File, bookings []models.Booking) error {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(bookingsSheet, cell, h); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
	_ = f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle)

	cancelledStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
	})

	for i, b := range bookings {
		row := i + 2
		values := []any{
			b.ID,
			b.BookingDate.Format("2006-01-02"),
			b.ExperienceTitle,
			b.HostName,
			b.GuestID,
			b.NumberOfGuests,
			b.Status,
			b.IsGift,
			b.CouponID,
			amount(b.BasePrice),
			amount(b.DiscountAmount),
			amount(b.TotalPrice),
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &values); err != nil {
			return fmt.Errorf("error writing booking %s: %w", b.ID, err)
		}
		if b.Status == models.StatusCancelled {
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(bookingsSheet, cell, last, cancelledStyle)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 12)
	_ = f.SetColWidth(bookingsSheet, "C", "E", 25)
	_ = f.SetColWidth(bookingsSheet, "F", "L", 12)
	_ = f.SetColWidth(bookingsSheet, "M", "M", 22)
	return nil
}

type statusTotals struct {
	count    int
	guests   int
	revenue  int64
	discount int64
}

func writeSummary(f *excelize.File, bookings []models.Booking) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	totals := make(map[string]*statusTotals)
	for _, b := range bookings {
		t, ok := totals[b.Status]
		if !ok {
			t = &statusTotals{}
			totals[b.Status] = t
		}
		t.count++
		t.guests += b.NumberOfGuests
		t.revenue += b.TotalPrice
		t.discount += b.DiscountAmount
	}

	header := []any{"Status", "Bookings", "Guests", "Revenue", "Discounts"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing summary header: %w", err)
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(summarySheet, "A1", "E1", style)

	row := 2
	for _, status := range []string{models.StatusPending, models.StatusConfirmed, models.StatusCancelled} {
		t := totals[status]
		if t == nil {
			t = &statusTotals{}
		}
		values := []any{status, t.count, t.guests, amount(t.revenue), amount(t.discount)}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("error writing summary row: %w", err)
		}
		row++
	}
	_ = f.SetColWidth(summarySheet, "A", "E", 14)
	return nil
}

// amount converts minor units to a decimal for spreadsheet arithmetic.
func amount(cents int64) float64 {
	return float64(cents) / 100
}

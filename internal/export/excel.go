package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"staybook/internal/domain"
	"staybook/internal/models"
	"staybook/internal/service"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Excelizer writes back-office reports: a flat bookings list and an
// occupancy grid (rooms by dates) for a period.
type Excelizer struct {
	store      domain.Store
	exportPath string
	logger     *zerolog.Logger
}

func NewExcelizer(store domain.Store, exportPath string, logger *zerolog.Logger) *Excelizer {
	return &Excelizer{
		store:      store,
		exportPath: exportPath,
		logger:     logger,
	}
}

// ExportBookings сохраняет плоский список бронирований за период
func (e *Excelizer) ExportBookings(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	bookings, err := e.store.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Guest", "Room", "Check-In", "Check-Out",
		"Total", "Payment", "Status", "Created At",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), b.UserID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), b.RoomNum)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), b.CheckIn.Format(models.DateLayout))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), b.CheckOut.Format(models.DateLayout))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), b.TotalPrice)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), b.PaymentStatus)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), b.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), b.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "B", 20)
	_ = f.SetColWidth(sheetName, "C", "C", 10)
	_ = f.SetColWidth(sheetName, "D", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "H", 12)
	_ = f.SetColWidth(sheetName, "I", "I", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.exportPath, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

// ExportOccupancy сохраняет сетку занятости номеров за период
func (e *Excelizer) ExportOccupancy(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	rooms, err := e.store.GetRooms(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting rooms: %v", err)
	}
	bookings, err := e.store.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Occupancy"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writeRoomHeaders(f, sheetName, rooms)
	e.writeOccupancy(f, sheetName, rooms, bookings, startDate, endDate, dateCols)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 16)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("occupancy_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.exportPath, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *Excelizer) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateCols := make(map[string]int)

	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, style)
		dateCols[currentDate.Format(models.DateLayout)] = col

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateCols
}

func (e *Excelizer) writeRoomHeaders(f *excelize.File, sheetName string, rooms []*models.Room) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	row := 3
	for _, room := range rooms {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%s)", room.RoomNum, room.TypeName))
		_ = f.SetCellStyle(sheetName, cell, cell, style)
		row++
	}
}

func (e *Excelizer) writeOccupancy(
	f *excelize.File, sheetName string,
	rooms []*models.Room, bookings []*models.Booking,
	startDate, endDate time.Time, dateCols map[string]int,
) {
	freeStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFFFFF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	paidStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	pendingStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFEB9C"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	row := 3
	for _, room := range rooms {
		currentDate := startDate
		for !currentDate.After(endDate) {
			col := dateCols[currentDate.Format(models.DateLayout)]
			cell, _ := excelize.CoordinatesToCellName(col, row)

			booking := occupant(room.ID, currentDate, bookings)
			if booking == nil {
				_ = f.SetCellValue(sheetName, cell, "")
				_ = f.SetCellStyle(sheetName, cell, cell, freeStyle)
			} else {
				_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("[№%d] %s\n%s", booking.ID, booking.UserID, booking.PaymentStatus))
				if booking.PaymentStatus == models.PaymentPaid {
					_ = f.SetCellStyle(sheetName, cell, cell, paidStyle)
				} else {
					_ = f.SetCellStyle(sheetName, cell, cell, pendingStyle)
				}
			}

			currentDate = currentDate.AddDate(0, 0, 1)
		}
		row++
	}
}

// occupant returns the active booking holding the room on the given night.
func occupant(roomID int64, night time.Time, bookings []*models.Booking) *models.Booking {
	nextDay := night.AddDate(0, 0, 1)
	for _, b := range bookings {
		if b.RoomID != roomID || !b.Active() {
			continue
		}
		if service.Overlaps(b.CheckIn, b.CheckOut, night, nextDay) {
			return b
		}
	}
	return nil
}

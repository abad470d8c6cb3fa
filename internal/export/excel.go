// Package export builds xlsx workbooks of bookings for the admin export
// endpoint.
package export

import (
	"fmt"
	"time"

	"vinylbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{
	"ID", "Customer", "Phone", "Service", "Booking Date", "Slot", "Status",
	"Technician", "Province", "District", "Sub-district", "Notes", "Created At",
}

// BookingsWorkbook renders bookings for the [from, to] range into a workbook.
// The caller owns the file and must Close it.
func BookingsWorkbook(bookings []*models.Booking, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Bookings %s - %s",
		from.Format("02.01.2006"), to.Format("02.01.2006")))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 3
		technician := ""
		if b.Technician != nil {
			technician = b.Technician.FullName
		}
		values := []interface{}{
			b.ID,
			b.CustomerName,
			b.Phone,
			b.ServiceType,
			b.BookingDate.Format("2006-01-02 15:04"),
			b.Slot(),
			b.Status,
			technician,
			b.Province,
			b.District,
			b.SubDistrict,
			b.Notes,
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "B", "B", 25)
	_ = f.SetColWidth(sheetName, "C", "E", 18)
	_ = f.SetColWidth(sheetName, "G", "H", 18)
	_ = f.SetColWidth(sheetName, "L", "L", 30)

	return f, nil
}

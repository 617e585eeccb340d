package report

import (
	"fmt"
	"os"
	"path/filepath"

	"frontdesk/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	sheetStatuses = "Payment statuses"
	sheetCharges  = "Room charges"
	sheetRooms    = "Rooms"
)

// WriteWorkbook saves the report as an xlsx file under dir and returns its path.
// Only the passes present in the report get a sheet.
func WriteWorkbook(dir string, r *service.ReconcileReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return "", err
	}

	var sheets []string
	if r.Statuses != nil {
		rows := make([][]interface{}, 0, len(r.Statuses.Mismatches))
		for _, m := range sortedMismatches(r.Statuses.Mismatches) {
			rows = append(rows, []interface{}{
				m.BookingID, m.Current, m.Expected,
				m.Summary.GrandTotal.InexactFloat64(),
				m.Summary.TotalPaid.InexactFloat64(),
				m.Summary.Outstanding.InexactFloat64(),
			})
		}
		header := []interface{}{"Booking", "Stored status", "Computed status", "Grand total", "Paid", "Outstanding"}
		if err := writeSheet(f, styles, sheetStatuses, header, rows, "D", "F"); err != nil {
			return "", err
		}
		sheets = append(sheets, sheetStatuses)
	}

	if r.Charges != nil {
		rows := make([][]interface{}, 0, len(r.Charges))
		for _, c := range r.Charges {
			rows = append(rows, []interface{}{
				c.BookingID, c.RoomID, c.Nights,
				c.Rate.InexactFloat64(), c.Stored.InexactFloat64(), c.Computed.InexactFloat64(),
			})
		}
		header := []interface{}{"Booking", "Room", "Nights", "Rate", "Stored charge", "Computed charge"}
		if err := writeSheet(f, styles, sheetCharges, header, rows, "D", "F"); err != nil {
			return "", err
		}
		sheets = append(sheets, sheetCharges)
	}

	if r.Rooms != nil {
		rows := make([][]interface{}, 0, len(r.Rooms))
		for _, d := range r.Rooms {
			rows = append(rows, []interface{}{d.RoomNumber, d.Cached, d.Expected, d.ActiveBookingID})
		}
		header := []interface{}{"Room", "Cached available", "Expected available", "Holding booking"}
		if err := writeSheet(f, styles, sheetRooms, header, rows, "", ""); err != nil {
			return "", err
		}
		sheets = append(sheets, sheetRooms)
	}

	if len(sheets) == 0 {
		return "", fmt.Errorf("report is empty")
	}
	if idx, err := f.GetSheetIndex(sheets[0]); err == nil {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	mode := "applied"
	if r.DryRun {
		mode = "dryrun"
	}
	fileName := fmt.Sprintf("reconcile_%s_%s.xlsx", r.StartedAt.Format("20060102_150405"), mode)
	filePath := filepath.Join(dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

type styles struct {
	header int
	money  int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return styles{}, fmt.Errorf("error creating header style: %w", err)
	}
	numFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return styles{}, fmt.Errorf("error creating money style: %w", err)
	}
	return styles{header: header, money: moneyStyle}, nil
}

// writeSheet writes header and rows; columns moneyFrom..moneyTo get the money format.
func writeSheet(f *excelize.File, st styles, name string, header []interface{}, rows [][]interface{}, moneyFrom, moneyTo string) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetCellStyle(name, "A1", lastCol+"1", st.header)
	_ = f.SetColWidth(name, "A", lastCol, 18)

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	if moneyFrom != "" && len(rows) > 0 {
		_ = f.SetCellStyle(name, fmt.Sprintf("%s2", moneyFrom), fmt.Sprintf("%s%d", moneyTo, len(rows)+1), st.money)
	}
	return nil
}

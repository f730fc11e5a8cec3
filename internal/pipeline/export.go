package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"etiquetas/internal"
)

// BatchRow is one parsed report in a batch export.
type BatchRow struct {
	Source  string
	Record  internal.DeviceRecord
	Missing []internal.Field
	Error   string
	PDF     string
}

func ExportRowsToXLSX(rows []BatchRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"source"}
	for _, field := range internal.Fields {
		headers = append(headers, string(field))
	}
	headers = append(headers, "missing", "error", "label_pdf")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.Source)
		col := 2
		for _, field := range internal.Fields {
			if row.Error == "" {
				set(col, row.Record.Get(field))
			}
			col++
		}
		if row.Error == "" {
			set(col, internal.FieldNames(row.Missing))
		}
		set(col+1, row.Error)
		set(col+2, row.PDF)
	}

	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"visitor-register-backend/internal/model"
)

const sheetName = "Pengunjung"

// Spreadsheet writes entries as an xlsx workbook with one sheet.
func Spreadsheet(w io.Writer, entries []model.Entry, opts Options) error {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := tabularHeader()
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := tabularRow(e, opts.Location)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// CSV writes entries as comma separated values with a header row.
func CSV(w io.Writer, entries []model.Entry, opts Options) error {
	opts = opts.withDefaults()

	cw := csv.NewWriter(w)
	if err := cw.Write(tabularHeader()); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(tabularRow(e, opts.Location)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

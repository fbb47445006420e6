package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/teamlens/gitlab-metrics/internal/domain"
)

// SheetName is the single worksheet the XLSX sink writes.
const SheetName = "MR Counts"

// WriteXLSX writes the same author-by-month grid as the CSV sink to a
// single-sheet spreadsheet.
func WriteXLSX(authorStats domain.AuthorStats, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	months := authorStats.Months()

	if err := setCell(f, 1, 1, "Author"); err != nil {
		return err
	}
	for col, month := range months {
		if err := setCell(f, col+2, 1, domain.MonthLabel(month)); err != nil {
			return err
		}
	}

	for row, author := range authorStats.Authors() {
		if err := setCell(f, 1, row+2, author); err != nil {
			return err
		}
		for col, month := range months {
			if err := setCell(f, col+2, row+2, authorStats.Count(author, month)); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell (%d,%d): %w", col, row, err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}

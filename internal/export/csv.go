// Package export writes collected author statistics to the supported output
// sinks: CSV, a self-contained HTML chart, and XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/teamlens/gitlab-metrics/internal/domain"
)

// WriteCSV writes one row per author and one column per observed month,
// headed by the full month name and year (e.g. "March 2024"). Authors are
// sorted; months without activity render as 0.
func WriteCSV(authorStats domain.AuthorStats, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := writeCSVRecords(f, authorStats); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func writeCSVRecords(f *os.File, authorStats domain.AuthorStats) error {
	months := authorStats.Months()
	w := csv.NewWriter(f)

	header := make([]string, 0, len(months)+1)
	header = append(header, "Author")
	for _, month := range months {
		header = append(header, domain.MonthLabel(month))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, author := range authorStats.Authors() {
		row := make([]string, 0, len(months)+1)
		row = append(row, author)
		for _, month := range months {
			row = append(row, strconv.Itoa(authorStats.Count(author, month)))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write CSV row for %s: %w", author, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

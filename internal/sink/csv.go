package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
)

// utf8BOM lets spreadsheet tools detect the encoding of the Korean headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSink writes a local backup file. The destination and tab are ignored.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Write(ctx context.Context, rows []models.Listing, _, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return writeFileAtomic(s.path, func(f *os.File) error {
		if _, err := f.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}

		w := csv.NewWriter(f)
		if err := w.Write(models.Header()); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		for _, row := range rows {
			if err := w.Write(row.Cells()); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
		w.Flush()
		return w.Error()
	})
}

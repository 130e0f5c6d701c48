package sink

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
)

const defaultSheet = "Sheet1"

// XLSXSink writes a workbook with a single sheet named after the tab.
type XLSXSink struct {
	path string
}

func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

func (s *XLSXSink) Write(ctx context.Context, rows []models.Listing, _, tab string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tab == "" {
		tab = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if tab != defaultSheet {
		if err := f.SetSheetName(defaultSheet, tab); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := models.Header()
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(tab, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row.Values()
		if err := f.SetSheetRow(tab, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return writeFileAtomic(s.path, func(out *os.File) error {
		if _, err := f.WriteTo(out); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		return nil
	})
}

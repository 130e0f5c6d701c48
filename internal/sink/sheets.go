package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
)

var ErrMissingCredentials = errors.New("google service account credentials are required")

const (
	newTabRows    = 100
	newTabColumns = 20
)

// SheetsSink replaces the content of a spreadsheet tab, creating the tab when missing.
type SheetsSink struct {
	svc *sheets.Service
}

type SheetsCredentials struct {
	JSON string
	File string
}

// NewSheetsSink authenticates with a service account given inline or as a file.
// Extra options are appended after the credentials.
func NewSheetsSink(ctx context.Context, creds SheetsCredentials, opts ...option.ClientOption) (*SheetsSink, error) {
	var base []option.ClientOption
	switch {
	case creds.JSON != "":
		base = append(base, option.WithCredentialsJSON([]byte(creds.JSON)))
	case creds.File != "":
		base = append(base, option.WithCredentialsFile(creds.File))
	case len(opts) == 0:
		return nil, ErrMissingCredentials
	}
	base = append(base, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsSink{svc: svc}, nil
}

func (s *SheetsSink) Write(ctx context.Context, rows []models.Listing, spreadsheetID, tab string) error {
	if err := s.ensureTab(ctx, spreadsheetID, tab); err != nil {
		return err
	}

	rng := a1Range(tab)
	if _, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear tab: %w", err)
	}

	header := models.Header()
	values := make([][]any, 0, len(rows)+1)
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	values = append(values, headerRow)
	for _, row := range rows {
		values = append(values, row.Values())
	}

	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update values: %w", err)
	}
	return nil
}

func (s *SheetsSink) ensureTab(ctx context.Context, spreadsheetID, tab string) error {
	doc, err := s.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: tab,
					GridProperties: &sheets.GridProperties{
						RowCount:    newTabRows,
						ColumnCount: newTabColumns,
					},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add tab %q: %w", tab, err)
	}
	return nil
}

// a1Range quotes a tab name for A1 notation.
func a1Range(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

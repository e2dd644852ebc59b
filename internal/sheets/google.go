package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleAPI implements API on top of the Sheets v4 service for one spreadsheet.
type GoogleAPI struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewGoogleAPI authenticates with a service-account credentials file.
func NewGoogleAPI(ctx context.Context, credentialsFile, spreadsheetID string) (*GoogleAPI, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GoogleAPI{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleAPI) SheetTitles(ctx context.Context) ([]string, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (g *GoogleAPI) AddSheet(ctx context.Context, title string, rows, cols int64) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title:          title,
					GridProperties: &sheets.GridProperties{RowCount: rows, ColumnCount: cols},
				},
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add worksheet %q: %w", title, err)
	}
	return nil
}

func (g *GoogleAPI) Rows(ctx context.Context, rangeA1 string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rangeA1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rangeA1, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func (g *GoogleAPI) Update(ctx context.Context, rangeA1 string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rangeA1, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rangeA1, err)
	}
	return nil
}

func (g *GoogleAPI) Append(ctx context.Context, rangeA1 string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rangeA1, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rangeA1, err)
	}
	return nil
}

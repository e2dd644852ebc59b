// Package sheets appends the run digest to a Google Sheets worksheet that the
// user also edits by hand. Prior rows are never rewritten.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"

	"go.uber.org/zap"
)

var (
	ErrWorksheetMissing = errors.New("worksheet not found")
	ErrNoHeader         = errors.New("worksheet has no header row")
)

const (
	// rows scanned when detecting the header row
	headerScanRows = 5

	newSheetRows = 1000
	newSheetCols = 20
)

// API is the part of the Sheets service the appender uses. Ranges are A1
// notation including the quoted sheet title.
type API interface {
	SheetTitles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string, rows, cols int64) error
	Rows(ctx context.Context, rangeA1 string) ([][]string, error)
	Update(ctx context.Context, rangeA1 string, values [][]any) error
	Append(ctx context.Context, rangeA1 string, values [][]any) error
}

// DefaultHeader is written to an empty worksheet.
var DefaultHeader = []string{"date", "title", "company", "city", "salary", "score", "reasons", "url", "source"}

// column aliases → field; the tracking columns are pre-filled for the user
var columnField = map[string]string{
	"date": "date", "日期": "date",
	"title": "title", "職缺名稱": "title", "job_title": "title",
	"company": "company", "公司": "company", "company_name": "company",
	"city": "city", "地點": "city", "location": "city",
	"salary": "salary", "薪資": "salary",
	"score": "score", "分數": "score",
	"reasons": "reasons", "理由": "reasons",
	"url": "url", "連結": "url", "link": "url",
	"source": "source", "來源": "source",
	"投遞": "applied", "開信": "opened", "回應": "replied", "面試": "interview", "offer": "offer",
}

// trackingDefaults are the values a fresh row starts with.
var trackingDefaults = map[string]string{
	"applied":   "未投遞",
	"opened":    "FALSE",
	"replied":   "FALSE",
	"interview": "FALSE",
	"offer":     "FALSE",
}

type Appender struct {
	api API
	cfg config.SheetsConfig
	log *zap.Logger
}

func NewAppender(api API, cfg config.SheetsConfig, log *zap.Logger) *Appender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Appender{api: api, cfg: cfg, log: log}
}

func (a *Appender) Name() string { return "google_sheets" }

// Append writes one row per job under the detected header. Returns the number
// of rows appended.
func (a *Appender) Append(ctx context.Context, d models.Digest) (int, error) {
	if len(d.Jobs) == 0 {
		return 0, nil
	}
	if err := a.ensureWorksheet(ctx); err != nil {
		return 0, err
	}

	headerRow, err := a.headerRow(ctx)
	if err != nil {
		return 0, err
	}
	header, err := a.header(ctx, headerRow)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(d.Jobs))
	for _, j := range d.Jobs {
		values := rowValues(d.Date, j)
		row := make([]any, len(header))
		for i, col := range header {
			row[i] = values[columnField[normalizeColumn(col)]]
		}
		rows = append(rows, row)
	}

	if err := a.api.Append(ctx, a.rangeRef(fmt.Sprintf("A%d", headerRow)), rows); err != nil {
		return 0, err
	}
	a.log.Info("appended sheet rows",
		zap.String("worksheet", a.cfg.Worksheet),
		zap.Int("header_row", headerRow),
		zap.Int("rows", len(rows)),
	)
	return len(rows), nil
}

func (a *Appender) ensureWorksheet(ctx context.Context) error {
	titles, err := a.api.SheetTitles(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(titles, a.cfg.Worksheet) {
		return nil
	}
	if !a.cfg.CreateWorksheetIfMissing {
		return fmt.Errorf("%w: %q (check GOOGLE_SHEETS_WORKSHEET)", ErrWorksheetMissing, a.cfg.Worksheet)
	}
	a.log.Info("creating worksheet", zap.String("worksheet", a.cfg.Worksheet))
	return a.api.AddSheet(ctx, a.cfg.Worksheet, newSheetRows, newSheetCols)
}

// headerRow returns the configured row, or the row among the first five with
// the most recognised column names (the first one wins a tie).
func (a *Appender) headerRow(ctx context.Context) (int, error) {
	raw := strings.TrimSpace(a.cfg.HeaderRow)
	if raw != "" && !strings.EqualFold(raw, "auto") {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 1, nil
		}
		return max(1, n), nil
	}

	rows, err := a.api.Rows(ctx, a.rangeRef(fmt.Sprintf("1:%d", headerScanRows)))
	if err != nil {
		return 0, err
	}
	best, bestScore := 1, 0
	for i, row := range rows {
		score := 0
		for _, cell := range row {
			if _, ok := columnField[normalizeColumn(cell)]; ok && !isTrackingColumn(cell) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i+1, score
		}
	}
	return best, nil
}

// header reads the header cells, writing DefaultHeader when the row is empty.
// Only the contiguous run of non-empty cells from column A counts, so notes
// further right are not mistaken for columns.
func (a *Appender) header(ctx context.Context, row int) ([]string, error) {
	rows, err := a.api.Rows(ctx, a.rangeRef(fmt.Sprintf("%d:%d", row, row)))
	if err != nil {
		return nil, err
	}
	var cells []string
	if len(rows) > 0 {
		cells = rows[0]
	}

	var header []string
	for _, c := range cells {
		if strings.TrimSpace(c) == "" {
			break
		}
		header = append(header, c)
	}
	if len(header) > 0 {
		return header, nil
	}
	//column A blank but the row is not: keep the row as it is
	if slices.ContainsFunc(cells, func(c string) bool { return strings.TrimSpace(c) != "" }) {
		return cells, nil
	}

	if !a.cfg.AppendHeader {
		return nil, fmt.Errorf("%w: create column names in row %d first", ErrNoHeader, row)
	}
	values := make([]any, len(DefaultHeader))
	for i, h := range DefaultHeader {
		values[i] = h
	}
	if err := a.api.Update(ctx, a.rangeRef(fmt.Sprintf("A%d:I%d", row, row)), [][]any{values}); err != nil {
		return nil, err
	}
	return DefaultHeader, nil
}

func (a *Appender) rangeRef(cells string) string {
	return "'" + strings.ReplaceAll(a.cfg.Worksheet, "'", "''") + "'!" + cells
}

func rowValues(date string, j models.ScoredJob) map[string]string {
	v := map[string]string{
		"date":    date,
		"title":   j.Job.Title,
		"company": j.Job.Company,
		"city":    j.Job.City,
		"salary":  j.Job.Salary.Label(),
		"score":   strconv.Itoa(j.Score),
		"reasons": strings.Join(j.Reasons, "; "),
		"url":     j.Job.URL,
		"source":  models.SearchPage,
	}
	for k, def := range trackingDefaults {
		v[k] = def
	}
	return v
}

func normalizeColumn(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isTrackingColumn(s string) bool {
	_, ok := trackingDefaults[columnField[normalizeColumn(s)]]
	return ok
}

package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"
)

type appendCall struct {
	rangeA1 string
	values  [][]any
}

type fakeAPI struct {
	titles  []string
	rows    map[string][][]string
	added   []string
	updates []appendCall
	appends []appendCall
	err     error
}

func (f *fakeAPI) SheetTitles(context.Context) ([]string, error) { return f.titles, f.err }

func (f *fakeAPI) AddSheet(_ context.Context, title string, rows, cols int64) error {
	f.added = append(f.added, title)
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeAPI) Rows(_ context.Context, rangeA1 string) ([][]string, error) {
	return f.rows[rangeA1], nil
}

func (f *fakeAPI) Update(_ context.Context, rangeA1 string, values [][]any) error {
	f.updates = append(f.updates, appendCall{rangeA1, values})
	return nil
}

func (f *fakeAPI) Append(_ context.Context, rangeA1 string, values [][]any) error {
	f.appends = append(f.appends, appendCall{rangeA1, values})
	return nil
}

func sheetsConfig() config.SheetsConfig {
	return config.Defaults().Sheets
}

func oneJob() models.Digest {
	return models.Digest{
		Date: "2026-01-15",
		Jobs: []models.ScoredJob{{
			Job: models.JobRecord{
				Title:   "產品經理",
				Company: "Acme",
				City:    "台北市",
				URL:     "https://www.104.com.tw/job/8abcd",
			},
			Score:   24,
			Reasons: []string{"a (+10)", "b (+6)"},
		}},
	}
}

func TestAppend_AutoDetectsHeaderAndMapsAliases(t *testing.T) {
	api := &fakeAPI{
		titles: []string{"jobs"},
		rows: map[string][][]string{
			"'jobs'!1:5": {
				{"Job tracker 2026"},
				{},
				{"日期", "職缺名稱", "公司", "薪資", "連結", "投遞", "offer", "", "KPI"},
				{"2026-01-14", "old row"},
			},
			"'jobs'!3:3": {{"日期", "職缺名稱", "公司", "薪資", "連結", "投遞", "offer", "", "KPI"}},
		},
	}

	n, err := NewAppender(api, sheetsConfig(), nil).Append(context.Background(), oneJob())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, api.updates, "existing header is never rewritten")

	require.Len(t, api.appends, 1)
	assert.Equal(t, "'jobs'!A3", api.appends[0].rangeA1)
	assert.Equal(t, [][]any{{"2026-01-15", "產品經理", "Acme", "面議", "https://www.104.com.tw/job/8abcd", "未投遞", "FALSE"}}, api.appends[0].values)
}

func TestAppend_EmptySheetGetsDefaultHeader(t *testing.T) {
	api := &fakeAPI{titles: []string{"jobs"}, rows: map[string][][]string{}}

	_, err := NewAppender(api, sheetsConfig(), nil).Append(context.Background(), oneJob())
	require.NoError(t, err)

	require.Len(t, api.updates, 1)
	assert.Equal(t, "'jobs'!A1:I1", api.updates[0].rangeA1)
	require.Len(t, api.appends, 1)
	row := api.appends[0].values[0]
	require.Len(t, row, len(DefaultHeader))
	assert.Equal(t, "24", row[5])
	assert.Equal(t, "a (+10); b (+6)", row[6])
	assert.Equal(t, models.SearchPage, row[8])
}

func TestAppend_EmptySheetWithoutAppendHeader(t *testing.T) {
	cfg := sheetsConfig()
	cfg.AppendHeader = false
	api := &fakeAPI{titles: []string{"jobs"}}

	_, err := NewAppender(api, cfg, nil).Append(context.Background(), oneJob())
	assert.True(t, errors.Is(err, ErrNoHeader))
	assert.Empty(t, api.appends)
}

func TestAppend_MissingWorksheet(t *testing.T) {
	api := &fakeAPI{titles: []string{"Sheet1"}}
	_, err := NewAppender(api, sheetsConfig(), nil).Append(context.Background(), oneJob())
	assert.True(t, errors.Is(err, ErrWorksheetMissing))
	assert.Empty(t, api.added)

	cfg := sheetsConfig()
	cfg.CreateWorksheetIfMissing = true
	api = &fakeAPI{titles: []string{"Sheet1"}}
	_, err = NewAppender(api, cfg, nil).Append(context.Background(), oneJob())
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs"}, api.added)
	assert.Len(t, api.appends, 1)
}

func TestAppend_FixedHeaderRow(t *testing.T) {
	cfg := sheetsConfig()
	cfg.HeaderRow = "2"
	api := &fakeAPI{
		titles: []string{"jobs"},
		rows:   map[string][][]string{"'jobs'!2:2": {{"title", "url"}}},
	}

	_, err := NewAppender(api, cfg, nil).Append(context.Background(), oneJob())
	require.NoError(t, err)
	require.Len(t, api.appends, 1)
	assert.Equal(t, "'jobs'!A2", api.appends[0].rangeA1)
	assert.Equal(t, [][]any{{"產品經理", "https://www.104.com.tw/job/8abcd"}}, api.appends[0].values)
}

func TestAppend_NoJobsNoCalls(t *testing.T) {
	api := &fakeAPI{err: errors.New("should not be called")}
	n, err := NewAppender(api, sheetsConfig(), nil).Append(context.Background(), models.Digest{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRangeRefQuotesTitle(t *testing.T) {
	cfg := sheetsConfig()
	cfg.Worksheet = "Tom's jobs"
	assert.Equal(t, "'Tom''s jobs'!A1", NewAppender(nil, cfg, nil).rangeRef("A1"))
}

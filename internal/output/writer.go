// Package output writes the local artifacts of a run: Markdown, JSON and XLSX.
// Files are readable by the owner only.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go-job-digest/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	fileMode  = 0o600
	sheetName = "jobs"
)

// Paths are the files written for one run.
type Paths struct {
	Markdown string
	JSON     string
	XLSX     string
}

func (p Paths) All() []string { return []string{p.Markdown, p.JSON, p.XLSX} }

type Writer struct {
	dir string
	log *zap.Logger
}

func NewWriter(dir string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{dir: dir, log: log}
}

// PathsFor names the artifacts for a run date.
func (w *Writer) PathsFor(date string) Paths {
	return Paths{
		Markdown: filepath.Join(w.dir, fmt.Sprintf("jobs_%s.md", date)),
		JSON:     filepath.Join(w.dir, fmt.Sprintf("jobs_%s.json", date)),
		XLSX:     filepath.Join(w.dir, fmt.Sprintf("jobs_%s.xlsx", date)),
	}
}

// Write renders and writes all three artifacts. An existing file for the same
// date is replaced.
func (w *Writer) Write(d models.Digest) (Paths, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}
	paths := w.PathsFor(d.Date)

	jsonData, err := RenderJSON(d)
	if err != nil {
		return Paths{}, err
	}
	xlsxData, err := RenderXLSX(d)
	if err != nil {
		return Paths{}, err
	}

	files := []struct {
		path string
		data []byte
	}{
		{paths.Markdown, []byte(RenderMarkdown(d))},
		{paths.JSON, jsonData},
		{paths.XLSX, xlsxData},
	}
	for _, f := range files {
		if err := writePrivate(f.path, f.data); err != nil {
			return Paths{}, err
		}
	}
	w.log.Info("artifacts written",
		zap.String("markdown", paths.Markdown),
		zap.String("json", paths.JSON),
		zap.String("xlsx", paths.XLSX),
		zap.Int("jobs", len(d.Jobs)),
	)
	return paths, nil
}

// writePrivate writes data with mode 0600, tightening an existing file too.
func writePrivate(path string, data []byte) error {
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, fileMode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown is the human-readable digest.
func RenderMarkdown(d models.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 每日職缺清單 (%s)\n\n", d.Date)
	fmt.Fprintf(&b, "來源: %s\n", models.SearchPage)
	fmt.Fprintf(&b, "使用限制: %s\n\n", models.UsageNotice)

	if len(d.Jobs) == 0 {
		b.WriteString("今天沒有符合條件的職缺。\n")
		return b.String()
	}

	for i, j := range d.Jobs {
		fmt.Fprintf(&b, "## %d. %s - %s\n", i+1, j.Job.Title, j.Job.Company)
		fmt.Fprintf(&b, "- 地點: %s\n", orDefault(j.Job.City, "未提供"))
		fmt.Fprintf(&b, "- 薪資: %s\n", j.Job.Salary.Label())
		fmt.Fprintf(&b, "- 分數: %d\n", j.Score)
		fmt.Fprintf(&b, "- 理由: %s\n", strings.Join(j.Reasons, "; "))
		if j.Job.URL != "" {
			fmt.Fprintf(&b, "- 連結: %s\n", j.Job.URL)
		}
		if i < len(d.Jobs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

type jsonJob struct {
	Title   string   `json:"title"`
	Company string   `json:"company"`
	City    string   `json:"city"`
	Salary  any      `json:"salary"`
	URL     string   `json:"url"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

type jsonDigest struct {
	Date            string    `json:"date"`
	Source          string    `json:"source"`
	UsageNotice     string    `json:"usage_notice"`
	TotalCandidates int       `json:"total_candidates"`
	MatchedCount    int       `json:"matched_count"`
	MatchedJobs     []jsonJob `json:"matched_jobs"`
}

// RenderJSON is the machine-readable digest. Raw source records are never
// included.
func RenderJSON(d models.Digest) ([]byte, error) {
	doc := jsonDigest{
		Date:            d.Date,
		Source:          models.SearchPage,
		UsageNotice:     models.UsageNotice,
		TotalCandidates: d.TotalCandidates,
		MatchedCount:    len(d.Jobs),
		MatchedJobs:     make([]jsonJob, 0, len(d.Jobs)),
	}
	for _, j := range d.Jobs {
		var salary any = "面議"
		if j.Job.Salary.Known {
			salary = j.Job.Salary.Value
		}
		reasons := j.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		doc.MatchedJobs = append(doc.MatchedJobs, jsonJob{
			Title:   j.Job.Title,
			Company: j.Job.Company,
			City:    j.Job.City,
			Salary:  salary,
			URL:     j.Job.URL,
			Score:   j.Score,
			Reasons: reasons,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode json artifact: %w", err)
	}
	return buf.Bytes(), nil
}

var xlsxHeader = []string{"#", "職缺名稱", "公司", "地點", "薪資", "分數", "理由", "連結", "來源"}

// RenderXLSX is the spreadsheet copy of the digest, one row per job.
func RenderXLSX(d models.Digest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &xlsxHeader); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}

	for i, j := range d.Jobs {
		var salary any = j.Job.Salary.Label()
		if j.Job.Salary.Known {
			salary = j.Job.Salary.Value
		}
		row := []any{
			i + 1,
			j.Job.Title,
			j.Job.Company,
			j.Job.City,
			salary,
			j.Score,
			strings.Join(j.Reasons, "; "),
			j.Job.URL,
			j.Job.Source,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
		if j.Job.URL != "" {
			link := "H" + strconv.Itoa(i+2)
			if err := f.SetCellHyperLink(sheetName, link, j.Job.URL, "External"); err != nil {
				return nil, fmt.Errorf("xlsx link %d: %w", i+1, err)
			}
		}
	}
	_ = f.SetColWidth(sheetName, "B", "B", 40)
	_ = f.SetColWidth(sheetName, "G", "H", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx artifact: %w", err)
	}
	return buf.Bytes(), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

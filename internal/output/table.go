package output

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"go-job-digest/internal/models"
)

const titleWidth = 40

// RenderTable prints the selection as a console table.
func RenderTable(w io.Writer, jobs []models.ScoredJob) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "Score", "Title", "Company", "City", "Salary", "Keywords"})
	for i, j := range jobs {
		t.AppendRow(table.Row{
			i + 1,
			j.Score,
			text.Trim(j.Job.Title, titleWidth),
			j.Job.Company,
			j.Job.City,
			j.Job.Salary.Label(),
			strings.Join(j.MatchedKeywords, ", "),
		})
	}
	t.AppendFooter(table.Row{"", "", "total", len(jobs)})
	t.Render()
}

// RenderRows prints any two-column listing, e.g. the effective rule set.
func RenderRows(w io.Writer, header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

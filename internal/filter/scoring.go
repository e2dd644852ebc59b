package filter

import (
	"fmt"
	"strings"

	"go-job-digest/internal/models"
)

type contribution struct {
	delta  int
	reason string
}

// scoringRule yields zero or more independent contributions. Rules never read
// each other's output, so their order only affects reason order.
type scoringRule struct {
	name  string
	apply func(ev *evaluation) []contribution
}

func (e *Engine) buildScoringRules() []scoringRule {
	return []scoringRule{
		{"keyword", e.scoreKeywords},
		{"industry", e.scoreIndustry},
		{"company", e.scoreCompany},
		{"city", e.scoreCity},
		{"salary", e.scoreSalary},
		{"remote", e.scoreRemote},
	}
}

//+10 per distinct include keyword
func (e *Engine) scoreKeywords(ev *evaluation) []contribution {
	hits := e.includeHits(ev)
	out := make([]contribution, 0, len(hits))
	for _, kw := range hits {
		out = append(out, contribution{KeywordPoints, "keyword match: " + kw})
	}
	return out
}

func (e *Engine) scoreIndustry(ev *evaluation) []contribution {
	hits := e.industry.Matched(ev.looseDoc)
	if len(hits) == 0 {
		return nil
	}
	label := strings.Join(ev.rec.Industry, ", ")
	if label == "" {
		label = hits[0]
	}
	return []contribution{{IndustryPoints, "industry match: " + label}}
}

//once, however many include companies match
func (e *Engine) scoreCompany(ev *evaluation) []contribution {
	for _, c := range e.cfg.IncludeCompanies {
		if containsFold(ev.company, c) {
			return []contribution{{CompanyPoints, "preferred company: " + c}}
		}
	}
	return nil
}

func (e *Engine) scoreCity(ev *evaluation) []contribution {
	if ev.rec.City == "" {
		return nil
	}
	for _, c := range e.cfg.PreferredCities {
		if cityMatches(ev.rec.City, c) {
			return []contribution{{CityPoints, "preferred city: " + ev.rec.City}}
		}
	}
	return nil
}

func (e *Engine) scoreSalary(ev *evaluation) []contribution {
	s := ev.rec.Salary
	if !s.Known {
		return nil
	}
	if s.Value >= e.cfg.MinimumSalary {
		return []contribution{{SalaryPoints, fmt.Sprintf("salary %d >= %d", s.Value, e.cfg.MinimumSalary)}}
	}
	return []contribution{{SalaryPenalty, fmt.Sprintf("salary %d below %d", s.Value, e.cfg.MinimumSalary)}}
}

func (e *Engine) scoreRemote(ev *evaluation) []contribution {
	if !e.cfg.RequireRemote {
		return nil
	}
	switch ev.rec.Remote {
	case models.RemoteYes:
		return []contribution{{RemotePoints, "remote supported"}}
	case models.RemoteNo:
		return []contribution{{RemoteMissingPoints, "not remote"}}
	default:
		return nil
	}
}

package filter

import (
	"fmt"
	"strings"
)

type hardFilter struct {
	name  string
	check func(ev *evaluation) (reason string, reject bool)
}

func (e *Engine) buildHardFilters() []hardFilter {
	return []hardFilter{
		{"exclude_keywords", e.checkExcludeKeywords},
		{"required_keywords_all", e.checkRequiredAll},
		{"required_keyword_groups", e.checkGroups},
		{"allowed_cities", e.checkAllowedCities},
		{"exclude_companies", e.checkExcludeCompanies},
		{"require_industry_match", e.checkIndustry},
		{"require_include_keyword_match", e.checkIncludeRequired},
	}
}

func (e *Engine) checkExcludeKeywords(ev *evaluation) (string, bool) {
	if hits := e.exclude.Matched(ev.keywordDoc); len(hits) > 0 {
		return "exclude keyword: " + hits[0], true
	}
	return "", false
}

func (e *Engine) checkRequiredAll(ev *evaluation) (string, bool) {
	if e.required.Len() == 0 {
		return "", false
	}
	hits := e.required.Hits(ev.keywordDoc)
	if len(hits) == e.required.Len() {
		return "", false
	}
	found := make(map[int]bool, len(hits))
	for _, i := range hits {
		found[i] = true
	}
	var missing []string
	for i := 0; i < e.required.Len(); i++ {
		if !found[i] {
			missing = append(missing, e.required.Keyword(i))
		}
	}
	return "missing required keywords: " + strings.Join(missing, ", "), true
}

func (e *Engine) checkGroups(ev *evaluation) (string, bool) {
	if len(e.groups) == 0 {
		return "", false
	}
	matched := 0
	for _, g := range e.groups {
		if g.Any(ev.keywordDoc) {
			matched++
		}
	}
	need := e.cfg.RequiredGroupCount()
	if matched < need {
		return fmt.Sprintf("required keyword groups matched %d/%d", matched, need), true
	}
	return "", false
}

func (e *Engine) checkAllowedCities(ev *evaluation) (string, bool) {
	if len(e.cfg.AllowedCities) == 0 {
		return "", false
	}
	for _, c := range e.cfg.AllowedCities {
		if cityMatches(ev.rec.City, c) {
			return "", false
		}
	}
	city := ev.rec.City
	if city == "" {
		city = "unknown"
	}
	return "city not allowed: " + city, true
}

func (e *Engine) checkExcludeCompanies(ev *evaluation) (string, bool) {
	for _, c := range e.cfg.ExcludeCompanies {
		if containsFold(ev.company, c) {
			return "excluded company: " + c, true
		}
	}
	return "", false
}

func (e *Engine) checkIndustry(ev *evaluation) (string, bool) {
	if !e.cfg.RequireIndustryMatch || e.industry.Len() == 0 {
		return "", false
	}
	if !e.industry.Any(ev.industryDoc) {
		return "industry not matched", true
	}
	return "", false
}

func (e *Engine) checkIncludeRequired(ev *evaluation) (string, bool) {
	if !e.cfg.RequireIncludeKeywordMatch {
		return "", false
	}
	//an empty include list can never be hit
	if len(e.includeHits(ev)) == 0 {
		return "no include keyword matched", true
	}
	return "", false
}

// Package filter evaluates normalized job records against a rule
// configuration: ordered hard filters first, then additive scoring rules.
package filter

import (
	"fmt"
	"strings"

	"go-job-digest/internal/models"
	"go-job-digest/internal/normalize"
	"go-job-digest/internal/rules"
)

// Score deltas.
const (
	KeywordPoints       = 10
	IndustryPoints      = 8
	CompanyPoints       = 8
	CityPoints          = 6
	SalaryPoints        = 6
	SalaryPenalty       = -4
	RemotePoints        = 5
	RemoteMissingPoints = -8
)

// Verdict is the outcome of evaluating one record. A rejected verdict never
// carries a score.
type Verdict struct {
	Rejected     bool
	RejectReason string

	Score           int
	Reasons         []string
	MatchedKeywords []string
}

func (v Verdict) Passed() bool { return !v.Rejected }

// ScoredJob attaches a passing verdict to its record.
func (v Verdict) ScoredJob(rec models.JobRecord, key models.DedupKey, order int) models.ScoredJob {
	return models.ScoredJob{
		Job:             rec,
		Key:             key,
		Score:           v.Score,
		Reasons:         append([]string(nil), v.Reasons...),
		MatchedKeywords: append([]string(nil), v.MatchedKeywords...),
		Order:           order,
	}
}

// Engine is built once per run and is safe for concurrent use.
type Engine struct {
	cfg rules.Config

	include  *Matcher
	exclude  *Matcher
	required *Matcher
	groups   []*Matcher
	industry *Matcher

	hardFilters  []hardFilter
	scoringRules []scoringRule
}

// evaluation holds per-record state shared by the rules.
type evaluation struct {
	rec          models.JobRecord
	keywordDoc   *Document
	industryDoc  *Document
	looseDoc     *Document
	company      string
	includeHits  []string
	includeReady bool
}

func (e *Engine) includeHits(ev *evaluation) []string {
	if !ev.includeReady {
		ev.includeHits = e.include.Matched(ev.keywordDoc)
		ev.includeReady = true
	}
	return ev.includeHits
}

// NewEngine validates cfg and compiles its keyword lists.
func NewEngine(cfg rules.Config) (*Engine, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fuzzy, th := cfg.FuzzyMatchEnabled, cfg.FuzzyMatchThreshold

	e := &Engine{
		cfg:      cfg,
		include:  NewMatcher(cfg.IncludeKeywords, fuzzy, th),
		exclude:  NewMatcher(cfg.ExcludeKeywords, fuzzy, th),
		required: NewMatcher(cfg.RequiredKeywordsAll, fuzzy, th),
		industry: NewMatcher(cfg.IncludeIndustryKeywords, false, th),
	}
	for _, g := range cfg.RequiredKeywordGroups {
		e.groups = append(e.groups, NewMatcher(g, fuzzy, th))
	}
	e.hardFilters = e.buildHardFilters()
	e.scoringRules = e.buildScoringRules()
	return e, nil
}

// Config returns the normalized rule snapshot the engine was built from.
func (e *Engine) Config() rules.Config { return e.cfg }

// Evaluate applies the hard filters in order, stopping at the first
// rejection, then sums every scoring rule.
func (e *Engine) Evaluate(rec models.JobRecord) Verdict {
	keywordText := []string{rec.Title, rec.Description, strings.Join(rec.Tags, " ")}
	ev := &evaluation{
		rec:         rec,
		keywordDoc:  NewDocument(keywordText...),
		industryDoc: NewDocument(rec.Industry...),
		looseDoc:    NewDocument(append(append([]string{}, rec.Industry...), keywordText...)...),
		company:     normalizeText(rec.Company),
	}

	for _, f := range e.hardFilters {
		if reason, reject := f.check(ev); reject {
			return Verdict{Rejected: true, RejectReason: reason}
		}
	}

	v := Verdict{MatchedKeywords: e.includeHits(ev)}
	for _, r := range e.scoringRules {
		for _, c := range r.apply(ev) {
			v.Score += c.delta
			v.Reasons = append(v.Reasons, fmt.Sprintf("%s (%+d)", c.reason, c.delta))
		}
	}
	return v
}

// HardFilterNames lists the hard filters in evaluation order.
func (e *Engine) HardFilterNames() []string {
	out := make([]string, len(e.hardFilters))
	for i, f := range e.hardFilters {
		out[i] = f.name
	}
	return out
}

// ScoringRuleNames lists the scoring rules in reason order.
func (e *Engine) ScoringRuleNames() []string {
	out := make([]string, len(e.scoringRules))
	for i, r := range e.scoringRules {
		out[i] = r.name
	}
	return out
}

func containsFold(haystack, needle string) bool {
	n := normalizeText(needle)
	return n != "" && strings.Contains(haystack, n)
}

func cityMatches(recCity, want string) bool {
	if normalize.SameCity(recCity, want) {
		return true
	}
	rc := normalizeText(recCity)
	return rc != "" && containsFold(rc, want)
}

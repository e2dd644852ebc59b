// Package rules loads and validates the rule configuration that drives
// filtering and scoring.
package rules

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTopN           = 20
	DefaultFuzzyThreshold = 0.82
)

// Config is one immutable rule snapshot for a run.
type Config struct {
	IncludeKeywords            []string   `yaml:"include_keywords" json:"include_keywords"`
	ExcludeKeywords            []string   `yaml:"exclude_keywords" json:"exclude_keywords"`
	RequireIncludeKeywordMatch bool       `yaml:"require_include_keyword_match" json:"require_include_keyword_match"`
	RequiredKeywordsAll        []string   `yaml:"required_keywords_all" json:"required_keywords_all"`
	RequiredKeywordGroups      [][]string `yaml:"required_keyword_groups" json:"required_keyword_groups"`
	MinRequiredGroupMatches    int        `yaml:"min_required_group_matches" json:"min_required_group_matches" validate:"gte=0"`

	IncludeCompanies        []string `yaml:"include_companies" json:"include_companies"`
	ExcludeCompanies        []string `yaml:"exclude_companies" json:"exclude_companies"`
	IncludeIndustryKeywords []string `yaml:"include_industry_keywords" json:"include_industry_keywords"`
	RequireIndustryMatch    bool     `yaml:"require_industry_match" json:"require_industry_match"`

	AllowedCities   []string `yaml:"allowed_cities" json:"allowed_cities"`
	PreferredCities []string `yaml:"preferred_cities" json:"preferred_cities"`

	MinimumSalary int64 `yaml:"minimum_salary" json:"minimum_salary" validate:"gte=0"`
	MinimumScore  int   `yaml:"minimum_score" json:"minimum_score"`
	RequireRemote bool  `yaml:"require_remote" json:"require_remote"`
	TopN          int   `yaml:"top_n" json:"top_n" validate:"gte=1"`

	FuzzyMatchEnabled   bool    `yaml:"fuzzy_match_enabled" json:"fuzzy_match_enabled"`
	FuzzyMatchThreshold float64 `yaml:"fuzzy_match_threshold" json:"fuzzy_match_threshold" validate:"gt=0,lte=1"`
}

// Default returns the values used for options a rule file leaves out.
func Default() Config {
	return Config{
		TopN:                DefaultTopN,
		FuzzyMatchEnabled:   true,
		FuzzyMatchThreshold: DefaultFuzzyThreshold,
	}
}

// ConfigError lists every structural problem found in a rule file.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid rule config: " + strings.Join(e.Problems, "; ")
}

// Load reads a JSON or YAML rule file, applies defaults, normalizes lists and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes rule data. JSON is valid YAML, so one decoder serves both.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ConfigError{Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalized trims every list entry, drops blanks and case-insensitive
// duplicates, and removes empty keyword groups.
func (c Config) Normalized() Config {
	out := c
	out.IncludeKeywords = cleanList(c.IncludeKeywords)
	out.ExcludeKeywords = cleanList(c.ExcludeKeywords)
	out.RequiredKeywordsAll = cleanList(c.RequiredKeywordsAll)
	out.IncludeCompanies = cleanList(c.IncludeCompanies)
	out.ExcludeCompanies = cleanList(c.ExcludeCompanies)
	out.IncludeIndustryKeywords = cleanList(c.IncludeIndustryKeywords)
	out.AllowedCities = cleanList(c.AllowedCities)
	out.PreferredCities = cleanList(c.PreferredCities)

	out.RequiredKeywordGroups = nil
	for _, g := range c.RequiredKeywordGroups {
		if g = cleanList(g); len(g) > 0 {
			out.RequiredKeywordGroups = append(out.RequiredKeywordGroups, g)
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate returns a *ConfigError when the snapshot cannot drive a run.
func (c Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return &ConfigError{Problems: []string{err.Error()}}
		}
		for _, ve := range ves {
			problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s (got %v)", ve.Field(), ve.Tag(), ve.Param(), ve.Value()))
		}
	}

	if c.MinRequiredGroupMatches > len(c.RequiredKeywordGroups) {
		problems = append(problems, fmt.Sprintf("min_required_group_matches (%d) exceeds the number of required_keyword_groups (%d)",
			c.MinRequiredGroupMatches, len(c.RequiredKeywordGroups)))
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// RequiredGroupCount is how many keyword groups a record must satisfy.
// Zero means every group.
func (c Config) RequiredGroupCount() int {
	if c.MinRequiredGroupMatches > 0 {
		return c.MinRequiredGroupMatches
	}
	return len(c.RequiredKeywordGroups)
}

func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Join(strings.Fields(s), " ")
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

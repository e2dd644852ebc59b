package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"go-job-digest/internal/filter"
	"go-job-digest/internal/output"
	"go-job-digest/internal/rules"
)

var rulesPath string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the rule file",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the rule file and print the effective rule set",
	Args:  cobra.NoArgs,
	RunE:  runRulesCheck,
}

func init() {
	rulesCheckCmd.Flags().StringVar(&rulesPath, "rules", "rules.json", "Rule file (JSON or YAML)")
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := rules.Load(rulesPath)
	if err != nil {
		return err
	}
	engine, err := filter.NewEngine(cfg)
	if err != nil {
		return err
	}
	output.RenderRows(cmd.OutOrStdout(), table.Row{"Option", "Value"}, ruleRows(engine))
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is valid\n", rulesPath)
	return nil
}

func ruleRows(e *filter.Engine) []table.Row {
	c := e.Config()
	groups := make([]string, len(c.RequiredKeywordGroups))
	for i, g := range c.RequiredKeywordGroups {
		groups[i] = "[" + strings.Join(g, ", ") + "]"
	}
	list := func(v []string) string { return strings.Join(v, ", ") }

	return []table.Row{
		{"include_keywords", list(c.IncludeKeywords)},
		{"exclude_keywords", list(c.ExcludeKeywords)},
		{"require_include_keyword_match", c.RequireIncludeKeywordMatch},
		{"required_keywords_all", list(c.RequiredKeywordsAll)},
		{"required_keyword_groups", strings.Join(groups, " ")},
		{"min_required_group_matches", fmt.Sprintf("%d of %d", c.RequiredGroupCount(), len(c.RequiredKeywordGroups))},
		{"include_companies", list(c.IncludeCompanies)},
		{"exclude_companies", list(c.ExcludeCompanies)},
		{"include_industry_keywords", list(c.IncludeIndustryKeywords)},
		{"require_industry_match", c.RequireIndustryMatch},
		{"allowed_cities", list(c.AllowedCities)},
		{"preferred_cities", list(c.PreferredCities)},
		{"minimum_salary", c.MinimumSalary},
		{"minimum_score", c.MinimumScore},
		{"require_remote", c.RequireRemote},
		{"top_n", c.TopN},
		{"fuzzy_match", fmt.Sprintf("%t (threshold %.2f)", c.FuzzyMatchEnabled, c.FuzzyMatchThreshold)},
		{"hard filters", list(e.HardFilterNames())},
		{"scoring rules", list(e.ScoringRuleNames())},
	}
}

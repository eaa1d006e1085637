package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RatioRule is one row of the federation's loan table: at Total active
// players of one gender, at most MaxLoaned of them may be loaned.
type RatioRule struct {
	Total     int `json:"total"`
	MaxLoaned int `json:"max_cedidos"`
}

// RuleSet is the quota/ratio configuration one category is validated
// against. It is externally editable between passes and immutable during
// a single validation pass.
type RuleSet struct {
	MinPlayers         int         `json:"min_total"`
	MaxPlayers         int         `json:"max_total"`
	MinPerGender       int         `json:"min_gender"`
	MaxLoanRatio       float64     `json:"max_loan_ratio"`
	RatioTable         []RatioRule `json:"ratio_table,omitempty"`
	AllowLoanedPlayers bool        `json:"allow_loaned_players"`
	RequireDeclaration bool        `json:"require_declaration"`
	RequireLoanDoc     bool        `json:"require_loan_doc"`
}

// Validate reports whether the rule set is internally consistent. A
// malformed rule set aborts the pass for its roster; a team must never be
// reported compliant against garbage thresholds.
func (r RuleSet) Validate() error {
	if r.MinPlayers < 0 || r.MaxPlayers < 0 {
		return fmt.Errorf("negative roster bound (min=%d max=%d)", r.MinPlayers, r.MaxPlayers)
	}
	if r.MaxPlayers > 0 && r.MinPlayers > r.MaxPlayers {
		return fmt.Errorf("min players %d exceeds max players %d", r.MinPlayers, r.MaxPlayers)
	}
	if r.MaxLoanRatio < 0 || r.MaxLoanRatio > 1 {
		return fmt.Errorf("loan ratio %.2f outside [0,1]", r.MaxLoanRatio)
	}
	for _, rule := range r.RatioTable {
		if rule.Total <= 0 || rule.MaxLoaned < 0 {
			return fmt.Errorf("invalid ratio table row {total:%d max:%d}", rule.Total, rule.MaxLoaned)
		}
	}
	return nil
}

// MaxLoanedFor resolves the loan allowance for a per-gender total against
// the ratio table. An exact total matches its row; totals above the table
// take the last row ("10 or more"); totals below the table allow none.
func (r RuleSet) MaxLoanedFor(total int) int {
	if len(r.RatioTable) == 0 {
		return -1 // no table configured
	}
	table := append([]RatioRule(nil), r.RatioTable...)
	sort.Slice(table, func(i, j int) bool { return table[i].Total < table[j].Total })

	for _, rule := range table {
		if total == rule.Total {
			return rule.MaxLoaned
		}
	}
	if total > table[len(table)-1].Total {
		return table[len(table)-1].MaxLoaned
	}
	return 0
}

// RuleConfig is the editable rule collection: one RuleSet per category
// plus the team slot to category assignment.
type RuleConfig struct {
	Rules          map[string]RuleSet `json:"rules"`
	TeamCategories map[string]string  `json:"team_categories"`
}

// CategoryUnassigned is returned when a team slot has no category mapping.
const CategoryUnassigned = "Sin Asignar"

// CategoryFor resolves the category of a team slot. Lookup is forgiving
// about whitespace, case and accents because team names arrive from
// hand-edited spreadsheets.
func (c RuleConfig) CategoryFor(team string) string {
	if cat, ok := c.TeamCategories[team]; ok {
		return cat
	}
	trimmed := strings.TrimSpace(team)
	if cat, ok := c.TeamCategories[trimmed]; ok {
		return cat
	}
	target := normalizeClubName(team)
	for name, cat := range c.TeamCategories {
		if normalizeClubName(name) == target {
			return cat
		}
	}
	return CategoryUnassigned
}

// RuleSetFor returns the rule set governing a team slot, or false when the
// team's category carries no rules.
func (c RuleConfig) RuleSetFor(team string) (RuleSet, string, bool) {
	category := c.CategoryFor(team)
	rules, ok := c.Rules[category]
	return rules, category, ok
}

package rules

import (
	"fmt"
	"strings"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// Engine evaluates one team's roster against its category rule set and
// the club equivalence map. Evaluation is a pure in-memory pass; every
// check runs independently and multiple violations may fire at once.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate produces the compliance report for a roster. A malformed rule
// set returns a ConfigurationError and no report; unresolved clubs or
// identities never abort the pass.
func (e *Engine) Evaluate(roster domain.Roster, rules domain.RuleSet, category string, resolver *domain.EquivalenceResolver) (domain.ComplianceReport, error) {
	if err := rules.Validate(); err != nil {
		return domain.ComplianceReport{}, &domain.ConfigurationError{
			Team:     roster.Team,
			Category: category,
			Reason:   err.Error(),
		}
	}

	report := domain.ComplianceReport{
		Team:       roster.Team,
		Category:   category,
		Violations: []domain.Violation{},
	}

	active := roster.ActiveRows()
	report.Counts.Excluded = len(roster.Rows) - len(active)
	report.Counts.Total = len(active)

	var loanedIDs []string
	var undocumentedLoanIDs []string
	for _, row := range active {
		loaned := e.isLoaned(row, roster.Team, resolver)
		switch row.NormalizedGender() {
		case "M":
			report.Counts.Men++
			if loaned {
				report.Counts.LoanedMen++
			}
		case "F":
			report.Counts.Women++
			if loaned {
				report.Counts.LoanedWomen++
			}
		default:
			if loaned {
				// Unknown gender counts toward the overall loan ratio
				// but never toward a per-gender allowance.
				report.Counts.LoanedOther++
			}
		}
		if loaned {
			loanedIDs = append(loanedIDs, row.Identity)
			if !row.LoanDoc {
				undocumentedLoanIDs = append(undocumentedLoanIDs, row.Identity)
			}
		}
	}

	report.Violations = append(report.Violations, e.sizeViolations(report.Counts, rules)...)
	report.Violations = append(report.Violations, e.genderViolations(report.Counts, rules)...)
	report.Violations = append(report.Violations, e.loanViolations(report.Counts, rules, loanedIDs, undocumentedLoanIDs)...)
	report.Violations = append(report.Violations, e.declarationViolations(active, rules)...)
	report.Violations = append(report.Violations, duplicateViolations(roster)...)

	report.Passed = true
	for _, v := range report.Violations {
		if v.Severity == domain.SeverityError {
			report.Passed = false
			continue
		}
		report.Warnings = append(report.Warnings, v.Message)
	}
	return report, nil
}

// declarationViolations checks the sworn-declaration requirement. It only
// binds foreign players; Spanish players keep their row-level flag but do
// not fail the team requirement.
func (e *Engine) declarationViolations(active []domain.PlayerRow, rules domain.RuleSet) []domain.Violation {
	if !rules.RequireDeclaration {
		return nil
	}
	var missing []string
	for _, row := range active {
		if row.IsForeign() && !row.Declaration {
			missing = append(missing, row.Identity)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []domain.Violation{{
		Kind:       domain.ViolationMissingDeclaration,
		Severity:   domain.SeverityWarning,
		Observed:   float64(len(missing)),
		Limit:      0,
		Identities: missing,
		Message:    fmt.Sprintf("Faltan %d Declaración Jurada (extranjeros)", len(missing)),
	}}
}

// isLoaned classifies a cedido: the declared club differs from the team's
// registering club and is not an affiliate of it. Rows with no declared
// club cannot be classified and are counted as own players.
func (e *Engine) isLoaned(row domain.PlayerRow, team string, resolver *domain.EquivalenceResolver) bool {
	club := strings.TrimSpace(row.Club)
	if club == "" || strings.TrimSpace(team) == "" {
		return false
	}
	if resolver.SameClub(club, team) {
		return false
	}
	if resolver.IsAffiliate(team, club) {
		return false
	}
	return true
}

func (e *Engine) sizeViolations(counts domain.RosterCounts, rules domain.RuleSet) []domain.Violation {
	var out []domain.Violation
	// A roster with zero players is never vacuously compliant.
	if counts.Total < rules.MinPlayers || counts.Total == 0 {
		out = append(out, domain.Violation{
			Kind:     domain.ViolationUnderMin,
			Severity: domain.SeverityError,
			Observed: float64(counts.Total),
			Limit:    float64(rules.MinPlayers),
			Message:  fmt.Sprintf("Mínimo total no cumplido (%d/%d)", counts.Total, rules.MinPlayers),
		})
	}
	if rules.MaxPlayers > 0 && counts.Total > rules.MaxPlayers {
		out = append(out, domain.Violation{
			Kind:     domain.ViolationOverMax,
			Severity: domain.SeverityError,
			Observed: float64(counts.Total),
			Limit:    float64(rules.MaxPlayers),
			Message:  fmt.Sprintf("Máximo total excedido (%d/%d)", counts.Total, rules.MaxPlayers),
		})
	}
	return out
}

func (e *Engine) genderViolations(counts domain.RosterCounts, rules domain.RuleSet) []domain.Violation {
	if rules.MinPerGender <= 0 {
		return nil
	}
	var out []domain.Violation
	if counts.Men < rules.MinPerGender {
		out = append(out, domain.Violation{
			Kind:     domain.ViolationGenderRatio,
			Severity: domain.SeverityError,
			Observed: float64(counts.Men),
			Limit:    float64(rules.MinPerGender),
			Message:  fmt.Sprintf("Mínimo Hombres no cumplido (%d/%d)", counts.Men, rules.MinPerGender),
		})
	}
	if counts.Women < rules.MinPerGender {
		out = append(out, domain.Violation{
			Kind:     domain.ViolationGenderRatio,
			Severity: domain.SeverityError,
			Observed: float64(counts.Women),
			Limit:    float64(rules.MinPerGender),
			Message:  fmt.Sprintf("Mínimo Mujeres no cumplido (%d/%d)", counts.Women, rules.MinPerGender),
		})
	}
	return out
}

func (e *Engine) loanViolations(counts domain.RosterCounts, rules domain.RuleSet, loanedIDs, undocumentedLoanIDs []string) []domain.Violation {
	var out []domain.Violation

	if !rules.AllowLoanedPlayers {
		if counts.Loaned() > 0 {
			out = append(out, domain.Violation{
				Kind:       domain.ViolationLoansNotAllowed,
				Severity:   domain.SeverityError,
				Observed:   float64(counts.Loaned()),
				Limit:      0,
				Identities: loanedIDs,
				Message:    fmt.Sprintf("No se permiten cedidos en esta categoría (%d)", counts.Loaned()),
			})
		}
		return out
	}

	// Overall ratio bound, computed over the surviving player count.
	if rules.MaxLoanRatio > 0 && counts.Total > 0 {
		ratio := float64(counts.Loaned()) / float64(counts.Total)
		if ratio > rules.MaxLoanRatio {
			out = append(out, domain.Violation{
				Kind:       domain.ViolationLoanRatio,
				Severity:   domain.SeverityError,
				Observed:   ratio,
				Limit:      rules.MaxLoanRatio,
				Identities: loanedIDs,
				Message:    fmt.Sprintf("Exceso de cedidos (%.2f > %.2f)", ratio, rules.MaxLoanRatio),
			})
		}
	}

	// Federation loan table, evaluated per gender.
	if maxMen := rules.MaxLoanedFor(counts.Men); maxMen >= 0 && counts.LoanedMen > maxMen {
		out = append(out, domain.Violation{
			Kind:     domain.ViolationLoanRatio,
			Severity: domain.SeverityError,
			Observed: float64(counts.LoanedMen),
			Limit:    float64(maxMen),
			Message:  fmt.Sprintf("Exceso Cedidos H (%d/%d)", counts.LoanedMen, maxMen),
		})
	}
	if maxWomen := rules.MaxLoanedFor(counts.Women); maxWomen >= 0 && counts.LoanedWomen > maxWomen {
		out = append(out, domain.Violation{
			Kind:     domain.ViolationLoanRatio,
			Severity: domain.SeverityError,
			Observed: float64(counts.LoanedWomen),
			Limit:    float64(maxWomen),
			Message:  fmt.Sprintf("Exceso Cedidos M (%d/%d)", counts.LoanedWomen, maxWomen),
		})
	}

	if rules.RequireLoanDoc && len(undocumentedLoanIDs) > 0 {
		out = append(out, domain.Violation{
			Kind:       domain.ViolationMissingLoanDoc,
			Severity:   domain.SeverityWarning,
			Observed:   float64(len(undocumentedLoanIDs)),
			Limit:      0,
			Identities: undocumentedLoanIDs,
			Message:    fmt.Sprintf("Faltan %d Doc. Cesión", len(undocumentedLoanIDs)),
		})
	}
	return out
}

// duplicateViolations surfaces repeated identities as a data-integrity
// violation. Rows are never silently dropped to resolve a duplicate.
func duplicateViolations(roster domain.Roster) []domain.Violation {
	seen := make(map[string]int)
	for _, row := range roster.Rows {
		seen[row.Identity]++
	}
	var dupes []string
	for _, row := range roster.Rows {
		if seen[row.Identity] > 1 && seen[row.Identity] != -1 {
			dupes = append(dupes, row.Identity)
			seen[row.Identity] = -1 // report each identity once
		}
	}
	if len(dupes) == 0 {
		return nil
	}
	return []domain.Violation{{
		Kind:       domain.ViolationDuplicateIdentity,
		Severity:   domain.SeverityError,
		Observed:   float64(len(dupes)),
		Limit:      0,
		Identities: dupes,
		Message:    fmt.Sprintf("Identidades duplicadas: %s", strings.Join(dupes, ", ")),
	}}
}

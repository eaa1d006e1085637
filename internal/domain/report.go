package domain

import "fmt"

// ViolationKind identifies one class of normativa breach.
type ViolationKind string

const (
	ViolationUnderMin           ViolationKind = "UNDER_MIN"
	ViolationOverMax            ViolationKind = "OVER_MAX"
	ViolationGenderRatio        ViolationKind = "GENDER_RATIO_VIOLATION"
	ViolationLoanRatio          ViolationKind = "LOAN_RATIO_VIOLATION"
	ViolationLoansNotAllowed    ViolationKind = "LOANS_NOT_ALLOWED"
	ViolationDuplicateIdentity  ViolationKind = "DUPLICATE_IDENTITY"
	ViolationMissingLoanDoc     ViolationKind = "MISSING_LOAN_DOCUMENT"
	ViolationMissingDeclaration ViolationKind = "MISSING_DECLARATION"
)

// Severity ranks a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation carries the offending count and the threshold it breached, so
// a report is actionable without re-running the evaluation.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Severity   Severity      `json:"severity"`
	Observed   float64       `json:"observed"`
	Limit      float64       `json:"limit"`
	Identities []string      `json:"identities,omitempty"`
	Message    string        `json:"message"`
}

// RosterCounts summarizes a roster after exclusions. LoanedOther holds
// loaned players whose gender could not be normalized; they count toward
// the overall loan total but never toward a per-gender allowance.
type RosterCounts struct {
	Total       int `json:"total"`
	Men         int `json:"men"`
	Women       int `json:"women"`
	LoanedMen   int `json:"loaned_men"`
	LoanedWomen int `json:"loaned_women"`
	LoanedOther int `json:"loaned_other,omitempty"`
	Excluded    int `json:"excluded"`
}

// Loaned is the total loaned count across genders.
func (c RosterCounts) Loaned() int {
	return c.LoanedMen + c.LoanedWomen + c.LoanedOther
}

// ComplianceReport is the output of one validation pass over one roster.
type ComplianceReport struct {
	Team       string       `json:"team"`
	Category   string       `json:"category"`
	Counts     RosterCounts `json:"counts"`
	Violations []Violation  `json:"violations"`
	Warnings   []string     `json:"warnings,omitempty"`
	Passed     bool         `json:"passed"`
}

// Verdict renders the reviewer-facing overall state.
func (r ComplianceReport) Verdict() string {
	if r.Passed {
		return "APTO"
	}
	return "NO APTO"
}

// ConfigurationError reports a missing or malformed rule set for a
// category. It is fatal for that roster's pass: the team must not be
// reported compliant just because nobody configured its rules.
type ConfigurationError struct {
	Team     string
	Category string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no usable rule set for team %q (category %q): %s", e.Team, e.Category, e.Reason)
}

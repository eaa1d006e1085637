package reconcile

import (
	"fmt"
	"strings"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// Merge folds a freshly ingested roster into the current one and returns
// the merged copy plus a human-readable report. It is built on Apply, so
// the identity uniqueness invariant and the audit trail rules are the
// same as for single manual rows.
func (s *Service) Merge(current domain.Roster, incoming []domain.PlayerRow) (domain.Roster, []string) {
	merged := current
	var added, updated int
	var logs []string

	for _, row := range incoming {
		input := rowToInput(row)

		// Federation exports list both clubs during a transfer window
		// ("Astures, RSL Tenerife"); the destination is whichever side
		// does not match the team already on file.
		if input.Team != nil && strings.Contains(*input.Team, ",") {
			if idx := merged.Find(row.Identity); idx >= 0 {
				resolved := resolveTransferTeam(merged.Rows[idx].Team, *input.Team)
				input.Team = &resolved
			}
		}

		var outcome Outcome
		merged, outcome = s.Apply(merged, input)
		switch outcome.Action {
		case ActionAdded:
			added++
			logs = append(logs, fmt.Sprintf("Añadido: %s (%s) -> %s", row.Name, outcome.Identity, row.Team))
		case ActionUpdated:
			updated++
			logs = append(logs, fmt.Sprintf("Actualizado: %s (%s): %s", row.Name, outcome.Identity, strings.Join(outcome.Changes, ", ")))
		}
	}

	summary := fmt.Sprintf("Resumen: %d añadidos, %d actualizados", added, updated)
	return merged, append([]string{summary}, logs...)
}

// rowToInput converts an ingested row to a tri-state input. Empty fields
// become absent so a sparse federation export never clears values a
// reviewer already filled in; boolean attestations are only carried when
// set, for the same reason.
func rowToInput(row domain.PlayerRow) RowInput {
	input := RowInput{Identity: row.Identity}
	input.Team = optional(row.Team)
	input.Name = optional(row.Name)
	input.Gender = optional(row.Gender)
	input.Nationality = optional(row.Nationality)
	input.BirthDate = optional(row.BirthDate)
	input.Club = optional(row.Club)
	if row.Declaration {
		input.Declaration = Bool(true)
	}
	if row.LoanDoc {
		input.LoanDoc = Bool(true)
	}
	if row.Excluded {
		input.Excluded = Bool(true)
	}
	return input
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func resolveTransferTeam(currentTeam, multiTeam string) string {
	var candidate string
	matched := false
	for _, part := range strings.Split(multiTeam, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if domain.NameSimilarity(part, currentTeam) > 0.9 {
			matched = true
		} else {
			candidate = part
		}
	}
	if matched && candidate != "" {
		return candidate
	}
	return strings.TrimSpace(multiTeam)
}

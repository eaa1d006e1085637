package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// LicenseResolver resolves identities while reconciling manual rows.
type LicenseResolver interface {
	Resolve(identity string) (domain.LicenseRecord, error)
}

// RowInput is one manually entered or edited row. Pointer fields are
// tri-state: nil means the field was not supplied, a pointer to "" means
// the user cleared it, anything else is a provided value. The merge rules
// need that distinction — "don't overwrite unless empty" is meaningless
// when absence and user-cleared collapse into one value.
type RowInput struct {
	Identity    string  `json:"identity"`
	Team        *string `json:"team,omitempty"`
	Name        *string `json:"name,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
	BirthDate   *string `json:"birth_date,omitempty"`
	Club        *string `json:"club,omitempty"`
	Declaration *bool   `json:"declaration,omitempty"`
	LoanDoc     *bool   `json:"loan_doc,omitempty"`
	Excluded    *bool   `json:"excluded,omitempty"`
}

// String returns a pointer to s, for building RowInput literals.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building RowInput literals.
func Bool(b bool) *bool { return &b }

// Action describes what an apply call did.
type Action string

const (
	ActionAdded     Action = "added"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Outcome reports the effect of one apply call.
type Outcome struct {
	Identity string   `json:"identity"`
	Action   Action   `json:"action"`
	Changes  []string `json:"changes,omitempty"`
}

// Service merges manual rows into rosters while preserving the audit
// trail and the roster's identity uniqueness invariant.
type Service struct {
	directory LicenseResolver
	now       func() time.Time
}

func NewService(directory LicenseResolver) *Service {
	return &Service{directory: directory, now: time.Now}
}

// Apply merges one row into the roster and returns the updated copy. An
// existing identity is updated in place; a new identity is appended with
// attributes backfilled from the license directory. Row status is left
// for the status computer; apply never derives it.
func (s *Service) Apply(roster domain.Roster, input RowInput) (domain.Roster, Outcome) {
	out := roster.Clone()
	identity := domain.NormalizeIdentity(input.Identity)
	outcome := Outcome{Identity: identity}
	if identity == "" {
		outcome.Action = ActionUnchanged
		return out, outcome
	}

	if idx := out.Find(identity); idx >= 0 {
		outcome.Action = ActionUpdated
		outcome.Changes = s.update(&out.Rows[idx], input)
		if len(outcome.Changes) == 0 {
			outcome.Action = ActionUnchanged
		}
		return out, outcome
	}

	row := s.insert(identity, input)
	out.Rows = append(out.Rows, row)
	outcome.Action = ActionAdded
	return out, outcome
}

// ApplyBatch processes rows as independent sequential applies against the
// progressively updated roster, so two batch rows sharing an identity
// collapse into an insert-then-update chain instead of a duplicate.
func (s *Service) ApplyBatch(roster domain.Roster, inputs []RowInput) (domain.Roster, []Outcome) {
	outcomes := make([]Outcome, 0, len(inputs))
	current := roster
	for _, input := range inputs {
		var outcome Outcome
		current, outcome = s.Apply(current, input)
		outcomes = append(outcomes, outcome)
	}
	return current, outcomes
}

// update mutates an existing row per the merge rules: only provided,
// non-empty, different values change anything; a team change is recorded
// in the audit trail; identity-defining fields are never silently
// overwritten when already populated — the existing value wins and the
// conflict is noted.
func (s *Service) update(row *domain.PlayerRow, input RowInput) []string {
	var changes []string

	if input.Team != nil {
		team := strings.TrimSpace(*input.Team)
		if team != "" && team != row.Team {
			prior := row.Team
			row.Team = team
			row.AppendNote(fmt.Sprintf("Cambio manual equipo: %s -> %s", prior, team))
			changes = append(changes, fmt.Sprintf("equipo: %s -> %s", prior, team))
		}
	}

	if input.Club != nil {
		club := strings.TrimSpace(*input.Club)
		if club != "" && club != row.Club {
			prior := row.Club
			row.Club = club
			if prior != "" {
				row.AppendNote(fmt.Sprintf("Cambio club: %s -> %s", prior, club))
			}
			changes = append(changes, fmt.Sprintf("club: %s -> %s", prior, club))
		}
	}

	changes = append(changes, s.mergeIdentityField(row, &row.Name, input.Name, "nombre")...)
	changes = append(changes, s.mergeIdentityField(row, &row.Gender, input.Gender, "género")...)
	changes = append(changes, s.mergeIdentityField(row, &row.Nationality, input.Nationality, "nacionalidad")...)
	changes = append(changes, s.mergeIdentityField(row, &row.BirthDate, input.BirthDate, "f. nac")...)

	if input.Declaration != nil && *input.Declaration != row.Declaration {
		row.Declaration = *input.Declaration
		changes = append(changes, fmt.Sprintf("declaración jurada: %t", row.Declaration))
	}
	if input.LoanDoc != nil && *input.LoanDoc != row.LoanDoc {
		row.LoanDoc = *input.LoanDoc
		changes = append(changes, fmt.Sprintf("doc. cesión: %t", row.LoanDoc))
	}
	if input.Excluded != nil && *input.Excluded != row.Excluded {
		row.Excluded = *input.Excluded
		changes = append(changes, fmt.Sprintf("excluido: %t", row.Excluded))
	}

	return changes
}

// mergeIdentityField backfills an empty field, and on a conflict keeps the
// stored value while noting the rejected proposal.
func (s *Service) mergeIdentityField(row *domain.PlayerRow, target *string, supplied *string, label string) []string {
	if supplied == nil {
		return nil
	}
	value := strings.TrimSpace(*supplied)
	if value == "" || value == *target {
		return nil
	}
	if strings.TrimSpace(*target) == "" || *target == "?" {
		*target = value
		return []string{fmt.Sprintf("%s: %s", label, value)}
	}
	row.AppendNote(fmt.Sprintf("Conflicto %s: se conserva %q, propuesto %q", label, *target, value))
	return []string{fmt.Sprintf("conflicto %s", label)}
}

// insert builds a new row, filling gaps from the license directory. An
// unresolved identity is not an error: the row enters with placeholders
// and the status computer flags it unverified.
func (s *Service) insert(identity string, input RowInput) domain.PlayerRow {
	row := domain.PlayerRow{
		Identity:    identity,
		Team:        deref(input.Team),
		Name:        deref(input.Name),
		Gender:      deref(input.Gender),
		Nationality: deref(input.Nationality),
		BirthDate:   deref(input.BirthDate),
		Club:        deref(input.Club),
		AddedAt:     s.now(),
	}
	if input.Declaration != nil {
		row.Declaration = *input.Declaration
	}
	if input.LoanDoc != nil {
		row.LoanDoc = *input.LoanDoc
	}
	if input.Excluded != nil {
		row.Excluded = *input.Excluded
	}

	if s.directory != nil {
		if record, err := s.directory.Resolve(identity); err == nil {
			backfill(&row.Name, record.Name)
			backfill(&row.Gender, record.Gender)
			backfill(&row.Club, record.Club)
			backfill(&row.Nationality, record.Nationality)
			backfill(&row.BirthDate, record.BirthDate)
		}
	}

	row.ReviewNotes = []string{"Añadido Manualmente"}
	return row
}

func backfill(target *string, value string) {
	if strings.TrimSpace(*target) == "" && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

package domain

import (
	"strings"
	"time"
)

// RowFlag is a per-player micro-status derived from current field values.
type RowFlag string

const (
	FlagUnverifiedLicense  RowFlag = "UNVERIFIED_LICENSE"
	FlagExpiredLicense     RowFlag = "EXPIRED_LICENSE"
	FlagMissingDeclaration RowFlag = "MISSING_DECLARATION"
	FlagDuplicateIdentity  RowFlag = "DUPLICATE_IDENTITY"
	FlagIncompleteData     RowFlag = "INCOMPLETE_DATA"
)

// PlayerRow is one roster entry. Identity is always stored in normalized
// form; RowStatus is derived and recomputed on every pass, never trusted
// as stored.
type PlayerRow struct {
	Identity    string    `json:"identity"`
	Name        string    `json:"name"`
	Gender      string    `json:"gender"`
	Nationality string    `json:"nationality"`
	BirthDate   string    `json:"birth_date,omitempty"`
	Club        string    `json:"club"`
	Team        string    `json:"team"` // competition slot the player is entered into ("Pruebas")
	Declaration bool      `json:"declaration"`
	LoanDoc     bool      `json:"loan_doc"`
	Excluded    bool      `json:"excluded"`
	ReviewNotes []string  `json:"review_notes"`
	RowStatus   []RowFlag `json:"row_status,omitempty"`
	AddedAt     time.Time `json:"added_at,omitempty"`
}

// AppendNote adds a human readable annotation to the audit trail. The
// trail is append-only; callers never truncate it.
func (p *PlayerRow) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	p.ReviewNotes = append(p.ReviewNotes, note)
}

// MissingIdentityAttributes reports whether the row still carries
// placeholder identity data and should be backfilled from the license
// directory when a record becomes available.
func (p PlayerRow) MissingIdentityAttributes() bool {
	return strings.TrimSpace(p.Name) == "" || p.Name == "?" ||
		strings.TrimSpace(p.Gender) == "" || p.Gender == "?"
}

// NormalizedGender reduces free-form gender values to "M"/"F" ("" when
// unknown).
func (p PlayerRow) NormalizedGender() string {
	g := strings.ToUpper(strings.TrimSpace(p.Gender))
	switch {
	case strings.HasPrefix(g, "M") || strings.HasPrefix(g, "H"): // Masculino / Hombre
		return "M"
	case strings.HasPrefix(g, "F"):
		return "F"
	default:
		return ""
	}
}

// IsForeign reports whether the player's declared nationality is outside
// Spain. Foreign players are subject to extra documentation requirements.
func (p PlayerRow) IsForeign() bool {
	n := strings.ToUpper(strings.TrimSpace(p.Nationality))
	switch n {
	case "", "SPAIN", "ESPAÑA", "ESPANA", "ESP", "ES":
		return false
	}
	return true
}

// Roster is the ordered set of player rows registered under one team slot.
// Identity is unique within a roster; reconciliation enforces this by
// updating rather than duplicating.
type Roster struct {
	Team string      `json:"team"`
	Rows []PlayerRow `json:"rows"`
}

// Find returns the index of the row whose normalized identity matches, or
// -1 when the identity is not present.
func (r Roster) Find(identity string) int {
	id := NormalizeIdentity(identity)
	for i := range r.Rows {
		if r.Rows[i].Identity == id {
			return i
		}
	}
	return -1
}

// ActiveRows returns the rows that participate in team-level counting.
// Excluded players are invisible to totals, gender splits and loan ratios.
func (r Roster) ActiveRows() []PlayerRow {
	active := make([]PlayerRow, 0, len(r.Rows))
	for _, row := range r.Rows {
		if !row.Excluded {
			active = append(active, row)
		}
	}
	return active
}

// Clone returns a deep copy so that callers can treat rosters as immutable
// snapshots. A prior snapshot is never valid after a mutation; consumers
// re-fetch instead of patching.
func (r Roster) Clone() Roster {
	out := Roster{Team: r.Team, Rows: make([]PlayerRow, len(r.Rows))}
	for i, row := range r.Rows {
		out.Rows[i] = row
		out.Rows[i].ReviewNotes = append([]string(nil), row.ReviewNotes...)
		out.Rows[i].RowStatus = append([]RowFlag(nil), row.RowStatus...)
	}
	return out
}

// Session is the persisted form of a review workspace: every roster row of
// one named inscription file plus the reviewer's column selection.
type Session struct {
	Name      string      `json:"name"`
	Timestamp time.Time   `json:"timestamp"`
	Rows      []PlayerRow `json:"data"`
	Columns   []string    `json:"columns"`
}

// Rosters groups the session rows by team slot, preserving row order
// within each team. Grouping is recomputed on every pass.
func (s Session) Rosters() []Roster {
	index := make(map[string]int)
	var out []Roster
	for _, row := range s.Rows {
		team := strings.TrimSpace(row.Team)
		i, ok := index[team]
		if !ok {
			i = len(out)
			index[team] = i
			out = append(out, Roster{Team: team})
		}
		out[i].Rows = append(out[i].Rows, row)
	}
	return out
}

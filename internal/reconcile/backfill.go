package reconcile

import (
	"fmt"
	"strings"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// BackfillFromDirectory fills placeholder identity attributes from the
// license directory and returns the updated copy plus a report of what
// was recovered. Each recovered field is noted on the row so the reviewer
// can see which values came from the federation rather than the upload.
func (s *Service) BackfillFromDirectory(roster domain.Roster) (domain.Roster, []string) {
	out := roster.Clone()
	var logs []string

	for i := range out.Rows {
		row := &out.Rows[i]
		if row.Identity == "" {
			continue
		}
		record, err := s.directory.Resolve(row.Identity)
		if err != nil {
			continue
		}

		changed := false
		changed = fillField(row, &row.Name, record.Name, "nombre") || changed
		changed = fillField(row, &row.Gender, record.Gender, "sexo") || changed
		changed = fillField(row, &row.Nationality, record.Nationality, "país") || changed
		changed = fillField(row, &row.BirthDate, record.BirthDate, "f. nac") || changed
		changed = fillField(row, &row.Club, record.Club, "club") || changed
		if changed {
			logs = append(logs, fmt.Sprintf("%s: datos completados desde licencias", row.Identity))
		}
	}
	return out, logs
}

// fillField replaces a placeholder value and records the provenance note.
// Populated fields are never overwritten here; conflicts are the merge
// rules' business, not the backfill's.
func fillField(row *domain.PlayerRow, target *string, value string, label string) bool {
	value = strings.TrimSpace(value)
	current := strings.TrimSpace(*target)
	if value == "" || (current != "" && current != "?") {
		return false
	}
	prior := current
	if prior == "" {
		prior = "?"
	}
	*target = value
	row.AppendNote(fmt.Sprintf("[FESBA] %s: %s -> %s", label, prior, value))
	return true
}

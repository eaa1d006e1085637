package rules

import (
	"errors"
	"strings"

	"github.com/lncpro/rosteraudit/internal/domain"
	"github.com/lncpro/rosteraudit/internal/licenses"
)

// LicenseResolver is the read-only slice of the license directory the
// status computer needs.
type LicenseResolver interface {
	Resolve(identity string) (domain.LicenseRecord, error)
}

// Annotate returns a copy of the roster with RowStatus rebuilt from the
// current field values. The status is always recomputed from scratch:
// clearing a field (ticking the declaration box, fixing an identity)
// removes its flag on the very next pass and no stale warning can
// survive. The directory is only read, never mutated.
func Annotate(roster domain.Roster, directory LicenseResolver) domain.Roster {
	out := roster.Clone()

	occurrences := make(map[string]int, len(out.Rows))
	for _, row := range out.Rows {
		occurrences[row.Identity]++
	}

	for i := range out.Rows {
		row := &out.Rows[i]
		row.RowStatus = nil

		if strings.TrimSpace(row.Identity) == "" || strings.TrimSpace(row.Name) == "" {
			row.RowStatus = append(row.RowStatus, domain.FlagIncompleteData)
		}

		if row.Identity != "" {
			record, err := directory.Resolve(row.Identity)
			switch {
			case errors.Is(err, licenses.ErrNotFound):
				row.RowStatus = append(row.RowStatus, domain.FlagUnverifiedLicense)
			case err != nil:
				// Directory unavailable counts as unverified, not as a pass.
				row.RowStatus = append(row.RowStatus, domain.FlagUnverifiedLicense)
			case !record.Valid:
				row.RowStatus = append(row.RowStatus, domain.FlagExpiredLicense)
			}
		}

		if !row.Declaration {
			row.RowStatus = append(row.RowStatus, domain.FlagMissingDeclaration)
		}

		// Duplicates flag every occurrence, not just the later ones.
		if occurrences[row.Identity] > 1 {
			row.RowStatus = append(row.RowStatus, domain.FlagDuplicateIdentity)
		}
	}

	return out
}

package reconcile

import (
	"strings"
	"testing"

	"github.com/lncpro/rosteraudit/internal/domain"
	"github.com/lncpro/rosteraudit/internal/licenses"
)

type stubDirectory struct {
	records map[string]domain.LicenseRecord
}

func (s *stubDirectory) Resolve(identity string) (domain.LicenseRecord, error) {
	record, ok := s.records[domain.NormalizeIdentity(identity)]
	if !ok {
		return domain.LicenseRecord{}, licenses.ErrNotFound
	}
	return record, nil
}

func countNotes(row domain.PlayerRow, substr string) int {
	n := 0
	for _, note := range row.ReviewNotes {
		if strings.Contains(note, substr) {
			n++
		}
	}
	return n
}

func TestApplyInsertBackfillsFromDirectory(t *testing.T) {
	directory := &stubDirectory{records: map[string]domain.LicenseRecord{
		"1010157": {Identity: "1010157", Name: "Ana García", Gender: "F", Club: "CB Rinconada", Nationality: "España"},
	}}
	svc := NewService(directory)

	roster, outcome := svc.Apply(domain.Roster{Team: "CB Rinconada A"}, RowInput{
		Identity: "1010157.0",
		Team:     String("CB Rinconada A"),
	})

	if outcome.Action != ActionAdded {
		t.Fatalf("action = %s, want added", outcome.Action)
	}
	if outcome.Identity != "1010157" {
		t.Fatalf("identity not normalized: %q", outcome.Identity)
	}
	row := roster.Rows[0]
	if row.Name != "Ana García" || row.Gender != "F" || row.Club != "CB Rinconada" {
		t.Fatalf("directory backfill missing: %+v", row)
	}
	if countNotes(row, "Añadido Manualmente") != 1 {
		t.Fatalf("expected manual-add note, got %v", row.ReviewNotes)
	}
	if row.RowStatus != nil {
		t.Fatalf("apply must not derive row status, got %v", row.RowStatus)
	}
}

func TestApplyInsertUnknownIdentity(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})

	roster, outcome := svc.Apply(domain.Roster{}, RowInput{Identity: "42", Name: String("Desconocido")})
	if outcome.Action != ActionAdded {
		t.Fatalf("unresolved identity must still insert, got %s", outcome.Action)
	}
	if roster.Rows[0].Name != "Desconocido" {
		t.Fatalf("provided fields lost: %+v", roster.Rows[0])
	}
}

func TestApplyTeamChangeNote(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	roster := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "7", Name: "Ana", Team: "Equipo A"},
	}}

	updated, outcome := svc.Apply(roster, RowInput{Identity: "7", Team: String("Equipo B")})
	if outcome.Action != ActionUpdated {
		t.Fatalf("action = %s, want updated", outcome.Action)
	}
	row := updated.Rows[0]
	if row.Team != "Equipo B" {
		t.Fatalf("team not moved: %q", row.Team)
	}
	if countNotes(row, "Cambio manual equipo: Equipo A -> Equipo B") != 1 {
		t.Fatalf("expected exactly one team-change note, got %v", row.ReviewNotes)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	roster := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "7", Name: "Ana", Team: "Equipo A"},
	}}

	input := RowInput{Identity: "7", Team: String("Equipo B")}
	first, _ := svc.Apply(roster, input)
	second, outcome := svc.Apply(first, input)

	if outcome.Action != ActionUnchanged {
		t.Fatalf("second identical apply = %s, want unchanged", outcome.Action)
	}
	if len(second.Rows) != 1 {
		t.Fatalf("identity duplicated: %d rows", len(second.Rows))
	}
	// The note count is stable across repeated identical applies.
	if countNotes(second.Rows[0], "Cambio manual equipo") != 1 {
		t.Fatalf("notes not monotonic: %v", second.Rows[0].ReviewNotes)
	}
}

func TestApplyConflictKeepsExistingValue(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	roster := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "7", Name: "Ana", Gender: "F"},
	}}

	updated, outcome := svc.Apply(roster, RowInput{Identity: "7", Gender: String("M")})
	row := updated.Rows[0]
	if row.Gender != "F" {
		t.Fatalf("conflicting update overwrote stored value: %q", row.Gender)
	}
	if countNotes(row, "Conflicto género") != 1 {
		t.Fatalf("expected conflict note, got %v", row.ReviewNotes)
	}
	if outcome.Action != ActionUpdated {
		t.Fatalf("conflict should still report an update, got %s", outcome.Action)
	}
}

func TestApplyBackfillsPlaceholder(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	roster := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "7", Name: "?", Gender: ""},
	}}

	updated, _ := svc.Apply(roster, RowInput{Identity: "7", Name: String("Ana García"), Gender: String("F")})
	row := updated.Rows[0]
	if row.Name != "Ana García" || row.Gender != "F" {
		t.Fatalf("placeholders not backfilled: %+v", row)
	}
	if countNotes(row, "Conflicto") != 0 {
		t.Fatalf("backfill must not record conflicts, got %v", row.ReviewNotes)
	}
}

func TestApplyBatchCollapsesSharedIdentity(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})

	roster, outcomes := svc.ApplyBatch(domain.Roster{}, []RowInput{
		{Identity: "7", Name: String("Ana"), Team: String("Equipo A")},
		{Identity: "7", Team: String("Equipo B")},
	})

	if len(roster.Rows) != 1 {
		t.Fatalf("batch created duplicate rows: %d", len(roster.Rows))
	}
	if outcomes[0].Action != ActionAdded || outcomes[1].Action != ActionUpdated {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if roster.Rows[0].Team != "Equipo B" {
		t.Fatalf("later batch row lost: %q", roster.Rows[0].Team)
	}
}

func TestApplyDoesNotMutateInputRoster(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	roster := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "7", Name: "Ana", Team: "Equipo A"},
	}}

	_, _ = svc.Apply(roster, RowInput{Identity: "7", Team: String("Equipo B")})
	if roster.Rows[0].Team != "Equipo A" || len(roster.Rows[0].ReviewNotes) != 0 {
		t.Fatalf("input roster mutated: %+v", roster.Rows[0])
	}
}

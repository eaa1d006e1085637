package reconcile

import (
	"strings"
	"testing"

	"github.com/lncpro/rosteraudit/internal/domain"
)

func TestMergeAddsAndUpdates(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	current := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "1", Name: "Ana García", Team: "Equipo A", Club: "CB Rinconada"},
	}}
	incoming := []domain.PlayerRow{
		{Identity: "1", Name: "Ana García", Team: "Equipo A", Club: "CB Rinconada", Declaration: true},
		{Identity: "2", Name: "Luis Pérez", Team: "Equipo A", Club: "CB Rinconada"},
	}

	merged, logs := svc.Merge(current, incoming)

	if len(merged.Rows) != 2 {
		t.Fatalf("expected 2 rows after merge, got %d", len(merged.Rows))
	}
	if logs[0] != "Resumen: 1 añadidos, 1 actualizados" {
		t.Fatalf("unexpected summary: %q", logs[0])
	}
	if !merged.Rows[0].Declaration {
		t.Fatal("declaration from the import was not applied")
	}
}

func TestMergeSparseImportKeepsReviewerData(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	current := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "1", Name: "Ana García", Gender: "F", Team: "Equipo A", Declaration: true},
	}}
	// A sparse export row: identity only. Nothing the reviewer filled in
	// may be cleared.
	incoming := []domain.PlayerRow{{Identity: "1"}}

	merged, _ := svc.Merge(current, incoming)
	row := merged.Rows[0]
	if row.Name != "Ana García" || row.Gender != "F" || !row.Declaration {
		t.Fatalf("sparse import clobbered reviewer data: %+v", row)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	incoming := []domain.PlayerRow{
		{Identity: "1", Name: "Ana García", Team: "Equipo A", Club: "CB Rinconada"},
	}

	merged, _ := svc.Merge(domain.Roster{}, incoming)
	again, logs := svc.Merge(merged, incoming)

	if len(again.Rows) != 1 {
		t.Fatalf("repeat merge duplicated rows: %d", len(again.Rows))
	}
	if logs[0] != "Resumen: 0 añadidos, 0 actualizados" {
		t.Fatalf("repeat merge reported changes: %q", logs[0])
	}
}

func TestMergeResolvesTransferTeam(t *testing.T) {
	svc := NewService(&stubDirectory{records: map[string]domain.LicenseRecord{}})
	current := domain.Roster{Rows: []domain.PlayerRow{
		{Identity: "1", Name: "Ana García", Team: "CB Astures"},
	}}
	// During a transfer window the export lists both teams; the
	// destination is the one not already on file.
	incoming := []domain.PlayerRow{
		{Identity: "1", Name: "Ana García", Team: "CB Astures, RSL Tenerife"},
	}

	merged, _ := svc.Merge(current, incoming)
	row := merged.Rows[0]
	if row.Team != "RSL Tenerife" {
		t.Fatalf("transfer destination not resolved: %q", row.Team)
	}
	found := false
	for _, note := range row.ReviewNotes {
		if strings.Contains(note, "Cambio manual equipo: CB Astures -> RSL Tenerife") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected team-change note, got %v", row.ReviewNotes)
	}
}

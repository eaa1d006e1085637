package ingestion

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFederationExport(t *testing.T) {
	csvData := "Liga Nacional de Clubes\n" +
		"Inscripciones 2026\n" +
		"N.,Nombre,Nombre.1,Sexo,País,F.Nac,Club,Equipo,Licencia.ID\n" +
		"1,García López,Ana,F,España,01/02/2001,CB Rinconada,Equipo A,1010157.0\n" +
		"2,Pérez,Luis,M,Francia,05/05/1999,CB Granada,Equipo A,0002020\n" +
		",,,,,,,,\n"

	svc := NewService()
	result, err := svc.Parse("inscripciones.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if result.Summary.HeaderRow != 2 {
		t.Fatalf("header row = %d, want 2", result.Summary.HeaderRow)
	}
	if result.Summary.BackupRestore {
		t.Fatal("federation export misdetected as backup")
	}
	if result.Summary.ParsedRows != 2 || result.Summary.SkippedRows != 0 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}

	ana := result.Rows[0]
	if ana.Identity != "1010157" {
		t.Fatalf("float artifact not normalized: %q", ana.Identity)
	}
	if ana.Name != "Ana García López" {
		t.Fatalf("name not joined given-first: %q", ana.Name)
	}
	if ana.Club != "CB Rinconada" || ana.Team != "Equipo A" {
		t.Fatalf("unexpected row: %+v", ana)
	}

	if result.Rows[1].Identity != "2020" {
		t.Fatalf("leading zeros kept: %q", result.Rows[1].Identity)
	}
}

func TestParseBackupFile(t *testing.T) {
	csvData := "Nº.ID,Nombre,Pruebas,Estado,Notas_Revision,Declaración_Jurada,Es_Excluido\n" +
		"1010157,Ana García,Equipo A,OK,Añadido Manualmente | Cambio manual equipo: A -> B,TRUE,FALSE\n" +
		"2020,Luis Pérez,Equipo B,OK,,FALSE,TRUE\n"

	svc := NewService()
	result, err := svc.Parse("backup.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !result.Summary.BackupRestore {
		t.Fatal("backup structure not detected")
	}

	ana := result.Rows[0]
	if !ana.Declaration {
		t.Fatal("declaration flag lost on restore")
	}
	if len(ana.ReviewNotes) != 2 || ana.ReviewNotes[0] != "Añadido Manualmente" {
		t.Fatalf("review notes not restored: %v", ana.ReviewNotes)
	}
	if !result.Rows[1].Excluded {
		t.Fatal("excluded flag lost on restore")
	}
}

func TestParseSkipsUnidentifiableRows(t *testing.T) {
	csvData := "Nombre,Club,Licencia.ID\n" +
		"Ana García,CB Rinconada,1010157\n" +
		",CB Granada,\n"

	svc := NewService()
	result, err := svc.Parse("inscripciones.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Summary.ParsedRows != 1 || result.Summary.SkippedRows != 1 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if len(result.Log) != 1 || result.Log[0].RowNumber != 3 {
		t.Fatalf("skipped row not logged: %+v", result.Log)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	svc := NewService()
	if _, err := svc.Parse("roster.pdf", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseMissingIdentityColumn(t *testing.T) {
	csvData := "Nombre,Club\nAna,CB Rinconada\n"
	svc := NewService()
	if _, err := svc.Parse("roster.csv", strings.NewReader(csvData)); err == nil {
		t.Fatal("expected error for missing id column")
	}
}

func TestFixMojibake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "double decoded accents", in: "AlfajarÃ­n", want: "Alfajarín"},
		{name: "clean text untouched", in: "Alfajarín", want: "Alfajarín"},
		{name: "ascii untouched", in: "Granada", want: "Granada"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixMojibake(tt.in); got != tt.want {
				t.Fatalf("FixMojibake(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

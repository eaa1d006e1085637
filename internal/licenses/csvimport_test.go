package licenses

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const membersHeader = "Nº de licencia;Rol;Nombre;Apellido 1;Apellido 2;Sexo;Grupo;Nacionalidad;Fecha de Nacimiento;Ambito de la licencia;Categoría;Fecha de finalización\n"

func TestImportCSV(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	csvData := membersHeader +
		"1010157;Jugador;Ana;García;López;F;CB Rinconada;;01/02/2001;Nacional;Absoluta;30/06/2026\n" +
		"2020;Jugador;Luis;Pérez;-;M;CB Granada;Francia;05/05/1999;Nacional;Absoluta;30/06/2024\n" +
		"3030;Entrenador;Mario;Ruiz;;M;CB Granada;;;;;30/06/2026\n"

	records, err := ImportCSV(strings.NewReader(csvData), now)
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 player records, got %d", len(records))
	}

	ana := records[0]
	if ana.Identity != "1010157" {
		t.Fatalf("identity = %q", ana.Identity)
	}
	if ana.Name != "Ana García López" {
		t.Fatalf("name = %q", ana.Name)
	}
	if !ana.Valid || ana.Status != "OK" {
		t.Fatalf("expected valid license, got %+v", ana)
	}
	if ana.Nationality != "España" {
		t.Fatalf("blank nationality should default to España, got %q", ana.Nationality)
	}

	luis := records[1]
	if luis.Name != "Luis Pérez" {
		t.Fatalf("placeholder surname not dropped: %q", luis.Name)
	}
	if luis.Valid || luis.Status != "Caducada" {
		t.Fatalf("expected expired license, got %+v", luis)
	}
	if luis.Nationality != "Francia" {
		t.Fatalf("nationality = %q", luis.Nationality)
	}
}

func TestImportCSVWithBOM(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	csvData := "\xEF\xBB\xBF" + membersHeader +
		"1010157;Jugador;Ana;García;;F;CB Rinconada;;;Nacional;Absoluta;30/06/2026\n"

	records, err := ImportCSV(strings.NewReader(csvData), now)
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if len(records) != 1 || records[0].Identity != "1010157" {
		t.Fatalf("BOM broke the header row: %+v", records)
	}
}

func TestImportCSVDeduplicatesPreferringValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	csvData := membersHeader +
		"1010157;Jugador;Ana;García;;F;CB Rinconada;;;Nacional;Absoluta;30/06/2024\n" +
		"1010157;Jugador;Ana;García;;F;CB Rinconada;;;Nacional;Absoluta;30/06/2026\n"

	records, err := ImportCSV(strings.NewReader(csvData), now)
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 deduplicated record, got %d", len(records))
	}
	if !records[0].Valid {
		t.Fatalf("valid license not preferred: %+v", records[0])
	}
}

func TestImportCSVFormattedIdentity(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	// Thousand separators show up in hand-exported files.
	csvData := membersHeader +
		"1.010.157;Jugador;Ana;García;;F;CB Rinconada;;;Nacional;Absoluta;30/06/2026\n"

	records, err := ImportCSV(strings.NewReader(csvData), now)
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if records[0].Identity != "1010157" {
		t.Fatalf("identity = %q, want 1010157", records[0].Identity)
	}
}

func TestImportCSVNoPlayers(t *testing.T) {
	now := time.Now()
	csvData := membersHeader +
		"3030;Entrenador;Mario;Ruiz;;M;CB Granada;;;;;30/06/2026\n"

	if _, err := ImportCSV(strings.NewReader(csvData), now); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
}

func TestLicenseStillValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		endDate string
		want    bool
	}{
		{name: "future date", endDate: "30/06/2026", want: true},
		{name: "past date", endDate: "30/06/2024", want: false},
		{name: "empty", endDate: "", want: false},
		{name: "free-form current season", endDate: "Temporada 2025/2026", want: true},
		{name: "free-form old season", endDate: "Temporada 2023/2024", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := licenseStillValid(tt.endDate, now); got != tt.want {
				t.Fatalf("licenseStillValid(%q) = %v, want %v", tt.endDate, got, tt.want)
			}
		})
	}
}

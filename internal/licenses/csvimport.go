package licenses

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lncpro/rosteraudit/internal/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ErrNoRecords is returned when a federation export contains no usable
// player rows.
var ErrNoRecords = errors.New("no player records found in csv")

// ImportCSV parses the federation members export (semicolon separated,
// often BOM-prefixed). Only rows with role "jugador" become records; a
// license is valid while its end date has not passed. When the same
// identity appears twice the valid license is kept.
func ImportCSV(r io.Reader, now time.Time) ([]domain.LicenseRecord, error) {
	reader := bufio.NewReader(r)
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = ';'
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read members csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRecords
	}

	columns := make(map[string]int)
	for idx, header := range rows[0] {
		columns[strings.TrimSpace(header)] = idx
	}
	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	byIdentity := make(map[string]domain.LicenseRecord)
	var order []string
	for _, row := range rows[1:] {
		if !strings.EqualFold(cell(row, "Rol"), "jugador") {
			continue
		}

		identity := domain.NormalizeIdentity(strings.NewReplacer(".", "", ",", "").Replace(cell(row, "Nº de licencia")))
		if identity == "" {
			continue
		}

		endDate := cell(row, "Fecha de finalización")
		valid := licenseStillValid(endDate, now)

		surname2 := cell(row, "Apellido 2")
		if surname2 == "-" {
			surname2 = ""
		}
		name := strings.TrimSpace(strings.Join([]string{
			cell(row, "Nombre"), cell(row, "Apellido 1"), surname2,
		}, " "))
		name = strings.Join(strings.Fields(name), " ")

		status := "OK"
		if !valid {
			status = "Caducada"
		}
		nationality := cell(row, "Nacionalidad")
		if nationality == "" {
			nationality = "España"
		}

		record := domain.LicenseRecord{
			Identity:    identity,
			Name:        name,
			Gender:      cell(row, "Sexo"),
			Club:        cell(row, "Grupo"),
			Nationality: nationality,
			BirthDate:   cell(row, "Fecha de Nacimiento"),
			LicenseType: strings.TrimSpace(cell(row, "Ambito de la licencia") + " - " + cell(row, "Categoría")),
			EndDate:     endDate,
			Valid:       valid,
			Status:      status,
		}

		if existing, ok := byIdentity[identity]; ok {
			if existing.Valid && !record.Valid {
				continue
			}
		} else {
			order = append(order, identity)
		}
		byIdentity[identity] = record
	}

	if len(byIdentity) == 0 {
		return nil, ErrNoRecords
	}

	out := make([]domain.LicenseRecord, 0, len(byIdentity))
	for _, identity := range order {
		out = append(out, byIdentity[identity])
	}
	return out, nil
}

func licenseStillValid(endDate string, now time.Time) bool {
	endDate = strings.TrimSpace(endDate)
	if endDate == "" {
		return false
	}
	if end, err := time.Parse("02/01/2006", endDate); err == nil {
		return !end.Before(now.Truncate(24 * time.Hour))
	}
	// Unparseable dates fall back to checking the season years, matching
	// the federation export's occasional free-form values.
	year := now.Year()
	return strings.Contains(endDate, fmt.Sprint(year)) || strings.Contains(endDate, fmt.Sprint(year+1))
}

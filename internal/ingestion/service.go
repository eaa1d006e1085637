package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/lncpro/rosteraudit/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	// Keywords that identify the header row of a federation roster export.
	headerKeywords = []string{"nombre", "club", "equipo", "licencia", "n."}

	// Columns written by this system itself. When (almost) all of them are
	// present the file is a backup of a prior session and its structure is
	// trusted as-is, no fuzzy column mapping.
	systemColumns = []string{"Nº.ID", "Nombre", "Pruebas", "Estado", "Notas_Revision", "Declaración_Jurada", "Es_Excluido"}
)

// LogEntry records one skipped or suspect row for the ingestion audit log.
type LogEntry struct {
	ID        uuid.UUID `json:"id"`
	FileName  string    `json:"file_name"`
	RowNumber int       `json:"row_number"`
	Message   string    `json:"message"`
}

// Summary returns ingestion level metrics.
type Summary struct {
	TotalRows     int  `json:"totalRows"`
	ParsedRows    int  `json:"parsedRows"`
	SkippedRows   int  `json:"skippedRows"`
	HeaderRow     int  `json:"headerRow"`
	BackupRestore bool `json:"backupRestore"`
}

// Result is the parsed roster plus its metrics and row-level log.
type Result struct {
	Rows    []domain.PlayerRow `json:"rows"`
	Columns []string           `json:"columns"`
	Summary Summary            `json:"summary"`
	Log     []LogEntry         `json:"log,omitempty"`
}

// Service parses federation roster uploads (.xlsx or .csv) into player
// rows. Parsing is pure: nothing is persisted here.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Parse reads an uploaded roster file and maps it onto player rows,
// normalizing identities and repairing text encoding at the boundary so
// nothing downstream has to.
func (s *Service) Parse(fileName string, r io.Reader) (Result, error) {
	var result Result

	payload, err := io.ReadAll(r)
	if err != nil {
		return result, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return result, errors.New("file is empty")
	}

	records, err := readTable(fileName, payload)
	if err != nil {
		return result, err
	}

	headerIdx, found := detectHeaderRow(records)
	if !found {
		headerIdx = firstNonEmptyRow(records)
	}
	if headerIdx < 0 || headerIdx >= len(records) {
		return result, errors.New("no header row detected")
	}
	result.Summary.HeaderRow = headerIdx

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}
	result.Columns = headers

	result.Summary.BackupRestore = isBackupFile(headers)
	mapping := mapColumns(headers)
	if mapping.identity < 0 {
		return result, errors.New("no license id column detected")
	}

	for idx := headerIdx + 1; idx < len(records); idx++ {
		row := records[idx]
		if rowEmpty(row) {
			continue
		}
		result.Summary.TotalRows++

		player, ok := buildRow(row, mapping)
		if !ok {
			result.Summary.SkippedRows++
			result.Log = append(result.Log, LogEntry{
				ID:        uuid.New(),
				FileName:  fileName,
				RowNumber: idx + 1,
				Message:   "row has neither license id nor name",
			})
			continue
		}
		result.Rows = append(result.Rows, player)
		result.Summary.ParsedRows++
	}

	return result, nil
}

func readTable(fileName string, payload []byte) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".csv":
		return readCSV(payload)
	case ".xlsx":
		return readExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// detectHeaderRow scans the leading rows for one matching at least two of
// the roster header keywords. Federation exports bury the header under a
// variable number of title rows.
func detectHeaderRow(records [][]string) (int, bool) {
	limit := len(records)
	if limit > 20 {
		limit = 20
	}
	for idx := 0; idx < limit; idx++ {
		matches := 0
		for _, keyword := range headerKeywords {
			for _, cell := range records[idx] {
				if strings.Contains(strings.ToLower(cell), keyword) {
					matches++
					break
				}
			}
		}
		if matches >= 2 {
			return idx, true
		}
	}
	return -1, false
}

func firstNonEmptyRow(records [][]string) int {
	for idx, row := range records {
		if !rowEmpty(row) {
			return idx
		}
	}
	return -1
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func isBackupFile(headers []string) bool {
	present := 0
	for _, want := range systemColumns {
		for _, h := range headers {
			if h == want {
				present++
				break
			}
		}
	}
	return present >= len(systemColumns)-1
}

type columnMapping struct {
	identity    int
	club        int
	team        int
	surname     int
	givenName   int
	gender      int
	nationality int
	birthDate   int
	declaration int
	loanDoc     int
	excluded    int
	notes       int
}

// mapColumns locates roster fields by header name. The id column is any
// header ending in ".id", or containing "licencia"/"memberid"; when
// several qualify the longest header wins (bare "N." is a row counter).
func mapColumns(headers []string) columnMapping {
	m := columnMapping{
		identity: -1, club: -1, team: -1, surname: -1, givenName: -1,
		gender: -1, nationality: -1, birthDate: -1, declaration: -1,
		loanDoc: -1, excluded: -1, notes: -1,
	}

	for idx, header := range headers {
		lower := strings.ToLower(header)
		collapsed := strings.NewReplacer(" ", "", "_", "").Replace(lower)

		if header == "N." {
			continue // row counter
		}

		switch {
		case strings.HasSuffix(lower, ".id"), strings.Contains(lower, "licencia"), strings.Contains(collapsed, "memberid"):
			if m.identity < 0 || len(header) > len(headers[m.identity]) {
				m.identity = idx
			}
		case strings.Contains(lower, "club"):
			m.club = idx
		case strings.Contains(lower, "equipo"), strings.Contains(lower, "pruebas"):
			m.team = idx
		case lower == "nombre" || lower == "apellidos":
			m.surname = idx
		case strings.Contains(lower, "nombre"):
			// "Nombre.1" carries the given name in federation exports.
			m.givenName = idx
		case strings.Contains(lower, "género"), strings.Contains(lower, "genero"), strings.Contains(lower, "sexo"):
			m.gender = idx
		case strings.Contains(lower, "país"), strings.Contains(lower, "pais"), strings.Contains(lower, "nacionalidad"):
			m.nationality = idx
		case strings.Contains(lower, "nac") && strings.Contains(lower, "f."):
			m.birthDate = idx
		case strings.Contains(lower, "declaración"), strings.Contains(lower, "declaracion"):
			m.declaration = idx
		case strings.Contains(lower, "cesión"), strings.Contains(lower, "cesion"):
			m.loanDoc = idx
		case strings.Contains(lower, "excluido"):
			m.excluded = idx
		case strings.Contains(lower, "notas"):
			m.notes = idx
		}
	}
	return m
}

func buildRow(row []string, m columnMapping) (domain.PlayerRow, bool) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return FixMojibake(strings.TrimSpace(row[idx]))
	}

	identity := domain.NormalizeIdentity(cell(m.identity))
	name := strings.TrimSpace(strings.Join(strings.Fields(cell(m.givenName)+" "+cell(m.surname)), " "))
	if identity == "" && name == "" {
		return domain.PlayerRow{}, false
	}

	player := domain.PlayerRow{
		Identity:    identity,
		Name:        name,
		Gender:      cell(m.gender),
		Nationality: cell(m.nationality),
		BirthDate:   cell(m.birthDate),
		Club:        cell(m.club),
		Team:        cell(m.team),
		Declaration: strictBool(cell(m.declaration)),
		LoanDoc:     strictBool(cell(m.loanDoc)),
		Excluded:    strictBool(cell(m.excluded)),
	}
	if notes := cell(m.notes); notes != "" {
		player.ReviewNotes = strings.Split(notes, " | ")
	}
	return player, true
}

// strictBool mirrors how spreadsheets round-trip our booleans: anything
// but an explicit affirmative is false.
func strictBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE", "1", "YES", "SI", "SÍ":
		return true
	}
	return false
}

// FixMojibake repairs UTF-8 text that was decoded as Latin-1 somewhere
// upstream ("AlfajarÃ­n" -> "Alfajarín"). Only strings showing the telltale
// 'Ã' are touched, and only when the round trip yields valid UTF-8.
func FixMojibake(s string) string {
	if !strings.Contains(s, "Ã") {
		return s
	}
	encoded, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return s
	}
	if !utf8.ValidString(encoded) || encoded == s {
		return s
	}
	return encoded
}

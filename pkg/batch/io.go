package batch

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadOptions controls how tabular sources are read.
type LoadOptions struct {
	// Delimiter separates CSV cells. Zero means ','.
	Delimiter rune
	// Sheet selects the XLSX sheet. Empty means the first sheet.
	Sheet string
}

// LoadFile reads a batch from a .csv, .xlsx or .json file.
func LoadFile(path string, opts LoadOptions) (*Batch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, opts)
	case ".json":
		return LoadJSON(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening batch: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, opts)
	}
}

// ReadCSV parses a header row followed by one entity per row.
func ReadCSV(r io.Reader, opts LoadOptions) (*Batch, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading csv header: %w", ErrEmptySource)
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, rec)
	}
	return fromRows(header, rows)
}

// LoadXLSX reads the first (or named) sheet of a workbook.
func LoadXLSX(path string, opts LoadOptions) (*Batch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("reading workbook: %w", ErrEmptySource)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, ErrEmptySource)
	}
	return fromRows(rows[0], rows[1:])
}

// LoadJSON reads a batch previously written by SaveJSON.
func LoadJSON(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}

	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshaling batch: %w", err)
	}
	return &b, nil
}

// SaveJSON writes a batch to disk.
func SaveJSON(path string, b *Batch) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for batch: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing batch: %w", err)
	}
	return nil
}

// WriteCSV writes the batch with identity columns first and every other
// field after, in order of first appearance.
func WriteCSV(w io.Writer, b *Batch) error {
	fields := b.Fields()
	cw := csv.NewWriter(w)

	header := append([]string{ColTaxCode, ColSector, ColYear}, fields...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, e := range b.Entities {
		rec := make([]string, 0, len(header))
		year := ""
		if e.Year != 0 {
			year = strconv.Itoa(e.Year)
		}
		rec = append(rec, e.TaxCode, e.Sector, year)
		for _, f := range fields {
			rec = append(rec, formatCell(e.Fields[f]))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		v := Coerce(raw)
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// fromRows turns a header plus data rows into entities. Identity columns are
// lifted onto the entity; everything else lands in Fields as a raw string.
func fromRows(header []string, rows [][]string) (*Batch, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	if _, ok := idx[ColTaxCode]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColTaxCode)
	}

	sectorCol := ColSector
	if _, ok := idx[ColSector]; !ok {
		sectorCol = ColSectorRaw
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	b := &Batch{Entities: make([]Entity, 0, len(rows))}
	for _, h := range header {
		b.Columns = append(b.Columns, strings.TrimSpace(h))
	}
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		e := Entity{
			TaxCode: cell(row, ColTaxCode),
			Sector:  cell(row, sectorCol),
			Fields:  make(map[string]any, len(header)),
		}
		if y := cell(row, ColYear); y != "" {
			year, err := parseYear(y)
			if err != nil {
				return nil, fmt.Errorf("parsing %s for %s: %w", ColYear, e.TaxCode, err)
			}
			e.Year = year
		}
		for i, h := range header {
			name := strings.TrimSpace(h)
			if isIdentity(name) {
				continue
			}
			var v any
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				v = strings.TrimSpace(row[i])
			}
			e.Fields[name] = v
		}
		b.Entities = append(b.Entities, e)
	}
	return b, nil
}

func parseYear(s string) (int, error) {
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func isIdentity(name string) bool {
	switch name {
	case ColTaxCode, ColSector, ColSectorRaw, ColYear:
		return true
	}
	return false
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Package batch holds the set of companies scored together in one run and the
// loaders that build it from CSV, XLSX and JSON sources.
package batch

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Identity column names used by the source datasets.
const (
	ColTaxCode      = "taxcode"
	ColSector       = "sector_unique_id"
	ColSectorRaw    = "sector_unique_id_raw"
	ColYear         = "yearreport"
	ColEmployees    = "empl_qtty"
	ColReportLength = "length_report"

	// IndicatorPrefix marks the standardized ratio columns.
	IndicatorPrefix = "STD_RTD"
)

// Entity is one company-year. Fields maps an indicator name to its raw cell,
// which may be a number, a numeric string, or nil.
type Entity struct {
	TaxCode string         `json:"taxcode"`
	Sector  string         `json:"sector_unique_id"`
	Year    int            `json:"yearreport,omitempty"`
	Fields  map[string]any `json:"fields"`
}

// Value returns the numeric value of a field and whether it is usable.
func (e *Entity) Value(field string) (float64, bool) {
	if e == nil || e.Fields == nil {
		return math.NaN(), false
	}
	raw, ok := e.Fields[field]
	if !ok {
		return math.NaN(), false
	}
	v := Coerce(raw)
	return v, !math.IsNaN(v)
}

// Batch is the ordered collection of entities binned against each other.
type Batch struct {
	// Columns is the source header when the batch was read from a table.
	Columns  []string `json:"columns,omitempty"`
	Entities []Entity `json:"entities"`
}

// New creates a batch from entities.
func New(entities ...Entity) *Batch {
	return &Batch{Entities: entities}
}

// Len returns the number of entities.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Entities)
}

// Has reports whether any entity carries the field, even with a missing value.
func (b *Batch) Has(field string) bool {
	if b == nil {
		return false
	}
	for i := range b.Entities {
		if _, ok := b.Entities[i].Fields[field]; ok {
			return true
		}
	}
	return false
}

// Column returns a fresh slice of the field's values in entity order, with
// NaN for missing or unparseable cells.
func (b *Batch) Column(field string) []float64 {
	out := make([]float64, b.Len())
	for i := range out {
		v, _ := b.Entities[i].Value(field)
		out[i] = v
	}
	return out
}

// Fields returns every field name present in the batch in order of first
// appearance.
func (b *Batch) Fields() []string {
	if b == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for i := range b.Entities {
		for _, name := range sortedKeys(b.Entities[i].Fields) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Indicators returns the present fields that carry the standardized ratio prefix.
func (b *Batch) Indicators() []string {
	var out []string
	for _, f := range b.Fields() {
		if strings.HasPrefix(f, IndicatorPrefix) {
			out = append(out, f)
		}
	}
	return out
}

// Coerce converts a raw cell to float64. Anything that is not a finite number
// becomes NaN.
func Coerce(raw any) float64 {
	var v float64
	switch x := raw.(type) {
	case nil:
		return math.NaN()
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint:
		v = float64(x)
	case uint64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		v = f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		v = f
	default:
		return math.NaN()
	}
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

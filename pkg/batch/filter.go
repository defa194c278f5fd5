package batch

import (
	"fmt"
	"strings"
)

// DefaultKeep lists the non-indicator fields retained by Preprocess.
var DefaultKeep = []string{ColEmployees, ColReportLength}

// Preprocess returns a copy of the batch that keeps only the named fields and
// fields starting with one of the prefixes. Identity values are always kept.
func (b *Batch) Preprocess(keep, prefixes []string) *Batch {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}
	retain := func(name string) bool {
		if keepSet[name] || isIdentity(name) {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				return true
			}
		}
		return false
	}

	out := &Batch{Entities: make([]Entity, len(b.Entities))}
	for _, c := range b.Columns {
		if retain(c) {
			out.Columns = append(out.Columns, c)
		}
	}
	for i, e := range b.Entities {
		fields := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			if retain(k) {
				fields[k] = v
			}
		}
		out.Entities[i] = Entity{TaxCode: e.TaxCode, Sector: e.Sector, Year: e.Year, Fields: fields}
	}
	return out
}

// Validate checks that identifier columns exist, every entity has a tax code,
// and at least one indicator column is present.
func (b *Batch) Validate() error {
	if b.Len() == 0 {
		return ErrEmptySource
	}

	if len(b.Columns) > 0 {
		have := make(map[string]bool, len(b.Columns))
		for _, c := range b.Columns {
			have[c] = true
		}
		var missing []string
		if !have[ColTaxCode] {
			missing = append(missing, ColTaxCode)
		}
		if !have[ColSector] && !have[ColSectorRaw] {
			missing = append(missing, ColSector)
		}
		if !have[ColYear] {
			missing = append(missing, ColYear)
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
		}
	}

	for i, e := range b.Entities {
		if e.TaxCode == "" {
			return fmt.Errorf("row %d: %w", i+1, ErrMissingIdentifier)
		}
	}

	if len(b.Indicators()) == 0 {
		return ErrNoIndicators
	}
	return nil
}

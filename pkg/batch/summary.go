package batch

import "sort"

// Summary is a descriptive overview of a batch.
type Summary struct {
	Rows       int          `json:"rows"`
	Fields     int          `json:"fields"`
	Indicators int          `json:"indicators"`
	Sectors    []FieldCount `json:"sectors"`
	Missing    []FieldCount `json:"missing"`
}

// FieldCount pairs a name with a count.
type FieldCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Describe counts rows, sector distribution and missing values per field.
// Only fields with at least one missing value appear in Missing.
func (b *Batch) Describe() Summary {
	fields := b.Fields()
	s := Summary{
		Rows:       b.Len(),
		Fields:     len(fields),
		Indicators: len(b.Indicators()),
	}

	sectors := make(map[string]int)
	for _, e := range b.Entities {
		sectors[e.Sector]++
	}
	s.Sectors = sortCounts(sectors)

	missing := make(map[string]int)
	for _, f := range fields {
		for i := range b.Entities {
			if _, ok := b.Entities[i].Value(f); !ok {
				missing[f]++
			}
		}
	}
	s.Missing = sortCounts(missing)
	return s
}

func sortCounts(m map[string]int) []FieldCount {
	out := make([]FieldCount, 0, len(m))
	for k, v := range m {
		if v > 0 {
			out = append(out, FieldCount{Name: k, Count: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

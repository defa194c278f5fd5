package scoring

import (
	"encoding/json"
	"fmt"
	"math"
)

// Label is an ordinal tier. T1 is the best, T8 the worst. The zero value
// means no label could be assigned.
type Label string

const (
	T1      Label = "T1"
	T2      Label = "T2"
	T3      Label = "T3"
	T4      Label = "T4"
	T5      Label = "T5"
	T6      Label = "T6"
	T7      Label = "T7"
	T8      Label = "T8"
	Missing Label = ""
)

// Tiers is the number of ordinal labels.
const Tiers = 8

// Labels lists every label from best to worst.
var Labels = []Label{T1, T2, T3, T4, T5, T6, T7, T8}

// LabelFromRank returns the label for rank 1..8, or Missing when out of range.
func LabelFromRank(rank int) Label {
	if rank < 1 || rank > Tiers {
		return Missing
	}
	return Labels[rank-1]
}

// Rank returns 1 for T1 through 8 for T8, and 0 for Missing or unknown labels.
func (l Label) Rank() int {
	for i, x := range Labels {
		if x == l {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether l is one of T1..T8.
func (l Label) Valid() bool { return l.Rank() != 0 }

// Numeric maps the label onto a higher-is-better scale, T1 → 8 and T8 → 1.
// Missing labels map to NaN.
func (l Label) Numeric() float64 {
	r := l.Rank()
	if r == 0 {
		return math.NaN()
	}
	return float64(Tiers + 1 - r)
}

// MarshalJSON encodes Missing as null.
func (l Label) MarshalJSON() ([]byte, error) {
	if l == Missing {
		return []byte("null"), nil
	}
	return json.Marshal(string(l))
}

// UnmarshalJSON accepts null or a valid label.
func (l *Label) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Missing
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != "" && !Label(s).Valid() {
		return fmt.Errorf("unknown label %q", s)
	}
	*l = Label(s)
	return nil
}

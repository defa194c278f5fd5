package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// Direction states whether larger values of an indicator are favorable.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// String returns the configuration tag for the direction.
func (d Direction) String() string {
	if d == LowerIsBetter {
		return "low_good"
	}
	return "high_good"
}

// Sign is +1 for higher-is-better and -1 for lower-is-better.
func (d Direction) Sign() float64 {
	if d == LowerIsBetter {
		return -1
	}
	return 1
}

// ParseDirection accepts "high_good" or "low_good".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high_good":
		return HigherIsBetter, nil
	case "low_good":
		return LowerIsBetter, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DirectionPolicy maps indicator names to their direction. Only indicators
// in the policy are binned individually.
type DirectionPolicy map[string]Direction

// Lookup returns the direction of an indicator.
func (p DirectionPolicy) Lookup(indicator string) (Direction, bool) {
	d, ok := p[indicator]
	return d, ok
}

// Sign returns the aggregation sign of an indicator. Indicators without a
// direction count as higher-is-better.
func (p DirectionPolicy) Sign(indicator string) float64 {
	if d, ok := p[indicator]; ok {
		return d.Sign()
	}
	return 1
}

// Indicators returns the policy's indicator names sorted.
func (p DirectionPolicy) Indicators() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

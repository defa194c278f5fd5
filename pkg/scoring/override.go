package scoring

import (
	"fmt"
	"math"

	"github.com/tierscore/tierscore/pkg/batch"
)

// Comparison is the operator of an override condition.
type Comparison string

const (
	OpLE Comparison = "le"
	OpLT Comparison = "lt"
	OpGE Comparison = "ge"
	OpGT Comparison = "gt"
)

func (c Comparison) eval(v, threshold float64) bool {
	switch c {
	case OpLE:
		return v <= threshold
	case OpLT:
		return v < threshold
	case OpGE:
		return v >= threshold
	case OpGT:
		return v > threshold
	}
	return false
}

// Condition compares one field of an entity against a constant. An empty
// Field refers to the indicator being binned.
type Condition struct {
	Field string     `yaml:"field,omitempty" json:"field,omitempty"`
	Op    Comparison `yaml:"op" json:"op"`
	Value float64    `yaml:"value" json:"value"`
}

// Rule assigns Label when every condition holds.
type Rule struct {
	When  []Condition `yaml:"when" json:"when"`
	Label Label       `yaml:"label" json:"label"`
}

// Override is an ordered rule list for one indicator. The first matching rule
// wins and the entity leaves the percentile population.
type Override struct {
	Indicator string `yaml:"indicator" json:"indicator"`
	Rules     []Rule `yaml:"rules" json:"rules"`
}

// Overrides is the full override table.
type Overrides []Override

// For returns the override for an indicator.
func (ov Overrides) For(indicator string) (Override, bool) {
	for _, o := range ov {
		if o.Indicator == indicator {
			return o, true
		}
	}
	return Override{}, false
}

// Validate checks operators and labels of every rule.
func (ov Overrides) Validate() error {
	for _, o := range ov {
		if o.Indicator == "" {
			return fmt.Errorf("%w: override without indicator", ErrInvalidOverride)
		}
		for i, r := range o.Rules {
			if !r.Label.Valid() {
				return fmt.Errorf("%w: %s rule %d: label %q", ErrInvalidOverride, o.Indicator, i+1, r.Label)
			}
			if len(r.When) == 0 {
				return fmt.Errorf("%w: %s rule %d has no conditions", ErrInvalidOverride, o.Indicator, i+1)
			}
			for _, c := range r.When {
				switch c.Op {
				case OpLE, OpLT, OpGE, OpGT:
				default:
					return fmt.Errorf("%w: %s rule %d: operator %q", ErrInvalidOverride, o.Indicator, i+1, c.Op)
				}
			}
		}
	}
	return nil
}

// auxiliary lists the fields other than the indicator that the rules read.
func (o Override) auxiliary() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range o.Rules {
		for _, c := range r.When {
			if c.Field == "" || c.Field == o.Indicator || seen[c.Field] {
				continue
			}
			seen[c.Field] = true
			out = append(out, c.Field)
		}
	}
	return out
}

// appliesTo reports whether every auxiliary field exists in the batch. When
// one is absent the indicator is binned generically.
func (o Override) appliesTo(b *batch.Batch) bool {
	for _, f := range o.auxiliary() {
		if !b.Has(f) {
			return false
		}
	}
	return true
}

// match evaluates the rules for one entity. A missing auxiliary value fails
// its condition.
func (o Override) match(e *batch.Entity, self float64) (Label, bool) {
	for _, r := range o.Rules {
		ok := true
		for _, c := range r.When {
			v := self
			if c.Field != "" && c.Field != o.Indicator {
				v, _ = e.Value(c.Field)
			}
			if math.IsNaN(v) || !c.Op.eval(v, c.Value) {
				ok = false
				break
			}
		}
		if ok {
			return r.Label, true
		}
	}
	return Missing, false
}

// Field names used by the built-in overrides.
const (
	FieldNetDebt = "STD_RTD61"
	FieldEBITDA  = "STD_RTD60"
)

// DefaultOverrides returns the built-in rule table for the zero-floor ratios
// and the two debt/EBITDA ratios.
func DefaultOverrides() Overrides {
	zeroFloor := func(ind string) Override {
		return Override{Indicator: ind, Rules: []Rule{
			{When: []Condition{{Op: OpLE, Value: 0}}, Label: T1},
		}}
	}
	return Overrides{
		zeroFloor("STD_RTD97"),
		zeroFloor("STD_RTD77"),
		zeroFloor("STD_RTD26"),
		{Indicator: "STD_RTD96", Rules: []Rule{
			{When: []Condition{{Field: FieldNetDebt, Op: OpLE, Value: 0}}, Label: T8},
			{When: []Condition{
				{Field: FieldNetDebt, Op: OpGT, Value: 0},
				{Field: FieldEBITDA, Op: OpLE, Value: 0},
			}, Label: T1},
		}},
		{Indicator: "STD_RTD148", Rules: []Rule{
			{When: []Condition{{Field: FieldEBITDA, Op: OpLE, Value: 0}}, Label: T1},
		}},
	}
}

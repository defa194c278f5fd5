package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tierscore/tierscore/pkg/batch"
)

// Category is a named, ordered group of indicators scored together.
type Category struct {
	Name       string   `yaml:"name" json:"name"`
	Indicators []string `yaml:"indicators" json:"indicators"`
}

// Options tune a scoring engine.
type Options struct {
	Cuts       Cuts
	GroupCuts  Cuts
	Threshold  float64
	BaseWeight float64
	// Correlate derives a correlation matrix from the batch for categories
	// that were not given one.
	Correlate   bool
	Mode        AggregationMode
	Diagnose    bool
	Overrides   Overrides
	Concurrency int
}

// DefaultOptions mirror the production settings.
func DefaultOptions() Options {
	return Options{
		Cuts:        DefaultCuts,
		GroupCuts:   DefaultCuts,
		Threshold:   DefaultCorrelationThreshold,
		BaseWeight:  1.0,
		Correlate:   true,
		Mode:        AggregateRaw,
		Overrides:   DefaultOverrides(),
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// Option modifies Options.
type Option func(*Options)

// WithCuts sets the quantile cuts used for indicator binning.
func WithCuts(c Cuts) Option { return func(o *Options) { o.Cuts = c } }

// WithGroupCuts sets the quantile cuts used for category score binning.
func WithGroupCuts(c Cuts) Option { return func(o *Options) { o.GroupCuts = c } }

// WithThreshold sets the absolute correlation above which indicators cluster.
func WithThreshold(t float64) Option { return func(o *Options) { o.Threshold = t } }

// WithBaseWeight sets the weight shared by the members of one cluster.
func WithBaseWeight(w float64) Option { return func(o *Options) { o.BaseWeight = w } }

// WithCorrelation turns correlation weighting on or off.
func WithCorrelation(on bool) Option { return func(o *Options) { o.Correlate = on } }

// WithAggregation selects raw-value or label aggregation.
func WithAggregation(m AggregationMode) Option { return func(o *Options) { o.Mode = m } }

// WithDiagnostics enables the Shapiro-Wilk normality diagnostic.
func WithDiagnostics(on bool) Option { return func(o *Options) { o.Diagnose = on } }

// WithOverrides replaces the special-value override rules.
func WithOverrides(ov Overrides) Option { return func(o *Options) { o.Overrides = ov } }

// WithConcurrency caps the number of indicators and categories scored at once.
func WithConcurrency(n int) Option { return func(o *Options) { o.Concurrency = n } }

// Engine runs the full pipeline: indicator binning, correlation weighting,
// aggregation and group binning.
type Engine struct {
	categories []Category
	policy     DirectionPolicy
	opts       Options
	log        zerolog.Logger
}

// NewEngine validates the configuration and creates an engine.
func NewEngine(categories []Category, policy DirectionPolicy, opts ...Option) (*Engine, error) {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if err := o.Cuts.Validate(); err != nil {
		return nil, fmt.Errorf("indicator cuts: %w", err)
	}
	if err := o.GroupCuts.Validate(); err != nil {
		return nil, fmt.Errorf("group cuts: %w", err)
	}
	if o.Threshold < 0 || o.Threshold > 1 || math.IsNaN(o.Threshold) {
		return nil, ErrInvalidThreshold
	}
	if o.BaseWeight < 0 || math.IsNaN(o.BaseWeight) || math.IsInf(o.BaseWeight, 0) {
		return nil, fmt.Errorf("%w: base weight %v", ErrInvalidWeight, o.BaseWeight)
	}
	if _, err := ParseAggregationMode(string(o.Mode)); err != nil {
		return nil, err
	}
	if err := o.Overrides.Validate(); err != nil {
		return nil, err
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}

	if err := validateCategories(categories); err != nil {
		return nil, err
	}

	return &Engine{
		categories: categories,
		policy:     policy,
		opts:       o,
		log:        zerolog.Nop(),
	}, nil
}

// SetLogger attaches a logger for per-stage debug output.
func (e *Engine) SetLogger(l zerolog.Logger) { e.log = l }

// Categories returns the configured categories.
func (e *Engine) Categories() []Category { return e.categories }

// Policy returns the direction policy.
func (e *Engine) Policy() DirectionPolicy { return e.policy }

// Input is one scoring request.
type Input struct {
	Batch *batch.Batch
	// Weights pins indicator weights and takes precedence over clustering.
	Weights map[string]float64
	// Matrices holds a correlation matrix per category, ordered like the
	// category's members that are present in the batch.
	Matrices map[string][][]float64
}

// Run scores the batch. It either returns a complete result or an error;
// cancellation of ctx yields ctx.Err().
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	if in.Batch == nil {
		return nil, errors.New("batch is nil")
	}
	if err := ValidateWeights(in.Weights); err != nil {
		return nil, err
	}
	for name := range in.Matrices {
		if !e.hasCategory(name) {
			return nil, fmt.Errorf("correlation matrix for %q: %w", name, ErrUnknownCategory)
		}
	}

	b := in.Batch
	indicators := e.indicatorOrder(b)
	e.log.Debug().Int("entities", b.Len()).Int("indicators", len(indicators)).Msg("scoring batch")

	binner := &IndicatorBinner{Cuts: e.opts.Cuts, Overrides: e.opts.Overrides, Diagnose: e.opts.Diagnose}
	indResults := make([]IndicatorResult, len(indicators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, ind := range indicators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dir, _ := e.policy.Lookup(ind)
			indResults[i] = binner.Bin(b, ind, dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	labelsByIndicator := make(map[string][]Label, len(indResults))
	for _, r := range indResults {
		labelsByIndicator[r.Indicator] = r.Labels
	}

	catResults := make([]CategoryResult, len(e.categories))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, cat := range e.categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cr, err := e.scoreCategory(b, cat, in, labelsByIndicator)
			if err != nil {
				return fmt.Errorf("category %s: %w", cat.Name, err)
			}
			catResults[i] = cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Entities:   make([]EntityKey, b.Len()),
		Indicators: indResults,
		Categories: catResults,
	}
	for i, ent := range b.Entities {
		res.Entities[i] = EntityKey{TaxCode: ent.TaxCode, Sector: ent.Sector, Year: ent.Year}
	}
	return res, nil
}

func (e *Engine) scoreCategory(b *batch.Batch, cat Category, in Input, labels map[string][]Label) (CategoryResult, error) {
	cr := CategoryResult{Name: cat.Name}
	var present []string
	for _, ind := range cat.Indicators {
		if !b.Has(ind) {
			continue
		}
		present = append(present, ind)
		if _, labelled := labels[ind]; e.opts.Mode == AggregateLabels && !labelled {
			cr.Excluded = append(cr.Excluded, ind)
			continue
		}
		cr.Members = append(cr.Members, ind)
	}

	if len(cr.Members) == 0 {
		if m := in.Matrices[cat.Name]; len(m) > 0 && len(present) == 0 {
			return cr, fmt.Errorf("%w: %d rows for 0 present indicators", ErrDimensionMismatch, len(m))
		}
		cr.Scores = nanSlice(b.Len())
		cr.Labels = make([]Label, b.Len())
		e.log.Debug().Str("category", cat.Name).Msg("no members present")
		return cr, nil
	}

	weights := make(map[string]float64, len(cr.Members))
	for _, m := range cr.Members {
		weights[m] = e.opts.BaseWeight
	}

	matrix, supplied := in.Matrices[cat.Name]
	if supplied && len(cr.Excluded) > 0 && len(matrix) == len(present) {
		matrix = subMatrix(matrix, present, cr.Members)
	}
	if !supplied && e.opts.Correlate && len(cr.Members) > 1 {
		matrix = CorrelationMatrix(b, cr.Members)
	}
	if matrix != nil {
		cl, err := Clusterer{Threshold: e.opts.Threshold, BaseWeight: e.opts.BaseWeight}.Cluster(cr.Members, matrix)
		if err != nil {
			return cr, err
		}
		for k, w := range cl.Weights {
			weights[k] = w
		}
		cr.Clusters = cl.Clusters
	}
	for _, m := range cr.Members {
		if w, ok := in.Weights[m]; ok {
			weights[m] = w
		}
	}
	cr.Weights = weights

	members := make([]Member, 0, len(cr.Members))
	for _, ind := range cr.Members {
		m := Member{Indicator: ind, Weight: weights[ind]}
		switch e.opts.Mode {
		case AggregateLabels:
			lbls := labels[ind]
			m.Values = make([]float64, len(lbls))
			for i, l := range lbls {
				m.Values[i] = l.Numeric()
			}
			m.Sign = 1
		default:
			m.Values = b.Column(ind)
			m.Sign = e.policy.Sign(ind)
		}
		members = append(members, m)
	}

	cr.Scores = Aggregate(members, b.Len())
	cr.Labels = (&GroupBinner{Cuts: e.opts.GroupCuts}).Bin(cr.Scores)

	e.log.Debug().
		Str("category", cat.Name).
		Int("members", len(cr.Members)).
		Int("clusters", len(cr.Clusters)).
		Msg("category scored")
	return cr, nil
}

// indicatorOrder lists the policy indicators present in the batch: category
// members first in category order, then the rest sorted.
func (e *Engine) indicatorOrder(b *batch.Batch) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ind string) {
		if seen[ind] {
			return
		}
		if _, ok := e.policy.Lookup(ind); !ok || !b.Has(ind) {
			return
		}
		seen[ind] = true
		out = append(out, ind)
	}
	for _, c := range e.categories {
		for _, ind := range c.Indicators {
			add(ind)
		}
	}
	for _, ind := range e.policy.Indicators() {
		add(ind)
	}
	return out
}

func validateCategories(categories []Category) error {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.Name == "" {
			return errors.New("category without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

func (e *Engine) hasCategory(name string) bool {
	for _, c := range e.categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// subMatrix keeps the rows and columns of corr, ordered like all, that
// belong to keep. keep must be a subsequence of all.
func subMatrix(corr [][]float64, all, keep []string) [][]float64 {
	idx := make([]int, 0, len(keep))
	for i, k := 0, 0; i < len(all) && k < len(keep); i++ {
		if all[i] == keep[k] {
			idx = append(idx, i)
			k++
		}
	}
	out := make([][]float64, len(idx))
	for r, i := range idx {
		if len(corr[i]) != len(all) {
			// Leave the shape check to the clusterer.
			return corr
		}
		out[r] = make([]float64, len(idx))
		for c, j := range idx {
			out[r][c] = corr[i][j]
		}
	}
	return out
}

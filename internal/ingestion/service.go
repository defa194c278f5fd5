package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tierscore/tierscore/internal/runs"
	"github.com/tierscore/tierscore/pkg/scoring"
	"github.com/tierscore/tierscore/pkg/surface"
)

// RunStore records run lifecycle. *runs.Service implements it.
type RunStore interface {
	CreateRun(ctx context.Context, source string, entityCount, categoryCount int) (*runs.Run, error)
	MarkRunning(ctx context.Context, id, inputRef string) error
	MarkCompleted(ctx context.Context, id, resultRef string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	SaveSummaries(ctx context.Context, runID string, summaries []runs.CategorySummary) error
}

// Scorer abstracts the scoring engine so the pipeline can be tested in
// isolation. *scoring.Engine implements it.
type Scorer interface {
	Run(ctx context.Context, in scoring.Input) (*scoring.Result, error)
}

// Request describes one batch to score and archive.
type Request struct {
	// Source labels where the batch came from, e.g. "api" or a file name.
	Source string
	Input  scoring.Input
}

// Outcome is a completed run.
type Outcome struct {
	RunID     string
	ResultRef string
	Result    *scoring.Result
}

// Metrics counts runs by final status and observes pipeline latency.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tierscore",
			Name:      "runs_total",
			Help:      "Persisted scoring runs by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tierscore",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the persisted scoring pipeline.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration)
	}
	return m
}

// Service orchestrates the persisted scoring pipeline.
type Service struct {
	runs    RunStore
	storage StorageClient
	scorer  Scorer
	metrics *Metrics
	log     zerolog.Logger
}

// NewService creates a new ingestion Service. metrics may be nil.
func NewService(store RunStore, storage StorageClient, scorer Scorer, metrics *Metrics, logger zerolog.Logger) *Service {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		runs:    store,
		storage: storage,
		scorer:  scorer,
		metrics: metrics,
		log:     logger.With().Str("component", "ingestion").Logger(),
	}
}

// Process records a run, archives the input batch, scores it, archives the
// JSON report and stores per-category summaries. A failure after the run
// record exists marks the run FAILED.
func (s *Service) Process(ctx context.Context, req Request) (out *Outcome, err error) {
	if req.Input.Batch == nil {
		return nil, fmt.Errorf("process: no batch")
	}
	start := time.Now()

	categories := 0
	if c, ok := s.scorer.(interface{ Categories() []scoring.Category }); ok {
		categories = len(c.Categories())
	}
	run, err := s.runs.CreateRun(ctx, req.Source, req.Input.Batch.Len(), categories)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	logger := s.log.With().Str("run_id", run.ID).Logger()

	defer func() {
		s.metrics.duration.Observe(time.Since(start).Seconds())
		if err == nil {
			s.metrics.runs.WithLabelValues(runs.StatusCompleted).Inc()
			return
		}
		s.metrics.runs.WithLabelValues(runs.StatusFailed).Inc()
		// The request context may already be cancelled.
		if updateErr := s.runs.MarkFailed(context.WithoutCancel(ctx), run.ID, err.Error()); updateErr != nil {
			logger.Error().Err(updateErr).Msg("failed to mark run failed")
		}
	}()

	// 1. Archive the input
	batchData, err := json.Marshal(req.Input.Batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	if err = s.storage.Put(ctx, run.ID, KindBatch, batchData); err != nil {
		return nil, fmt.Errorf("put batch blob: %w", err)
	}
	if err = s.runs.MarkRunning(ctx, run.ID, BlobRef(run.ID, KindBatch)); err != nil {
		return nil, fmt.Errorf("update status to running: %w", err)
	}

	// 2. Score
	result, err := s.scorer.Run(ctx, req.Input)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	// 3. Archive the report and summaries
	report, err := json.Marshal(surface.BuildReport(result, true))
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if err = s.storage.Put(ctx, run.ID, KindResult, report); err != nil {
		return nil, fmt.Errorf("put result blob: %w", err)
	}

	summaries, err := toRunSummaries(run.ID, surface.Summarize(result))
	if err != nil {
		return nil, err
	}
	if err = s.runs.SaveSummaries(ctx, run.ID, summaries); err != nil {
		return nil, fmt.Errorf("save summaries: %w", err)
	}

	// 4. Finalize
	resultRef := BlobRef(run.ID, KindResult)
	if err = s.runs.MarkCompleted(ctx, run.ID, resultRef); err != nil {
		return nil, fmt.Errorf("finalize run: %w", err)
	}

	logger.Info().
		Str("source", req.Source).
		Int("entities", len(result.Entities)).
		Int("categories", len(result.Categories)).
		Dur("elapsed", time.Since(start)).
		Msg("run completed")
	return &Outcome{RunID: run.ID, ResultRef: resultRef, Result: result}, nil
}

// LoadReport returns the archived JSON report of a run.
func (s *Service) LoadReport(ctx context.Context, runID string) ([]byte, error) {
	data, err := s.storage.Get(ctx, runID, KindResult)
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", runID, err)
	}
	return data, nil
}

func toRunSummaries(runID string, sums []surface.CategorySummary) ([]runs.CategorySummary, error) {
	out := make([]runs.CategorySummary, 0, len(sums))
	for _, cs := range sums {
		dist, err := json.Marshal(cs.Distribution)
		if err != nil {
			return nil, fmt.Errorf("marshal distribution: %w", err)
		}
		weights, err := json.Marshal(cs.Weights)
		if err != nil {
			return nil, fmt.Errorf("marshal weights: %w", err)
		}
		out = append(out, runs.CategorySummary{
			RunID:        runID,
			Category:     cs.Name,
			Members:      len(cs.Members),
			Scored:       cs.Scored,
			MeanScore:    cs.MeanScore,
			Distribution: dist,
			Weights:      weights,
		})
	}
	return out, nil
}

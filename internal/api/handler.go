// Package api implements the tierscore HTTP API: batch scoring, the
// group-processing endpoint and read access to persisted runs.
package api

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tierscore/tierscore/internal/ingestion"
	"github.com/tierscore/tierscore/internal/runs"
	"github.com/tierscore/tierscore/pkg/scoring"
)

// RunReader is the read side of the run store. *runs.Service implements it.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*runs.Run, error)
	ListRuns(ctx context.Context, status string, limit int) ([]runs.Run, error)
	ListSummaries(ctx context.Context, runID string) ([]runs.CategorySummary, error)
}

// Pinger reports backing store health. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps wires a Handler. Engine is required; Pipeline, Runs and DB are nil
// when the service runs without persistence.
type Deps struct {
	Engine   *scoring.Engine
	Pipeline *ingestion.Service
	Runs     RunReader
	DB       Pinger
	Cache    *RunCache
	Registry *prometheus.Registry
	Logger   zerolog.Logger
	// APIKey guards every endpoint except /health and /metrics when set.
	APIKey string
}

// Handler is the top-level API handler.
type Handler struct {
	engine   *scoring.Engine
	pipeline *ingestion.Service
	runs     RunReader
	db       Pinger
	cache    *RunCache
	registry *prometheus.Registry
	metrics  *httpMetrics
	validate *validator.Validate
	log      zerolog.Logger
	apiKey   string
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Cache == nil {
		d.Cache = NewRunCache(0)
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	return &Handler{
		engine:   d.Engine,
		pipeline: d.Pipeline,
		runs:     d.Runs,
		db:       d.DB,
		cache:    d.Cache,
		registry: d.Registry,
		metrics:  newHTTPMetrics(d.Registry),
		validate: newValidator(),
		log:      d.Logger.With().Str("component", "api").Logger(),
		apiKey:   d.APIKey,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(h.apiKey))
		r.Post("/process-groups", h.handleProcessGroups)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/score", h.handleScore)
			r.Get("/categories", h.handleCategories)
			r.Get("/runs", h.handleListRuns)
			r.Get("/runs/{runID}", h.handleGetRun)
			r.Get("/runs/{runID}/result", h.handleGetRunResult)
		})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, resp)
			return
		}
		resp["database"] = "ok"
	}
	render.JSON(w, r, resp)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"categories": h.engine.Categories(),
		"directions": h.engine.Policy(),
	})
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

// writeValidationError lists each failing field with its failed rule.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Namespace()] = fe.Tag()
	}
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: "validation failed", Details: details})
}

// statusFor maps scoring and input errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, scoring.ErrDimensionMismatch),
		errors.Is(err, scoring.ErrInvalidWeight),
		errors.Is(err, scoring.ErrUnknownDirection),
		errors.Is(err, scoring.ErrUnknownCategory),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, runs.ErrNotFound), errors.Is(err, ingestion.ErrBlobNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

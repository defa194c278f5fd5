package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/render"

	"github.com/tierscore/tierscore/internal/ingestion"
	"github.com/tierscore/tierscore/pkg/batch"
	"github.com/tierscore/tierscore/pkg/scoring"
	"github.com/tierscore/tierscore/pkg/surface"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 32 << 20

var errBadRequest = errors.New("bad request")

// flexString accepts a JSON string or number, as identifiers arrive both ways.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// indicatorValue is one {indicator, value} pair of a group. Value is kept as
// decoded; null, non-numeric strings and other junk become missing cells.
type indicatorValue struct {
	Indicator string `json:"indicator" validate:"required"`
	Value     any    `json:"value"`
}

// companyInput is one entity of a request body.
type companyInput struct {
	TaxCode   flexString `json:"taxcode" validate:"required"`
	SectorRaw flexString `json:"sector_unique_id_raw"`
	Sector    flexString `json:"sector_unique_id"`
	Year      int        `json:"yearreport" validate:"gte=0"`
	// Scores groups indicator values by the client's group names. Groups only
	// carry values; the configured categories decide what is scored.
	Scores map[string][]indicatorValue `json:"scores" validate:"omitempty,dive,dive"`
	// Fields holds ungrouped indicator values.
	Fields map[string]any `json:"fields"`
}

// batchRequest is the JSON body of POST /process-groups and POST /api/v1/score.
type batchRequest struct {
	Weights             map[string]float64     `json:"weights" validate:"omitempty,dive,gte=0"`
	CorrelationMatrices map[string][][]float64 `json:"correlation_matrices"`
	Companies           []companyInput         `json:"companies" validate:"required,min=1,dive"`
}

func (h *Handler) decodeBatch(w http.ResponseWriter, r *http.Request) (*batchRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req batchRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}
	if err := h.validate.Struct(&req); err != nil {
		writeValidationError(w, r, err)
		return nil, false
	}
	return &req, true
}

// toBatch flattens grouped and ungrouped values into a batch. A value given
// twice for the same company must agree.
func (req *batchRequest) toBatch() (*batch.Batch, error) {
	b := &batch.Batch{Entities: make([]batch.Entity, len(req.Companies))}
	for i, c := range req.Companies {
		sector := string(c.Sector)
		if sector == "" {
			sector = string(c.SectorRaw)
		}
		fields := make(map[string]any)
		set := func(ind string, raw any) error {
			if prev, ok := fields[ind]; ok && !sameValue(prev, raw) {
				return fmt.Errorf("%w: company %s has conflicting values for %s", errBadRequest, c.TaxCode, ind)
			}
			fields[ind] = raw
			return nil
		}
		for _, g := range sortedGroupNames(c.Scores) {
			for _, iv := range c.Scores[g] {
				if err := set(iv.Indicator, iv.Value); err != nil {
					return nil, err
				}
			}
		}
		for ind, v := range c.Fields {
			if err := set(ind, v); err != nil {
				return nil, err
			}
		}
		b.Entities[i] = batch.Entity{TaxCode: string(c.TaxCode), Sector: sector, Year: c.Year, Fields: fields}
	}
	return b, nil
}

// handleProcessGroups scores the configured categories over values supplied
// in client groups and returns only the category columns.
func (h *Handler) handleProcessGroups(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	b, err := req.toBatch()
	if err != nil {
		writeError(w, r, statusFor(err), err.Error())
		return
	}
	result, err := h.engine.Run(r.Context(), scoring.Input{
		Batch:    b,
		Weights:  req.Weights,
		Matrices: req.CorrelationMatrices,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("process-groups failed")
		writeError(w, r, statusFor(err), err.Error())
		return
	}

	render.JSON(w, r, map[string]any{"results": result.Records(false)})
}

// scoreResponse is the body returned by POST /api/v1/score.
type scoreResponse struct {
	RunID string `json:"run_id,omitempty"`
	surface.Report
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	persist, _ := strconv.ParseBool(r.URL.Query().Get("persist"))
	if persist && h.pipeline == nil {
		writeError(w, r, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	req, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	b, err := req.toBatch()
	if err != nil {
		writeError(w, r, statusFor(err), err.Error())
		return
	}
	in := scoring.Input{Batch: b, Weights: req.Weights, Matrices: req.CorrelationMatrices}

	var (
		result *scoring.Result
		runID  string
	)
	if persist {
		out, perr := h.pipeline.Process(r.Context(), ingestion.Request{Source: "api", Input: in})
		if perr != nil {
			h.log.Error().Err(perr).Msg("persisted scoring failed")
			writeError(w, r, statusFor(perr), perr.Error())
			return
		}
		result, runID = out.Result, out.RunID
	} else {
		result, err = h.engine.Run(r.Context(), in)
		if err != nil {
			writeError(w, r, statusFor(err), err.Error())
			return
		}
	}

	render.JSON(w, r, scoreResponse{RunID: runID, Report: surface.BuildReport(result, true)})
}

func sortedGroupNames(m map[string][]indicatorValue) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// sameValue compares two raw cells after coercion; two missing cells agree.
func sameValue(a, b any) bool {
	af, bf := batch.Coerce(a), batch.Coerce(b)
	if math.IsNaN(af) || math.IsNaN(bf) {
		return math.IsNaN(af) && math.IsNaN(bf)
	}
	return af == bf
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/chartmeta/internal/domain/chart"
	"github.com/okian/chartmeta/internal/domain/scoring"
	"github.com/okian/chartmeta/internal/domain/types"
)

type scoreRequest struct {
	Chart string `json:"chart"`
	Level int    `json:"level"`
	Fever bool   `json:"fever"`
	Name  string `json:"name,omitempty"`
	Diff  string `json:"diff,omitempty"`
}

func (r scoreRequest) validate() error {
	if strings.TrimSpace(r.Chart) == "" {
		return errors.New("missing chart")
	}
	return nil
}

type statsResponse struct {
	Notes       int64          `json:"notes"`
	Midpoints   int64          `json:"midpoints"`
	TotalWeight float64        `json:"total_weight"`
	WeightExact string         `json:"total_weight_exact"`
	Criticals   int            `json:"criticals"`
	Flicks      int            `json:"flicks"`
	Kinds       map[string]int `json:"kinds"`
}

type scoreResponse struct {
	Meta    types.ScoreMeta    `json:"meta"`
	Columns map[string]float64 `json:"columns"`
	Stats   statsResponse      `json:"stats"`
	Skipped int                `json:"skipped_lines"`
}

func newStatsResponse(st scoring.Stats) statsResponse {
	out := statsResponse{
		Notes:     st.Notes,
		Midpoints: st.Midpoints,
		Criticals: st.Criticals,
		Flicks:    st.Flicks,
		Kinds:     make(map[string]int, len(st.Kinds)),
	}
	if st.TotalWeight != nil {
		out.TotalWeight, _ = st.TotalWeight.Float64()
		out.WeightExact = st.TotalWeight.RatString()
	}
	for k, n := range st.Kinds {
		out.Kinds[k.String()] = n
	}
	return out
}

// handleScore handles POST /v1/score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, s.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	res, err := s.deps.Score(r.Context(), scoring.Input{
		Name:  req.Name,
		Diff:  req.Diff,
		Chart: strings.NewReader(req.Chart),
		Level: req.Level,
		Fever: req.Fever,
	})
	if err != nil {
		status, code := scoreErrorStatus(err)
		writeError(w, status, code, err)
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{
		Meta:    res.Row.Meta,
		Columns: res.Row.Meta.Fields(),
		Stats:   newStatsResponse(res.Stats),
		Skipped: res.Skipped,
	})
}

func scoreErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chart.ErrMissingTempoSlot):
		return http.StatusUnprocessableEntity, "missing_tempo_slot"
	case errors.Is(err, chart.ErrMalformedList):
		return http.StatusUnprocessableEntity, "malformed_list"
	case errors.Is(err, scoring.ErrNoNotes):
		return http.StatusUnprocessableEntity, "no_notes"
	case errors.Is(err, scoring.ErrNoTempo):
		return http.StatusUnprocessableEntity, "no_tempo"
	case errors.Is(err, context.Canceled), errors.Is(err, scoring.ErrCanceled):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decode reads a JSON body of at most limit bytes into v.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

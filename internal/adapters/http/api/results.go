package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/chartmeta/internal/adapters/repository"
	"github.com/okian/chartmeta/internal/domain/types"
)

const defaultResultsLimit = 100

type resultsResponse struct {
	Rows  []types.Row `json:"rows"`
	Count int         `json:"count"`
}

// handleResults handles GET /v1/results?song=&diff=&limit=.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.Filter{Song: q.Get("song"), Diff: q.Get("diff"), Limit: defaultResultsLimit}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", fmt.Errorf("%w: limit %q", ErrBadRequest, v))
			return
		}
		f.Limit = n
	}

	rows, err := s.deps.Results(r.Context(), f)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidLimit) {
			writeError(w, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if rows == nil {
		rows = []types.Row{}
	}
	writeJSON(w, http.StatusOK, resultsResponse{Rows: rows, Count: len(rows)})
}

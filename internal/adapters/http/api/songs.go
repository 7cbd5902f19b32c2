package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/mux"

	"github.com/okian/chartmeta/internal/adapters/chartfs"
	"github.com/okian/chartmeta/internal/adapters/mq/queue"
)

type songRequest struct {
	Levels map[string]int `json:"levels"`
}

func (r songRequest) validate() error {
	if len(r.Levels) == 0 {
		return errors.New("missing levels")
	}
	for diff := range r.Levels {
		if !slices.Contains(chartfs.Difficulties, diff) {
			return fmt.Errorf("%q: %w", diff, ErrUnknownDifficulty)
		}
	}
	return nil
}

// handleSubmitSong handles POST /v1/songs/{song}.
func (s *Server) handleSubmitSong(w http.ResponseWriter, r *http.Request) {
	song := mux.Vars(r)["song"]

	var req songRequest
	if err := decode(w, r, s.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	sub, err := s.deps.SubmitSong(r.Context(), song, req.Levels)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, sub)
	case errors.Is(err, chartfs.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %w", ErrBackpressure, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

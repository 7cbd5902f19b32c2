package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrBackpressure      = errors.New("backpressure")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
)

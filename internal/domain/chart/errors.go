package chart

import "errors"

// Sentinel error kinds for chart reading and expansion.
var (
	ErrMissingTempoSlot = errors.New("undefined tempo slot")
	ErrMalformedList    = errors.New("malformed packed list")
	ErrRead             = errors.New("read chart failed")
)

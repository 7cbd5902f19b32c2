package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrClosed       = errors.New("result store closed")
	ErrInvalidLimit = errors.New("invalid result limit")
)

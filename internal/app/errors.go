package service

import "errors"

var (
	ErrNotStarted = errors.New("service not started")
	ErrNoLevels   = errors.New("no difficulty levels given")
)

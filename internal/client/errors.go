package client

import "errors"

var (
	ErrStatus  = errors.New("unexpected status")
	ErrTimeout = errors.New("timed out waiting for rows")
)

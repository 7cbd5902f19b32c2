package chartfs

import "errors"

// Sentinel errors for chart loading.
var (
	ErrChartNotFound = errors.New("chart not found")
	ErrInvalidName   = errors.New("invalid song or difficulty name")
	ErrChartTooLarge = errors.New("chart exceeds size limit")
)

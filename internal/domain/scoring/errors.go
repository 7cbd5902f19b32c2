package scoring

import "errors"

// Sentinel error kinds for scoring.
var (
	ErrNoNotes  = errors.New("chart has no scorable notes")
	ErrNoTempo  = errors.New("skill timing before any bpm marker")
	ErrCanceled = errors.New("scoring canceled")
)

package model

import (
	"fmt"
	"math/big"
)

// eighthsPerMeasure is the midpoint grid resolution for held long notes.
const eighthsPerMeasure = 8

// Position locates an element in a chart: a measure index plus an exact
// offset within the measure in [0, 1).
type Position struct {
	Measure int
	Beat    *big.Rat
}

// NewPosition returns the position at measure + num/den.
func NewPosition(measure int, num, den int64) Position {
	return Position{Measure: measure, Beat: big.NewRat(num, den)}
}

// beat returns the offset, treating a nil offset as zero.
func (p Position) beat() *big.Rat {
	if p.Beat == nil {
		return new(big.Rat)
	}
	return p.Beat
}

// Time returns measure + beat as a fresh rational.
func (p Position) Time() *big.Rat {
	t := new(big.Rat).SetInt64(int64(p.Measure))
	return t.Add(t, p.beat())
}

// Cmp compares two positions by measure, then by beat.
func (p Position) Cmp(o Position) int {
	switch {
	case p.Measure < o.Measure:
		return -1
	case p.Measure > o.Measure:
		return 1
	}
	return p.beat().Cmp(o.beat())
}

// Equal reports whether both positions denote the same chart time.
func (p Position) Equal(o Position) bool { return p.Cmp(o) == 0 }

// OnEighthGrid reports whether the beat lies on a multiple of 1/8.
func (p Position) OnEighthGrid() bool {
	den := p.beat().Denom()
	return new(big.Int).Mod(big.NewInt(eighthsPerMeasure), den).Sign() == 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d+%s", p.Measure, p.beat().RatString())
}

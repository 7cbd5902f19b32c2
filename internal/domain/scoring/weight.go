package scoring

import (
	"math/big"

	"github.com/okian/chartmeta/internal/domain/model"
	"github.com/okian/chartmeta/internal/domain/timeline"
)

const eighths = 8

// midpointWeight is the credit for each eighth-measure grid point passed
// while a long note is held.
var midpointWeight = big.NewRat(1, 10)

// Stats summarizes the scorable content of a timeline.
type Stats struct {
	Notes       int64 // concrete notes plus midpoints
	Midpoints   int64
	TotalWeight *big.Rat
	Kinds       map[model.Kind]int
	Criticals   int
	Flicks      int
}

// CountNotes returns the number of scoring units in tl: one per concrete
// note plus one per synthesized long-note midpoint.
func CountNotes(tl *timeline.Timeline) int64 {
	var n int64
	walkNotes(tl, func(_ model.Event, mids int64) {
		n += 1 + mids
	})
	return n
}

// TotalWeight returns the summed weight of every scoring unit in tl.
func TotalWeight(tl *timeline.Timeline) *big.Rat {
	total := new(big.Rat)
	walkNotes(tl, func(note model.Event, mids int64) {
		total.Add(total, note.Weight())
		total.Add(total, new(big.Rat).Mul(midpointWeight, big.NewRat(mids, 1)))
	})
	return total
}

// Compute gathers Stats in a single pass.
func Compute(tl *timeline.Timeline) Stats {
	st := Stats{TotalWeight: new(big.Rat), Kinds: make(map[model.Kind]int)}
	for i := 0; i < tl.Len(); i++ {
		st.Kinds[tl.At(i).Kind]++
	}
	walkNotes(tl, func(note model.Event, mids int64) {
		st.Notes += 1 + mids
		st.Midpoints += mids
		st.TotalWeight.Add(st.TotalWeight, note.Weight())
		st.TotalWeight.Add(st.TotalWeight, new(big.Rat).Mul(midpointWeight, big.NewRat(mids, 1)))
		if note.Critical {
			st.Criticals++
		}
		if note.Flick {
			st.Flicks++
		}
	})
	return st
}

// walkNotes visits each concrete note with the number of midpoints credited
// between it and the previous concrete note, summed over open chains.
func walkNotes(tl *timeline.Timeline, fn func(note model.Event, mids int64)) {
	var open [model.MaxChains]*big.Rat
	var prev model.Event
	for i := 0; i < tl.Len(); i++ {
		note := tl.At(i)
		if note.IsControl() {
			continue
		}

		var mids int64
		for _, start := range open {
			if start != nil {
				mids += midpointsBetween(prev.Pos, note.Pos, start)
			}
		}
		fn(note, mids)

		switch note.Kind {
		case model.KindLongStart:
			open[note.Chain] = note.Pos.Time()
		case model.KindLongEnd:
			open[note.Chain] = nil
		}
		prev = note
	}
}

// midpointsBetween counts the grid points strictly between prev and cur,
// plus prev itself when it sits on the grid and is neither the chain start
// nor simultaneous with cur.
func midpointsBetween(prev, cur model.Position, chainStart *big.Rat) int64 {
	p, c := prev.Time(), cur.Time()
	mids := eighthsBetween(p, c)
	if prev.OnEighthGrid() && p.Cmp(chainStart) != 0 && p.Cmp(c) != 0 {
		mids++
	}
	return mids
}

// eighthsBetween counts multiples of 1/8 strictly inside (start, end).
func eighthsBetween(start, end *big.Rat) int64 {
	if start.Cmp(end) == 0 {
		return 0
	}
	return ceilEighths(end) - floorEighths(start) - 1
}

// floorEighths returns floor(t*8).
func floorEighths(t *big.Rat) int64 {
	n := new(big.Int).Mul(t.Num(), big.NewInt(eighths))
	return n.Div(n, t.Denom()).Int64()
}

// ceilEighths returns ceil(t*8).
func ceilEighths(t *big.Rat) int64 {
	n := new(big.Int).Mul(t.Num(), big.NewInt(-eighths))
	return -n.Div(n, t.Denom()).Int64()
}

// nextEighth returns the first multiple of 1/8 strictly after t.
func nextEighth(t *big.Rat) *big.Rat {
	return big.NewRat(floorEighths(t)+1, eighths)
}

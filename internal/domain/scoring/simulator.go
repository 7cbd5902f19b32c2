package scoring

import (
	"fmt"
	"math/big"

	"github.com/okian/chartmeta/internal/domain/model"
	"github.com/okian/chartmeta/internal/domain/timeline"
	"github.com/okian/chartmeta/internal/domain/types"
)

const (
	skillSeconds     = 5
	secondsPerBeat   = 240 // measure-length beats times 60 s
	levelBaseline    = 5
	levelDenominator = 200
	feverShare       = 10
)

var feverMultiplier = big.NewRat(3, 2)

// LevelMultiplier returns 1 + (level-5)/200.
func LevelMultiplier(level int) *big.Rat {
	m := big.NewRat(int64(level-levelBaseline), levelDenominator)
	return m.Add(m, big.NewRat(1, 1))
}

// simulation carries the accumulators of a single pass over a timeline.
type simulation struct {
	feverMode  bool
	end        *big.Rat
	feverLimit int64

	combo      int64
	base       *big.Rat
	fever      *big.Rat
	uptime     [types.SkillSlots]*big.Rat
	open       [model.MaxChains]*big.Rat
	feverEnd   *big.Rat
	feverNotes int64

	skillActive bool
	skillIndex  int
	skillTime   *big.Rat
	bpm         int
}

// Simulate walks tl once and returns the normalized score breakdown for
// the given level. When fever is true a Fever control opens the fever
// window up to the last event of the chart.
func Simulate(tl *timeline.Timeline, level int, fever bool) (types.ScoreMeta, error) {
	total := TotalWeight(tl)
	if total.Sign() == 0 {
		return types.ScoreMeta{}, ErrNoNotes
	}

	s := &simulation{
		feverMode:  fever,
		end:        tl.End(),
		feverLimit: CountNotes(tl) / feverShare,
		base:       new(big.Rat),
		fever:      new(big.Rat),
		skillTime:  new(big.Rat),
	}
	for i := range s.uptime {
		s.uptime[i] = new(big.Rat)
	}

	var prev *model.Event
	for i := 0; i < tl.Len(); i++ {
		ev := tl.At(i)
		if prev != nil {
			if err := s.between(prev.Pos, ev.Pos); err != nil {
				return types.ScoreMeta{}, fmt.Errorf("at %s: %w", ev.Pos, err)
			}
		}
		s.apply(ev)
		prev = &ev
	}

	return s.meta(LevelMultiplier(level), total), nil
}

// between credits the midpoints held from prev up to, but not including,
// cur and advances the skill clock to cur.
func (s *simulation) between(prev, cur model.Position) error {
	prevTime, now := prev.Time(), cur.Time()

	if prev.OnEighthGrid() && prevTime.Cmp(now) != 0 {
		for _, start := range s.open {
			if start == nil || prevTime.Cmp(start) == 0 {
				continue
			}
			score := s.unit(midpointWeight, prevTime)
			s.credit(score)
			s.commit(score)
		}
	}

	if s.anyOpen() {
		for step := nextEighth(prevTime); step.Cmp(now) < 0; step = new(big.Rat).Add(step, big.NewRat(1, eighths)) {
			for _, start := range s.open {
				if start == nil {
					continue
				}
				score := s.unit(midpointWeight, step)
				if s.skillActive {
					expired, err := s.advanceSkill(prevTime, step)
					if err != nil {
						return err
					}
					if !expired {
						s.credit(score)
					}
				}
				s.commit(score)
				prevTime = step
			}
		}
	}

	if s.skillActive {
		if _, err := s.advanceSkill(prevTime, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *simulation) apply(ev model.Event) {
	switch ev.Kind {
	case model.KindFever:
		if s.feverMode && s.end != nil {
			s.feverEnd = new(big.Rat).Set(s.end)
		}
	case model.KindSkill:
		s.skillActive = true
		s.skillTime = new(big.Rat)
	case model.KindBPM:
		s.bpm = ev.BPM
	default:
		now := ev.Pos.Time()
		score := s.unit(ev.Weight(), now)
		s.credit(score)
		s.commit(score)
		switch ev.Kind {
		case model.KindLongStart:
			s.open[ev.Chain] = now
		case model.KindLongEnd:
			s.open[ev.Chain] = nil
		}
	}
}

// unit prices one scoring unit at time at and applies the fever bonus.
func (s *simulation) unit(weight, at *big.Rat) *big.Rat {
	score := new(big.Rat).Mul(weight, ComboMultiplier(s.combo))
	if s.feverEnd != nil && at.Cmp(s.feverEnd) <= 0 {
		s.fever.Add(s.fever, score)
		score.Mul(score, feverMultiplier)
		s.feverNotes++
		if s.feverNotes >= s.feverLimit {
			s.feverEnd = at
		}
	}
	return score
}

// credit attributes score to the active skill bucket.
func (s *simulation) credit(score *big.Rat) {
	if s.skillActive && s.skillIndex < types.SkillSlots {
		s.uptime[s.skillIndex].Add(s.uptime[s.skillIndex], score)
	}
}

func (s *simulation) commit(score *big.Rat) {
	s.base.Add(s.base, score)
	s.combo++
}

// advanceSkill adds the real time between from and to to the skill clock.
// The whole interval counts even when it crosses the limit.
func (s *simulation) advanceSkill(from, to *big.Rat) (bool, error) {
	if from.Cmp(to) == 0 {
		return false, nil
	}
	if s.bpm <= 0 {
		return false, ErrNoTempo
	}
	elapsed := new(big.Rat).Sub(to, from)
	elapsed.Mul(elapsed, big.NewRat(secondsPerBeat, int64(s.bpm)))
	s.skillTime.Add(s.skillTime, elapsed)
	if s.skillTime.Cmp(big.NewRat(skillSeconds, 1)) > 0 {
		s.skillActive = false
		s.skillIndex++
		return true, nil
	}
	return false, nil
}

func (s *simulation) anyOpen() bool {
	for _, start := range s.open {
		if start != nil {
			return true
		}
	}
	return false
}

func (s *simulation) meta(lm, total *big.Rat) types.ScoreMeta {
	scaled := func(acc *big.Rat) float64 {
		v := new(big.Rat).Mul(acc, lm)
		f, _ := v.Quo(v, total).Float64()
		return f
	}

	out := types.ScoreMeta{
		Base:  scaled(s.base),
		Fever: scaled(s.fever),
	}
	sum := new(big.Rat)
	for i, acc := range s.uptime {
		out.Skill[i] = scaled(acc)
		sum.Add(sum, new(big.Rat).Quo(acc, total))
	}
	f, _ := sum.Mul(sum, lm).Float64()
	out.Skills = f
	return out
}

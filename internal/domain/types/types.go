// Package types contains the score records exchanged between the core,
// the result sinks and the HTTP API.
package types

import (
	"fmt"
	"math"
	"strconv"
)

// SkillSlots is the number of skill activations tracked separately.
const SkillSlots = 6

// Header is the column order of a result row.
var Header = []string{
	"name", "diff", "level", "fever", "base",
	"skill 1", "skill 2", "skill 3", "skill 4", "skill 5", "skill 6",
	"skills",
}

// ScoreMeta is the normalized score breakdown of one chart.
type ScoreMeta struct {
	Base   float64             `json:"base"`
	Fever  float64             `json:"fever"`
	Skill  [SkillSlots]float64 `json:"skill"`
	Skills float64             `json:"skills"`
}

// Fields returns the breakdown keyed by column name.
func (m ScoreMeta) Fields() map[string]float64 {
	out := map[string]float64{
		"base":   m.Base,
		"fever":  m.Fever,
		"skills": m.Skills,
	}
	for i, v := range m.Skill {
		out[SkillColumn(i)] = v
	}
	return out
}

// SkillColumn names the column of the i-th skill slot (zero based).
func SkillColumn(i int) string {
	return fmt.Sprintf("skill %d", i+1)
}

// Row is a ScoreMeta labeled with the chart it was computed for.
type Row struct {
	Name      string    `json:"name"`
	Diff      string    `json:"diff"`
	Level     int       `json:"level"`
	FeverMode bool      `json:"fever_mode"`
	Meta      ScoreMeta `json:"meta"`
}

// Record renders the row in Header order. The fever column carries the
// fever score, not the mode flag.
func (r Row) Record() []string {
	rec := []string{
		r.Name,
		r.Diff,
		strconv.Itoa(r.Level),
		FormatFloat(r.Meta.Fever),
		FormatFloat(r.Meta.Base),
	}
	for _, v := range r.Meta.Skill {
		rec = append(rec, FormatFloat(v))
	}
	return append(rec, FormatFloat(r.Meta.Skills))
}

// FormatFloat writes the shortest representation that round-trips, keeping
// a trailing ".0" on integral values.
func FormatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

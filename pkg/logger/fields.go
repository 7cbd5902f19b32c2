package logger

import (
	"log/slog"
	"math/big"
	"time"
)

// Field is one key-value pair of a structured record.
type Field struct {
	Key   string
	Value any
}

func (f Field) attr() slog.Attr { return slog.Any(f.Key, f.Value) }

func String(key, val string) Field          { return Field{Key: key, Value: val} }
func Int(key string, val int) Field         { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field     { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field       { return Field{Key: key, Value: val} }
func Any(key string, val any) Field         { return Field{Key: key, Value: val} }
func Error(err error) Field                 { return Field{Key: "error", Value: err} }

func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Rat logs an exact fraction as "num/den"; nil renders as "<nil>".
func Rat(key string, val *big.Rat) Field {
	if val == nil {
		return Field{Key: key, Value: "<nil>"}
	}
	return Field{Key: key, Value: val.RatString()}
}

// Chart names the chart computation a record belongs to.
type Chart struct {
	Job   string
	Song  string
	Diff  string
	Level int
	Fever bool
}

// Fields renders c. Empty names and a zero level are left out; fever is
// written whenever a difficulty is named.
func (c Chart) Fields() []Field {
	out := make([]Field, 0, 5)
	if c.Job != "" {
		out = append(out, String("job", c.Job))
	}
	if c.Song != "" {
		out = append(out, String("song", c.Song))
	}
	if c.Diff != "" {
		out = append(out, String("diff", c.Diff))
	}
	if c.Level != 0 {
		out = append(out, Int("level", c.Level))
	}
	if c.Diff != "" {
		out = append(out, Bool("fever", c.Fever))
	}
	return out
}

// ForChart scopes l to one chart computation.
func ForChart(l Logger, c Chart) Logger {
	return l.With(c.Fields()...)
}

// ForBatch scopes l to one batch of jobs for a song.
func ForBatch(l Logger, batchID, song string) Logger {
	return l.With(append([]Field{String("batch", batchID)}, Chart{Song: song}.Fields()...)...)
}

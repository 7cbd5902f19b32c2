// Package chart reads the line-oriented chart notation and expands its
// packed note lists into timed raw events.
package chart

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/okian/chartmeta/internal/domain/model"
)

// maxLineBytes bounds a single chart line; packed lists for dense measures
// can be long.
const maxLineBytes = 1 << 20

var (
	tempoLine = regexp.MustCompile(`^#BPM(\d\d): (\d+)`)
	noteLine  = regexp.MustCompile(`^#(\d{3})(\d)([0-9a-f]): ?(\w*)`)
	chainLine = regexp.MustCompile(`^#(\d{3})(\d)([0-9a-f])(\d):(\w*)`)
)

// Line is one note-list record before expansion.
type Line struct {
	Measure int
	Channel int
	Row     int
	Chain   int // model.NoChain unless the line carries a chain id
	List    string
}

// Source is the parsed form of a chart: its tempo table and note-list lines
// ordered by measure.
type Source struct {
	Tempos  map[int]int
	Lines   []Line
	Skipped int // "#" lines that matched no record shape, named an invalid chain or carried a malformed list
}

// Tempo looks up the BPM bound to slot.
func (s *Source) Tempo(slot int) (int, error) {
	bpm, ok := s.Tempos[slot]
	if !ok {
		return 0, fmt.Errorf("slot %02d: %w", slot, ErrMissingTempoSlot)
	}
	return bpm, nil
}

// ReadString parses chart text.
func ReadString(text string) (*Source, error) {
	return Read(strings.NewReader(text))
}

// Read parses chart text from r. A leading UTF-8 or UTF-16 byte-order mark is
// honored. Lines that match neither the tempo nor the note-list shape, and
// note lists of odd length or with non-hex digits, are skipped; only I/O
// failures are returned as errors.
func Read(r io.Reader) (*Source, error) {
	src := &Source{Tempos: make(map[int]int)}

	sc := bufio.NewScanner(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		src.parseLine(strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	sort.SliceStable(src.Lines, func(i, j int) bool {
		return src.Lines[i].Measure < src.Lines[j].Measure
	})
	return src, nil
}

func (s *Source) parseLine(text string) {
	if m := tempoLine.FindStringSubmatch(text); m != nil {
		slot, _ := strconv.Atoi(m[1])
		bpm, err := strconv.Atoi(m[2])
		if err != nil {
			s.Skipped++
			return
		}
		s.Tempos[slot] = bpm
		return
	}

	if m := noteLine.FindStringSubmatch(text); m != nil {
		line := newLine(m[1], m[2], m[3], m[4])
		// long-note lines must name their chain
		if line.Channel == model.ChannelLong || !validList(line.List) {
			s.Skipped++
			return
		}
		s.Lines = append(s.Lines, line)
		return
	}

	if m := chainLine.FindStringSubmatch(text); m != nil {
		line := newLine(m[1], m[2], m[3], m[5])
		chain, _ := strconv.Atoi(m[4])
		if chain >= model.MaxChains || !validList(line.List) {
			s.Skipped++
			return
		}
		if line.Channel == model.ChannelLong {
			line.Chain = chain
		}
		s.Lines = append(s.Lines, line)
		return
	}

	if strings.HasPrefix(text, "#") {
		s.Skipped++
	}
}

// validList reports whether list is a sequence of hex digit pairs.
func validList(list string) bool {
	if len(list)%2 != 0 {
		return false
	}
	for i := 0; i < len(list); i++ {
		if _, ok := hexDigit(list[i]); !ok {
			return false
		}
	}
	return true
}

// newLine builds a Line from regexp groups already known to be digits.
func newLine(measure, channel, row, list string) Line {
	m, _ := strconv.Atoi(measure)
	c, _ := strconv.Atoi(channel)
	r, _ := strconv.ParseInt(row, 16, 0)
	return Line{Measure: m, Channel: c, Row: int(r), Chain: model.NoChain, List: list}
}

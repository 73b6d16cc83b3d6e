// Package rttm reads and writes the line-oriented speaker label format:
//
//	SPEAKER <file> <chan> <start> <duration> <NA> <NA> <speaker> <NA> <NA>
//
// Parsing is lenient. Comments, blank lines and malformed lines are skipped
// rather than reported.
package rttm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hpungsan/diarist/internal/segment"
)

// DefaultName is written into the file column when no recording name is given.
const DefaultName = "audio"

const (
	minFields   = 8
	colType     = 0
	colStart    = 3
	colDuration = 4
	colSpeaker  = 7
	typeSpeaker = "SPEAKER"
)

// Parse parses label text into segments with fresh ids, in file order.
func Parse(text string) []segment.Segment {
	segs, _ := ParseReader(strings.NewReader(text))
	return segs
}

// ParseReader parses label lines from r. The error is only non-nil when r
// itself fails; bad lines never produce an error.
func ParseReader(r io.Reader) ([]segment.Segment, error) {
	segs := []segment.Segment{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if s, ok := parseLine(scanner.Text()); ok {
			segs = append(segs, s)
		}
	}
	return segs, scanner.Err()
}

// parseLine parses one line; ok is false for anything that is not a valid SPEAKER record.
func parseLine(line string) (segment.Segment, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
		return segment.Segment{}, false
	}

	fields := strings.Fields(line)
	if len(fields) < minFields || fields[colType] != typeSpeaker {
		return segment.Segment{}, false
	}

	start, err := parseNumber(fields[colStart])
	if err != nil {
		return segment.Segment{}, false
	}
	duration, err := parseNumber(fields[colDuration])
	if err != nil {
		return segment.Segment{}, false
	}

	return segment.Segment{
		ID:        segment.NewID(),
		SpeakerID: fields[colSpeaker],
		StartTime: start,
		Duration:  duration,
	}, true
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	return v, nil
}

// Serialize renders segments sorted by start time, one line each, joined by "\n".
// An empty name is replaced with DefaultName. Whitespace runs inside name
// become "_" so the file column stays one field.
func Serialize(segs []segment.Segment, name string) string {
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		name = DefaultName
	}

	sorted := segment.Clone(segs)
	segment.SortByStart(sorted)

	lines := make([]string, 0, len(sorted))
	for _, s := range sorted {
		lines = append(lines, fmt.Sprintf("SPEAKER %s 1 %.3f %.3f <NA> <NA> %s <NA> <NA>",
			name, s.StartTime, s.Duration, s.SpeakerID))
	}
	return strings.Join(lines, "\n")
}

// SpeakerIDs returns the distinct speaker ids in segs, sorted.
func SpeakerIDs(segs []segment.Segment) []string {
	return segment.SpeakerIDs(segs)
}

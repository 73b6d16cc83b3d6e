package rttm

import (
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/diarist/internal/segment"
)

// Tolerances for audio that runs past the last label.
const (
	UncoveredToleranceSeconds = 5.0
	UncoveredToleranceRatio   = 0.1
)

// MismatchKind names which way the labels and the audio disagree.
type MismatchKind string

const (
	MismatchNone           MismatchKind = ""
	MismatchExceedsAudio   MismatchKind = "exceeds_audio"
	MismatchUncoveredAudio MismatchKind = "uncovered_audio"
)

// Coverage summarizes the time span covered by a set of segments.
type Coverage struct {
	MinStartTime float64 `json:"min_start_time"`
	MaxEndTime   float64 `json:"max_end_time"`
	SegmentCount int     `json:"segment_count"`
}

// Mismatch is the result of comparing imported labels to the audio length.
type Mismatch struct {
	Coverage
	AudioDuration float64      `json:"audio_duration"`
	Mismatch      bool         `json:"mismatch"`
	Kind          MismatchKind `json:"kind,omitempty"`
	Gap           float64      `json:"gap,omitempty"`
	Message       string       `json:"message,omitempty"`
}

// Cover computes the coverage of segs. An empty set has zero coverage.
func Cover(segs []segment.Segment) Coverage {
	if len(segs) == 0 {
		return Coverage{}
	}
	c := Coverage{
		MinStartTime: math.Inf(1),
		MaxEndTime:   math.Inf(-1),
		SegmentCount: len(segs),
	}
	for _, s := range segs {
		c.MinStartTime = math.Min(c.MinStartTime, s.StartTime)
		c.MaxEndTime = math.Max(c.MaxEndTime, s.EndTime())
	}
	return c
}

// CheckMismatch flags labels that extend past the audio, or audio that runs
// more than 5 seconds or 10% of its length past the last label.
// A non-positive audioDuration (unknown) never mismatches.
func CheckMismatch(segs []segment.Segment, audioDuration float64) Mismatch {
	m := Mismatch{Coverage: Cover(segs), AudioDuration: audioDuration}
	if audioDuration <= 0 || m.SegmentCount == 0 {
		return m
	}

	if m.MaxEndTime > audioDuration {
		m.Mismatch = true
		m.Kind = MismatchExceedsAudio
		m.Gap = m.MaxEndTime - audioDuration
		m.Message = fmt.Sprintf("Labels extend %s past the end of the audio.", FormatDuration(m.Gap))
		return m
	}

	uncovered := audioDuration - m.MaxEndTime
	if uncovered > UncoveredToleranceSeconds || uncovered > audioDuration*UncoveredToleranceRatio {
		m.Mismatch = true
		m.Kind = MismatchUncoveredAudio
		m.Gap = uncovered
		m.Message = fmt.Sprintf("The audio continues %s after the last label.", FormatDuration(m.Gap))
	}
	return m
}

// FormatDuration renders seconds as e.g. "1 hour 2 minutes", "1 minute 5 seconds",
// "1 second" or "0.4 seconds".
func FormatDuration(seconds float64) string {
	if seconds < 1 {
		return fmt.Sprintf("%.1f seconds", math.Max(seconds, 0))
	}

	total := int(math.Round(seconds))
	h, m, s := total/3600, (total%3600)/60, total%60

	var parts []string
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, plural(s, "second"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

package segment

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// MinDuration is the shortest segment the editor will produce, in seconds.
const MinDuration = 0.1

// Segment is a labeled time interval [StartTime, StartTime+Duration) assigned to one speaker.
type Segment struct {
	// ID is a ULID that uniquely identifies the segment within a session
	ID string `json:"id"`

	// SpeakerID is the lane the segment belongs to
	SpeakerID string `json:"speakerId"`

	// StartTime is the segment start in seconds (>= 0)
	StartTime float64 `json:"startTime"`

	// Duration is the segment length in seconds (>= MinDuration)
	Duration float64 `json:"duration"`
}

// EndTime returns StartTime + Duration.
func (s Segment) EndTime() float64 {
	return s.StartTime + s.Duration
}

// Overlaps reports whether two half-open intervals intersect.
// Touching intervals (a.End == b.Start) do not overlap.
func (s Segment) Overlaps(other Segment) bool {
	return s.StartTime < other.EndTime() && other.StartTime < s.EndTime()
}

// NewID returns a fresh segment id.
func NewID() string {
	return ulid.Make().String()
}

// Clone returns a copy of segs that shares no backing array with it.
func Clone(segs []Segment) []Segment {
	if segs == nil {
		return []Segment{}
	}
	return slices.Clone(segs)
}

// Find returns the index of the segment with the given id, or -1.
func Find(segs []Segment, id string) int {
	return slices.IndexFunc(segs, func(s Segment) bool { return s.ID == id })
}

// Lane returns the segments belonging to speakerID, excluding the one with excludeID.
func Lane(segs []Segment, speakerID, excludeID string) []Segment {
	var lane []Segment
	for _, s := range segs {
		if s.SpeakerID == speakerID && s.ID != excludeID {
			lane = append(lane, s)
		}
	}
	return lane
}

// OverlapsAny reports whether candidate overlaps any segment in lane.
func OverlapsAny(lane []Segment, candidate Segment) bool {
	for _, s := range lane {
		if s.Overlaps(candidate) {
			return true
		}
	}
	return false
}

// SortByStart sorts segments ascending by start time, keeping input order for ties.
func SortByStart(segs []Segment) {
	slices.SortStableFunc(segs, func(a, b Segment) int {
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		default:
			return 0
		}
	})
}

// WithFreshIDs returns a copy of segs where every segment has a new id.
func WithFreshIDs(segs []Segment) []Segment {
	out := Clone(segs)
	for i := range out {
		out[i].ID = NewID()
	}
	return out
}

package editor

import (
	"math"
	"slices"

	"github.com/hpungsan/diarist/internal/segment"
)

// Update holds the optional fields of an UpdateSegment call. Nil means "unchanged".
type Update struct {
	StartTime *float64 `json:"startTime,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	SpeakerID *string  `json:"speakerId,omitempty"`
}

// CreateSegment adds a segment to speakerID's lane and selects it.
// startTime is floored at 0 and duration at MinDuration. Returns ok=false,
// leaving the document untouched, when the lane already has a segment in
// that range.
func (e *Engine) CreateSegment(speakerID string, startTime, duration float64) (id string, ok bool) {
	ok = e.commit(func() bool {
		candidate := segment.Segment{
			ID:        segment.NewID(),
			SpeakerID: speakerID,
			StartTime: math.Max(startTime, 0),
			Duration:  math.Max(duration, segment.MinDuration),
		}
		if segment.OverlapsAny(segment.Lane(e.segments, speakerID, ""), candidate) {
			return false
		}

		e.pushHistoryLocked()
		e.segments = append(e.segments, candidate)
		e.selectedID = candidate.ID
		e.recomputeLocked()
		id = candidate.ID
		return true
	})
	if !ok {
		id = ""
	}
	return id, ok
}

// UpdateSegment changes a segment's timing and/or speaker.
//
// Timing-only updates are resizes and never fail on overlap. Instead the
// moving edge is clamped to the nearest neighbor in the lane: a new start
// stops at the end of the preceding segment (the end stays fixed), a new
// end stops at the start of the following one. A relabel to a different
// speaker is rejected when the segment would overlap the target lane.
//
// Returns false for unknown ids, rejected relabels, and updates that
// resolve to the segment's current values.
func (e *Engine) UpdateSegment(id string, upd Update) bool {
	return e.commit(func() bool {
		idx := segment.Find(e.segments, id)
		if idx < 0 {
			return false
		}
		current := e.segments[idx]

		var next segment.Segment
		var ok bool
		if upd.SpeakerID != nil && *upd.SpeakerID != current.SpeakerID {
			next, ok = e.relabelLocked(current, upd)
		} else {
			next, ok = e.resizeLocked(current, upd)
		}
		if !ok || next == current {
			return false
		}

		e.pushHistoryLocked()
		e.segments[idx] = next
		e.recomputeLocked()
		return true
	})
}

// resizeLocked resolves a timing change within the segment's own lane.
func (e *Engine) resizeLocked(current segment.Segment, upd Update) (segment.Segment, bool) {
	if upd.StartTime == nil && upd.Duration == nil {
		return current, false
	}

	start := current.StartTime
	if upd.StartTime != nil {
		start = *upd.StartTime
	}
	end := current.EndTime()
	if upd.Duration != nil {
		end = start + *upd.Duration
	}

	lane := segment.Lane(e.segments, current.SpeakerID, current.ID)
	prevEnd, hasPrev := precedingEnd(lane, current.StartTime)
	nextStart, hasNext := followingStart(lane, current.StartTime)

	if upd.StartTime != nil {
		// Left edge moves; the end is the anchor.
		if hasPrev && start < prevEnd {
			start = prevEnd
		}
		if hasNext && end > nextStart {
			end = nextStart
		}
		start = math.Max(start, 0)
		if end-start < segment.MinDuration {
			start = end - segment.MinDuration
		}
		if start < 0 {
			start = 0
			end = math.Max(end, segment.MinDuration)
		}
	} else {
		// Right edge moves; the start is the anchor.
		if hasNext && end > nextStart {
			end = nextStart
		}
		if end-start < segment.MinDuration {
			end = start + segment.MinDuration
		}
	}

	next := current
	next.StartTime = start
	next.Duration = end - start

	// Lanes imported with pre-existing overlaps cannot always be clamped clean.
	if segment.OverlapsAny(lane, next) {
		return current, false
	}
	return next, true
}

// relabelLocked resolves a move into another lane. No clamping is possible
// across lanes, so any overlap rejects the update.
func (e *Engine) relabelLocked(current segment.Segment, upd Update) (segment.Segment, bool) {
	next := current
	next.SpeakerID = *upd.SpeakerID
	if upd.StartTime != nil {
		next.StartTime = math.Max(*upd.StartTime, 0)
	}
	if upd.Duration != nil {
		next.Duration = math.Max(*upd.Duration, segment.MinDuration)
	}

	if segment.OverlapsAny(segment.Lane(e.segments, next.SpeakerID, current.ID), next) {
		return current, false
	}
	return next, true
}

// precedingEnd returns the end of the segment that starts closest before at.
func precedingEnd(lane []segment.Segment, at float64) (float64, bool) {
	best, found := math.Inf(-1), false
	var end float64
	for _, s := range lane {
		if s.StartTime < at && s.StartTime > best {
			best, end, found = s.StartTime, s.EndTime(), true
		}
	}
	return end, found
}

// followingStart returns the start of the segment that starts closest after at.
func followingStart(lane []segment.Segment, at float64) (float64, bool) {
	best, found := math.Inf(1), false
	for _, s := range lane {
		if s.StartTime > at && s.StartTime < best {
			best, found = s.StartTime, true
		}
	}
	return best, found
}

// DeleteSegment removes a segment, clearing the selection if it pointed at it.
func (e *Engine) DeleteSegment(id string) bool {
	return e.commit(func() bool {
		idx := segment.Find(e.segments, id)
		if idx < 0 {
			return false
		}

		e.pushHistoryLocked()
		e.segments = slices.Delete(e.segments, idx, idx+1)
		if e.selectedID == id {
			e.selectedID = ""
		}
		e.recomputeLocked()
		return true
	})
}

package editor

import (
	"math"
	"slices"
	"strings"

	"github.com/hpungsan/diarist/internal/segment"
)

// RenameSpeaker moves every segment and manual entry from oldID to newID.
// No-op when newID (trimmed) is empty, equals oldID, is already a speaker,
// or when oldID is not a speaker.
func (e *Engine) RenameSpeaker(oldID, newID string) bool {
	newID = strings.TrimSpace(newID)
	return e.commit(func() bool {
		if newID == "" || newID == oldID {
			return false
		}
		if slices.Contains(e.speakers, newID) || !slices.Contains(e.speakers, oldID) {
			return false
		}

		e.pushHistoryLocked()
		for i := range e.segments {
			if e.segments[i].SpeakerID == oldID {
				e.segments[i].SpeakerID = newID
			}
		}
		for i, id := range e.manualSpeakers {
			if id == oldID {
				e.manualSpeakers[i] = newID
			}
		}
		e.recomputeLocked()
		return true
	})
}

// AddSpeaker creates an empty lane with the lowest unused SPEAKER_NN id and returns it.
func (e *Engine) AddSpeaker() string {
	var id string
	e.commit(func() bool {
		id = segment.NextSpeakerID(e.speakers)
		e.pushHistoryLocked()
		e.manualSpeakers = append(e.manualSpeakers, id)
		e.recomputeLocked()
		return true
	})
	return id
}

// RemoveSpeaker drops an empty manual lane. Speakers that still own
// segments cannot be removed.
func (e *Engine) RemoveSpeaker(id string) bool {
	return e.commit(func() bool {
		if segment.HasSegments(e.segments, id) || !slices.Contains(e.manualSpeakers, id) {
			return false
		}

		e.pushHistoryLocked()
		e.manualSpeakers = slices.DeleteFunc(e.manualSpeakers, func(s string) bool { return s == id })
		e.recomputeLocked()
		return true
	})
}

// MergeSpeakers folds sourceID's lane into targetID's. The union of both
// lanes is coalesced so that overlapping or touching intervals become a
// single segment. Every merged segment gets a fresh id, and the selection
// is cleared.
func (e *Engine) MergeSpeakers(sourceID, targetID string) bool {
	return e.commit(func() bool {
		if sourceID == targetID {
			return false
		}

		if !segment.HasSegments(e.segments, sourceID) {
			if !slices.Contains(e.manualSpeakers, sourceID) {
				return false
			}
			e.pushHistoryLocked()
			e.manualSpeakers = slices.DeleteFunc(e.manualSpeakers, func(s string) bool { return s == sourceID })
			e.recomputeLocked()
			return true
		}

		e.pushHistoryLocked()

		var pooled, rest []segment.Segment
		for _, s := range e.segments {
			if s.SpeakerID == sourceID || s.SpeakerID == targetID {
				pooled = append(pooled, s)
			} else {
				rest = append(rest, s)
			}
		}

		e.segments = append(rest, coalesce(pooled, targetID)...)
		e.manualSpeakers = slices.DeleteFunc(e.manualSpeakers, func(s string) bool { return s == sourceID })
		e.selectedID = ""
		e.recomputeLocked()
		return true
	})
}

// coalesce sorts segs by start and unions every run of overlapping or
// adjacent intervals into one segment owned by speakerID.
func coalesce(segs []segment.Segment, speakerID string) []segment.Segment {
	sorted := segment.Clone(segs)
	segment.SortByStart(sorted)

	var out []segment.Segment
	for _, s := range sorted {
		if n := len(out); n > 0 && s.StartTime <= out[n-1].EndTime() {
			runEnd := math.Max(out[n-1].EndTime(), s.EndTime())
			out[n-1].Duration = runEnd - out[n-1].StartTime
			continue
		}
		out = append(out, segment.Segment{
			ID:        segment.NewID(),
			SpeakerID: speakerID,
			StartTime: s.StartTime,
			Duration:  s.Duration,
		})
	}
	return out
}

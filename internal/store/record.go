package store

import (
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/segment"
)

// Record is the persisted annotation document for one audio file.
type Record struct {
	Segments       []segment.Segment `json:"segments"`
	ManualSpeakers []string          `json:"manualSpeakers"`
	History        []editor.Snapshot `json:"history"`
	Future         []editor.Snapshot `json:"future"`
	SavedAt        int64             `json:"savedAt"`
	FileName       string            `json:"fileName,omitempty"`
}

// FromDocument builds a record from an engine document.
func FromDocument(doc editor.Document, fileName string) Record {
	return Record{
		Segments:       doc.Segments,
		ManualSpeakers: doc.ManualSpeakers,
		History:        doc.History,
		Future:         doc.Future,
		FileName:       fileName,
	}
}

// Restore returns a copy of r where every segment, in the document and in
// both history stacks, has a fresh id. Ids from a previous session are
// never reused.
func Restore(r Record) Record {
	out := r
	out.Segments = segment.WithFreshIDs(r.Segments)
	out.ManualSpeakers = append([]string{}, r.ManualSpeakers...)
	out.History = freshSnapshots(r.History)
	out.Future = freshSnapshots(r.Future)
	return out
}

func freshSnapshots(snaps []editor.Snapshot) []editor.Snapshot {
	out := make([]editor.Snapshot, len(snaps))
	for i, s := range snaps {
		out[i] = editor.Snapshot{
			Segments:       segment.WithFreshIDs(s.Segments),
			ManualSpeakers: append([]string{}, s.ManualSpeakers...),
		}
	}
	return out
}

// Apply loads r into e, history included.
func Apply(e *editor.Engine, r Record) {
	e.RestoreWithHistory(r.Segments, r.ManualSpeakers, r.History, r.Future)
}

// wireSegment mirrors segment.Segment with pointer fields so that a missing
// field can be told apart from a zero value.
type wireSegment struct {
	ID        *string  `json:"id" validate:"required"`
	SpeakerID *string  `json:"speakerId" validate:"required"`
	StartTime *float64 `json:"startTime" validate:"required"`
	Duration  *float64 `json:"duration" validate:"required"`
}

type wireSnapshot struct {
	Segments       []wireSegment `json:"segments" validate:"dive"`
	ManualSpeakers []string      `json:"manualSpeakers"`
}

type wireEntry struct {
	Segments       []wireSegment  `json:"segments" validate:"required,dive"`
	ManualSpeakers []string       `json:"manualSpeakers"`
	History        []wireSnapshot `json:"history" validate:"dive"`
	Future         []wireSnapshot `json:"future" validate:"dive"`
	SavedAt        *float64       `json:"savedAt" validate:"required"`
	FileName       string         `json:"fileName"`
}

func (w wireEntry) record() Record {
	return Record{
		Segments:       wireSegments(w.Segments),
		ManualSpeakers: append([]string{}, w.ManualSpeakers...),
		History:        wireSnapshots(w.History),
		Future:         wireSnapshots(w.Future),
		SavedAt:        int64(*w.SavedAt),
		FileName:       w.FileName,
	}
}

func wireSegments(ws []wireSegment) []segment.Segment {
	out := make([]segment.Segment, len(ws))
	for i, s := range ws {
		out[i] = segment.Segment{ID: *s.ID, SpeakerID: *s.SpeakerID, StartTime: *s.StartTime, Duration: *s.Duration}
	}
	return out
}

func wireSnapshots(ws []wireSnapshot) []editor.Snapshot {
	out := make([]editor.Snapshot, len(ws))
	for i, s := range ws {
		out[i] = editor.Snapshot{
			Segments:       wireSegments(s.Segments),
			ManualSpeakers: append([]string{}, s.ManualSpeakers...),
		}
	}
	return out
}

package editor

import (
	"github.com/hpungsan/diarist/internal/segment"
)

// DragKind identifies the gesture a DragState belongs to.
type DragKind string

const (
	DragResizeLeft  DragKind = "resize-left"
	DragResizeRight DragKind = "resize-right"
	DragRelabel     DragKind = "relabel"
)

// DragState is the live preview of an in-progress gesture. It is one of
// *ResizeLeft, *ResizeRight or *Relabel; each carries only its own fields.
type DragState interface {
	Kind() DragKind
	SegmentID() string
	// Original is the segment as it was when the gesture started.
	Original() segment.Segment
	// Resolve returns the update to commit on release, or ok=false when the
	// gesture changed nothing.
	Resolve() (upd Update, ok bool)

	isDragState()
}

// ResizeLeft previews moving a segment's start edge.
type ResizeLeft struct {
	Segment segment.Segment
	Time    float64
	Moved   bool
}

func (d *ResizeLeft) Kind() DragKind            { return DragResizeLeft }
func (d *ResizeLeft) SegmentID() string         { return d.Segment.ID }
func (d *ResizeLeft) Original() segment.Segment { return d.Segment }
func (d *ResizeLeft) isDragState()              {}

// Resolve keeps the original end fixed while the start follows the pointer.
func (d *ResizeLeft) Resolve() (Update, bool) {
	if !d.Moved {
		return Update{}, false
	}
	start := d.Time
	duration := d.Segment.Duration - (d.Time - d.Segment.StartTime)
	return Update{StartTime: &start, Duration: &duration}, true
}

// ResizeRight previews moving a segment's end edge.
type ResizeRight struct {
	Segment segment.Segment
	Time    float64
	Moved   bool
}

func (d *ResizeRight) Kind() DragKind            { return DragResizeRight }
func (d *ResizeRight) SegmentID() string         { return d.Segment.ID }
func (d *ResizeRight) Original() segment.Segment { return d.Segment }
func (d *ResizeRight) isDragState()              {}

// Resolve sets the duration so the end lands on the pointer time.
func (d *ResizeRight) Resolve() (Update, bool) {
	if !d.Moved {
		return Update{}, false
	}
	duration := d.Time - d.Segment.StartTime
	return Update{Duration: &duration}, true
}

// Relabel previews moving a segment into another speaker's lane.
type Relabel struct {
	Segment   segment.Segment
	SpeakerID string
	Moved     bool
}

func (d *Relabel) Kind() DragKind            { return DragRelabel }
func (d *Relabel) SegmentID() string         { return d.Segment.ID }
func (d *Relabel) Original() segment.Segment { return d.Segment }
func (d *Relabel) isDragState()              {}

// Resolve commits only a real change of lane, so dropping a segment back
// where it started leaves no history entry.
func (d *Relabel) Resolve() (Update, bool) {
	if !d.Moved || d.SpeakerID == "" || d.SpeakerID == d.Segment.SpeakerID {
		return Update{}, false
	}
	speaker := d.SpeakerID
	return Update{SpeakerID: &speaker}, true
}

// NewDragState builds the initial state of kind for seg.
func NewDragState(kind DragKind, seg segment.Segment) (DragState, bool) {
	switch kind {
	case DragResizeLeft:
		return &ResizeLeft{Segment: seg}, true
	case DragResizeRight:
		return &ResizeRight{Segment: seg}, true
	case DragRelabel:
		return &Relabel{Segment: seg}, true
	default:
		return nil, false
	}
}

// BeginDrag installs d as the active drag. Returns false when another drag
// is active or d's segment does not exist.
func (e *Engine) BeginDrag(d DragState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drag != nil || d == nil || segment.Find(e.segments, d.SegmentID()) < 0 {
		return false
	}
	e.drag = d
	return true
}

// UpdateDrag replaces the active drag with fn(current). Returns false when no drag is active.
func (e *Engine) UpdateDrag(fn func(DragState) DragState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drag == nil {
		return false
	}
	if next := fn(e.drag); next != nil {
		e.drag = next
	}
	return true
}

// DragState returns the active drag, or nil.
func (e *Engine) DragState() DragState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag
}

// EndDrag clears and returns the active drag.
func (e *Engine) EndDrag() DragState {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.drag
	e.drag = nil
	return d
}

// Package editor holds the in-memory annotation document and every
// operation that mutates it.
//
// The Engine is the single source of truth for segments, speakers,
// selection and undo/redo history. Operations never fail loudly: a request
// that would break the lane invariant (no two segments in one speaker lane
// overlap) is a no-op reported through the boolean result.
//
// Each operation holds the engine lock for its whole duration, so callers
// observe every mutation atomically. Observers registered with Subscribe
// are invoked after the lock is released, so concurrent mutations may
// deliver their documents out of order; Document.Revision orders them.
package editor

import (
	"sync"

	"github.com/hpungsan/diarist/internal/segment"
)

// DefaultHistoryLimit caps the undo and redo stacks.
const DefaultHistoryLimit = 50

// Label column bounds, in pixels.
const (
	MinLabelWidth     = 80.0
	MaxLabelWidth     = 300.0
	DefaultLabelWidth = 150.0
)

// Snapshot is an immutable copy of the undoable part of the document.
type Snapshot struct {
	Segments       []segment.Segment `json:"segments"`
	ManualSpeakers []string          `json:"manualSpeakers"`
}

// Document is the persisted tuple: current content plus both history stacks.
// Revision grows with every committed change; observers may receive
// documents out of order and use it to discard older ones.
type Document struct {
	Segments       []segment.Segment `json:"segments"`
	ManualSpeakers []string          `json:"manualSpeakers"`
	History        []Snapshot        `json:"history"`
	Future         []Snapshot        `json:"future"`
	Revision       uint64            `json:"-"`
}

// State is a deep copy of everything the engine holds.
type State struct {
	Segments          []segment.Segment `json:"segments"`
	Speakers          []string          `json:"speakers"`
	ManualSpeakers    []string          `json:"manualSpeakers"`
	SelectedSegmentID string            `json:"selectedSegmentId,omitempty"`
	History           []Snapshot        `json:"history"`
	Future            []Snapshot        `json:"future"`
	LabelWidth        float64           `json:"labelWidth"`
	Drag              DragState         `json:"-"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistoryLimit sets the undo/redo cap. Non-positive values are ignored.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithLabelWidth sets the initial label column width (clamped).
func WithLabelWidth(px float64) Option {
	return func(e *Engine) {
		e.labelWidth = clampLabelWidth(px)
	}
}

// Engine is the annotation document and its mutation API.
type Engine struct {
	mu sync.Mutex

	segments       []segment.Segment
	manualSpeakers []string
	speakers       []string
	selectedID     string
	history        []Snapshot // most recent first
	future         []Snapshot // most recent first
	labelWidth     float64
	drag           DragState
	historyLimit   int
	revision       uint64

	obsMu     sync.Mutex
	observers map[int]func(Document)
	nextObs   int
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		segments:       []segment.Segment{},
		manualSpeakers: []string{},
		speakers:       []string{},
		history:        []Snapshot{},
		future:         []Snapshot{},
		labelWidth:     DefaultLabelWidth,
		historyLimit:   DefaultHistoryLimit,
		observers:      make(map[int]func(Document)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a deep copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Segments:          segment.Clone(e.segments),
		Speakers:          cloneStrings(e.speakers),
		ManualSpeakers:    cloneStrings(e.manualSpeakers),
		SelectedSegmentID: e.selectedID,
		History:           cloneSnapshots(e.history),
		Future:            cloneSnapshots(e.future),
		LabelWidth:        e.labelWidth,
		Drag:              e.drag,
	}
}

// Document returns a deep copy of the persisted tuple.
func (e *Engine) Document() Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.documentLocked()
}

// Segment returns the segment with the given id.
func (e *Engine) Segment(id string) (segment.Segment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := segment.Find(e.segments, id); i >= 0 {
		return e.segments[i], true
	}
	return segment.Segment{}, false
}

// Speakers returns the sorted speaker set.
func (e *Engine) Speakers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneStrings(e.speakers)
}

// SelectedSegmentID returns the selected segment id, or "" when nothing is selected.
func (e *Engine) SelectedSegmentID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedID
}

// SelectSegment selects id, or clears the selection when id is "".
// Unknown ids clear the selection.
func (e *Engine) SelectSegment(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id != "" && segment.Find(e.segments, id) < 0 {
		id = ""
	}
	e.selectedID = id
}

// LabelWidth returns the label column width in pixels.
func (e *Engine) LabelWidth() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.labelWidth
}

// SetLabelWidth sets the label column width, clamped to [80, 300], and
// returns the applied value. Not part of undo history.
func (e *Engine) SetLabelWidth(px float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.labelWidth = clampLabelWidth(px)
	return e.labelWidth
}

// Subscribe registers fn to be called with the new document after every
// change to segments, manual speakers or history. The returned function
// unregisters it.
func (e *Engine) Subscribe(fn func(Document)) (unsubscribe func()) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()

	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn

	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		delete(e.observers, id)
	}
}

// notify sends doc to observers. Must be called without e.mu held.
func (e *Engine) notify(doc Document) {
	e.obsMu.Lock()
	fns := make([]func(Document), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()

	for _, fn := range fns {
		fn(doc)
	}
}

// commit runs mutate under the lock and notifies observers when it reports a change.
func (e *Engine) commit(mutate func() bool) bool {
	e.mu.Lock()
	changed := mutate()
	var doc Document
	if changed {
		e.revision++
		doc = e.documentLocked()
	}
	e.mu.Unlock()

	if changed {
		e.notify(doc)
	}
	return changed
}

func (e *Engine) documentLocked() Document {
	return Document{
		Segments:       segment.Clone(e.segments),
		ManualSpeakers: cloneStrings(e.manualSpeakers),
		History:        cloneSnapshots(e.history),
		Future:         cloneSnapshots(e.future),
		Revision:       e.revision,
	}
}

// snapshotLocked captures the undoable state.
func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Segments:       segment.Clone(e.segments),
		ManualSpeakers: cloneStrings(e.manualSpeakers),
	}
}

// recomputeLocked restores derived state after segments or manual speakers change.
func (e *Engine) recomputeLocked() {
	e.manualSpeakers = segment.PruneManual(e.segments, e.manualSpeakers)
	e.speakers = segment.Speakers(e.segments, e.manualSpeakers)
	if e.selectedID != "" && segment.Find(e.segments, e.selectedID) < 0 {
		e.selectedID = ""
	}
}

func clampLabelWidth(px float64) float64 {
	return min(max(px, MinLabelWidth), MaxLabelWidth)
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneSnapshots(snaps []Snapshot) []Snapshot {
	out := make([]Snapshot, len(snaps))
	for i, s := range snaps {
		out[i] = Snapshot{
			Segments:       segment.Clone(s.Segments),
			ManualSpeakers: cloneStrings(s.ManualSpeakers),
		}
	}
	return out
}

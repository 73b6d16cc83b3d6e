// Package drag turns pointer and touch gestures into editor mutations.
//
// A Controller runs at most one segment gesture at a time. Move events are
// translated through the Surface geometry into a preview stored on the
// engine; Release resolves the preview into a single UpdateSegment call.
package drag

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/timeline"
)

// Edge selects which side of a segment a resize gesture moves.
type Edge string

const (
	EdgeLeft  Edge = "left"
	EdgeRight Edge = "right"
)

// Pointer is a client-coordinate pointer or touch position.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Surface supplies the geometry gestures are measured against. Either
// lookup may fail; a failed lookup skips the move.
type Surface interface {
	Viewport() (timeline.Viewport, bool)
	Lanes() ([]timeline.Lane, bool)
}

// StaticSurface is a Surface with fixed geometry.
type StaticSurface struct {
	View      timeline.Viewport
	LaneBoxes []timeline.Lane
}

// Viewport returns the fixed viewport. It fails when the zoom is unusable.
func (s StaticSurface) Viewport() (timeline.Viewport, bool) {
	return s.View, s.View.PixelsPerSecond > 0
}

// Lanes returns the fixed lane boxes. It fails when there are none.
func (s StaticSurface) Lanes() ([]timeline.Lane, bool) {
	return s.LaneBoxes, len(s.LaneBoxes) > 0
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for gesture outcomes.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller drives segment gestures and the label-column resize.
type Controller struct {
	engine *editor.Engine
	log    zerolog.Logger

	mu      sync.Mutex
	surface Surface

	// label-column resize session
	labelActive bool
	labelStartX float64
	labelStartW float64
}

// New creates a controller over engine, measuring against surface.
func New(engine *editor.Engine, surface Surface, opts ...Option) *Controller {
	c := &Controller{
		engine:  engine,
		surface: surface,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSurface swaps the geometry source, e.g. after a layout change.
func (c *Controller) SetSurface(s Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surface = s
}

func (c *Controller) currentSurface() Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface
}

// Active reports whether a segment gesture is in progress.
func (c *Controller) Active() bool {
	return c.engine.DragState() != nil
}

// StartResize begins dragging one edge of a segment. Returns false if a
// gesture is already active or the segment is unknown.
func (c *Controller) StartResize(segmentID string, edge Edge) bool {
	kind := editor.DragResizeRight
	if edge == EdgeLeft {
		kind = editor.DragResizeLeft
	}
	return c.start(kind, segmentID)
}

// StartRelabel begins dragging a segment between lanes.
func (c *Controller) StartRelabel(segmentID string) bool {
	return c.start(editor.DragRelabel, segmentID)
}

func (c *Controller) start(kind editor.DragKind, segmentID string) bool {
	orig, ok := c.engine.Segment(segmentID)
	if !ok {
		return false
	}
	d, ok := editor.NewDragState(kind, orig)
	if !ok {
		return false
	}
	return c.engine.BeginDrag(d)
}

// Move updates the preview from a pointer position. Returns false, leaving
// the previous preview intact, when no gesture is active or the geometry
// lookup fails.
func (c *Controller) Move(p Pointer) bool {
	current := c.engine.DragState()
	if current == nil {
		return false
	}
	surface := c.currentSurface()
	if surface == nil {
		return false
	}

	var next editor.DragState
	switch d := current.(type) {
	case *editor.Relabel:
		lanes, ok := surface.Lanes()
		if !ok {
			return false
		}
		speaker, ok := timeline.LaneAt(lanes, p.Y)
		if !ok {
			return false
		}
		n := *d
		n.SpeakerID, n.Moved = speaker, true
		next = &n

	case *editor.ResizeLeft:
		t, ok := c.timeAt(surface, p.X)
		if !ok {
			return false
		}
		n := *d
		n.Time, n.Moved = t, true
		next = &n

	case *editor.ResizeRight:
		t, ok := c.timeAt(surface, p.X)
		if !ok {
			return false
		}
		n := *d
		n.Time, n.Moved = t, true
		next = &n

	default:
		return false
	}

	return c.engine.UpdateDrag(func(editor.DragState) editor.DragState { return next })
}

func (c *Controller) timeAt(surface Surface, x float64) (float64, bool) {
	vp, ok := surface.Viewport()
	if !ok {
		return 0, false
	}
	return vp.TimeAt(x, c.engine.LabelWidth())
}

// Release ends the gesture and commits the preview. Returns true when the
// commit changed the document.
func (c *Controller) Release() bool {
	d := c.engine.EndDrag()
	if d == nil {
		return false
	}
	upd, ok := d.Resolve()
	if !ok {
		c.log.Debug().Str("kind", string(d.Kind())).Str("segment_id", d.SegmentID()).Msg("gesture released without change")
		return false
	}

	committed := c.engine.UpdateSegment(d.SegmentID(), upd)
	c.log.Debug().
		Str("kind", string(d.Kind())).
		Str("segment_id", d.SegmentID()).
		Bool("committed", committed).
		Msg("gesture released")
	return committed
}

// Cancel ends the gesture and discards the preview. Touch-cancel maps here.
func (c *Controller) Cancel() {
	if d := c.engine.EndDrag(); d != nil {
		c.log.Debug().Str("kind", string(d.Kind())).Str("segment_id", d.SegmentID()).Msg("gesture cancelled")
	}
}

// StartLabelResize begins resizing the label column at client x.
func (c *Controller) StartLabelResize(x float64) {
	width := c.engine.LabelWidth()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.labelActive = true
	c.labelStartX = x
	c.labelStartW = width
}

// MoveLabelResize applies the horizontal delta since the start and returns
// the clamped width. Without an active session it returns the current width.
func (c *Controller) MoveLabelResize(x float64) float64 {
	c.mu.Lock()
	active, startX, startW := c.labelActive, c.labelStartX, c.labelStartW
	c.mu.Unlock()

	if !active {
		return c.engine.LabelWidth()
	}
	return c.engine.SetLabelWidth(startW + (x - startX))
}

// EndLabelResize ends the label-column session.
func (c *Controller) EndLabelResize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labelActive = false
}

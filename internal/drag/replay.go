package drag

import (
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/timeline"
)

// End is how a recorded gesture finished.
type End string

const (
	EndRelease End = "release"
	EndCancel  End = "cancel"
)

// Gesture is a complete recorded segment gesture: the geometry it was made
// against, the pointer positions in order, and how it ended.
type Gesture struct {
	Kind      editor.DragKind   `json:"kind" validate:"required,oneof=resize-left resize-right relabel"`
	SegmentID string            `json:"segment_id" validate:"required"`
	Viewport  timeline.Viewport `json:"viewport"`
	Lanes     []timeline.Lane   `json:"lanes,omitempty"`
	Moves     []Pointer         `json:"moves"`
	End       End               `json:"end,omitempty" validate:"omitempty,oneof=release cancel"`
}

// Surface returns the geometry the gesture was recorded against.
func (g Gesture) Surface() Surface {
	return StaticSurface{View: g.Viewport, LaneBoxes: g.Lanes}
}

// Result reports what a replayed gesture did.
type Result struct {
	Started   bool `json:"started"`
	Moves     int  `json:"moves_applied"`
	Committed bool `json:"committed"`
	Cancelled bool `json:"cancelled"`
}

// Replay drives g through a controller bound to the gesture's own geometry.
// It does not start when another gesture is active on engine.
func Replay(engine *editor.Engine, g Gesture, opts ...Option) Result {
	return New(engine, g.Surface(), opts...).Replay(g)
}

// Replay drives g through c, using c's surface.
func (c *Controller) Replay(g Gesture) Result {
	var res Result

	switch g.Kind {
	case editor.DragResizeLeft:
		res.Started = c.StartResize(g.SegmentID, EdgeLeft)
	case editor.DragResizeRight:
		res.Started = c.StartResize(g.SegmentID, EdgeRight)
	case editor.DragRelabel:
		res.Started = c.StartRelabel(g.SegmentID)
	}
	if !res.Started {
		return res
	}

	for _, p := range g.Moves {
		if c.Move(p) {
			res.Moves++
		}
	}

	if g.End == EndCancel {
		c.Cancel()
		res.Cancelled = true
		return res
	}
	res.Committed = c.Release()
	return res
}

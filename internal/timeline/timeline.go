// Package timeline converts between pointer positions and time offsets on
// the scrollable waveform, and hit-tests speaker lanes.
package timeline

// Viewport describes the scroll container the timeline is drawn in.
type Viewport struct {
	// Left is the container's left edge in client coordinates.
	Left float64 `json:"left"`
	// ScrollLeft is the horizontal scroll offset in pixels.
	ScrollLeft float64 `json:"scroll_left"`
	// PixelsPerSecond is the current zoom factor.
	PixelsPerSecond float64 `json:"pixels_per_second"`
}

// TimeAt returns the time under client x. The fixed label column on the left
// is subtracted first. The result is floored at 0 and has no upper bound.
// ok is false when the zoom factor is unusable.
func (v Viewport) TimeAt(x, labelWidth float64) (t float64, ok bool) {
	if v.PixelsPerSecond <= 0 {
		return 0, false
	}
	t = (x - v.Left - labelWidth + v.ScrollLeft) / v.PixelsPerSecond
	if t < 0 {
		t = 0
	}
	return t, true
}

// XAt is the inverse of TimeAt: the client x at which time t is drawn.
func (v Viewport) XAt(t, labelWidth float64) float64 {
	return t*v.PixelsPerSecond + v.Left + labelWidth - v.ScrollLeft
}

// DurationOf converts a horizontal pixel delta into seconds.
func (v Viewport) DurationOf(dx float64) float64 {
	if v.PixelsPerSecond <= 0 {
		return 0
	}
	return dx / v.PixelsPerSecond
}

// Lane is the vertical bounding box of one speaker lane in client coordinates.
type Lane struct {
	SpeakerID string  `json:"speaker_id"`
	Top       float64 `json:"top"`
	Bottom    float64 `json:"bottom"`
}

// Contains reports whether client y falls inside the lane (top inclusive, bottom exclusive).
func (l Lane) Contains(y float64) bool {
	return y >= l.Top && y < l.Bottom
}

// LaneAt returns the speaker id of the lane containing client y.
func LaneAt(lanes []Lane, y float64) (string, bool) {
	for _, l := range lanes {
		if l.Contains(y) {
			return l.SpeakerID, true
		}
	}
	return "", false
}

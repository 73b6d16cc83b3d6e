package session

import (
	"math"
	"sync"
)

// Transport controls playback of the loaded audio. Audio output lives
// outside diarist; the session only issues commands through this interface.
type Transport interface {
	PlayPause()
	Skip(seconds float64)
	SeekTo(t float64)
	SetPlaybackRate(rate float64)
	CurrentTime() float64
	// Duration is the audio length in seconds, or 0 when unknown.
	Duration() float64
}

// Playback rate bounds accepted by VirtualTransport.
const (
	MinPlaybackRate = 0.25
	MaxPlaybackRate = 4.0
)

// TransportState is a point-in-time view of a VirtualTransport.
type TransportState struct {
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Rate     float64 `json:"rate"`
}

// VirtualTransport is a playhead without audio output. Positions are
// clamped to [0, duration] once the duration is known.
type VirtualTransport struct {
	mu       sync.Mutex
	playing  bool
	position float64
	duration float64
	rate     float64
}

// NewVirtualTransport creates a stopped transport at 0 with unknown duration.
func NewVirtualTransport() *VirtualTransport {
	return &VirtualTransport{rate: 1}
}

// Load resets the playhead for new audio of the given duration.
func (v *VirtualTransport) Load(duration float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = 0
	}
	v.duration = duration
	v.position = 0
	v.playing = false
}

func (v *VirtualTransport) PlayPause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = !v.playing
}

func (v *VirtualTransport) Skip(seconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.position = v.clampLocked(v.position + seconds)
}

func (v *VirtualTransport) SeekTo(t float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.position = v.clampLocked(t)
}

// SetPlaybackRate clamps rate to [MinPlaybackRate, MaxPlaybackRate].
// NaN is ignored.
func (v *VirtualTransport) SetPlaybackRate(rate float64) {
	if math.IsNaN(rate) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rate = min(max(rate, MinPlaybackRate), MaxPlaybackRate)
}

func (v *VirtualTransport) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

func (v *VirtualTransport) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

// State returns the current transport state.
func (v *VirtualTransport) State() TransportState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return TransportState{Playing: v.playing, Position: v.position, Duration: v.duration, Rate: v.rate}
}

func (v *VirtualTransport) clampLocked(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if v.duration > 0 && t > v.duration {
		return v.duration
	}
	return t
}

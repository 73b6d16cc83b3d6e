package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/diarist/internal/segment"
)

func TestUndoRedo_RoundTrip(t *testing.T) {
	e := New()
	first, ok := e.CreateSegment("A", 0, 1)
	require.True(t, ok)
	_, ok = e.CreateSegment("A", 2, 1)
	require.True(t, ok)
	two := e.State().Segments

	require.True(t, e.Undo())
	s := e.State()
	require.Len(t, s.Segments, 1)
	assert.Equal(t, first, s.Segments[0].ID)
	assert.Len(t, s.Future, 1)

	require.True(t, e.Redo())
	assert.Equal(t, two, e.State().Segments)
	assert.Empty(t, e.State().Future)
}

func TestUndoRedo_EmptyStacks(t *testing.T) {
	e := New()
	assert.False(t, e.Undo())
	assert.False(t, e.Redo())
}

func TestUndo_RestoresManualSpeakers(t *testing.T) {
	e := New()
	id := e.AddSpeaker()
	require.True(t, e.RemoveSpeaker(id))
	assert.Empty(t, e.Speakers())

	require.True(t, e.Undo())
	assert.Equal(t, []string{id}, e.Speakers())
}

func TestRedo_InvalidatedByMutation(t *testing.T) {
	e := New()
	_, ok := e.CreateSegment("A", 0, 1)
	require.True(t, ok)
	require.True(t, e.Undo())
	require.True(t, e.CanRedo())

	e.AddSpeaker()
	assert.False(t, e.CanRedo())
	assert.Empty(t, e.State().Future)
}

func TestHistory_Capped(t *testing.T) {
	e := New()
	for i := range 120 {
		_, ok := e.CreateSegment("A", float64(i), 1)
		require.True(t, ok)
		require.LessOrEqual(t, len(e.State().History), DefaultHistoryLimit)
	}
	assert.Len(t, e.State().History, DefaultHistoryLimit)

	for e.Undo() {
	}
	s := e.State()
	assert.Len(t, s.Segments, 120-DefaultHistoryLimit)
	assert.Len(t, s.Future, DefaultHistoryLimit)
}

func TestHistory_CustomLimit(t *testing.T) {
	e := New(WithHistoryLimit(3))
	for i := range 10 {
		e.CreateSegment("A", float64(i), 1)
	}
	assert.Len(t, e.State().History, 3)
}

func TestUndo_ClearsUnreachableSelection(t *testing.T) {
	e := New()
	id, ok := e.CreateSegment("A", 0, 1)
	require.True(t, ok)
	require.Equal(t, id, e.SelectedSegmentID())

	require.True(t, e.Undo())
	assert.Empty(t, e.SelectedSegmentID())

	// Redo brings the segment back but not the selection.
	require.True(t, e.Redo())
	assert.Empty(t, e.SelectedSegmentID())
}

func TestUndo_KeepsReachableSelection(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 1)})
	e.SelectSegment("a")
	require.True(t, e.UpdateSegment("a", Update{Duration: ptr(2.0)}))

	require.True(t, e.Undo())
	assert.Equal(t, "a", e.SelectedSegmentID())
}

func TestRestoreWithHistory(t *testing.T) {
	e := New()
	e.CreateSegment("X", 0, 1)

	hist := []Snapshot{{Segments: []segment.Segment{seg("h", "A", 0, 1)}, ManualSpeakers: []string{}}}
	fut := []Snapshot{{Segments: []segment.Segment{seg("f", "A", 0, 3)}, ManualSpeakers: []string{"M"}}}
	e.RestoreWithHistory([]segment.Segment{seg("c", "A", 0, 2)}, []string{"M"}, hist, fut)

	s := e.State()
	assert.Equal(t, []string{"A", "M"}, s.Speakers)
	assert.Equal(t, hist, s.History)
	assert.Equal(t, fut, s.Future)

	require.True(t, e.Undo())
	assert.Equal(t, "h", e.State().Segments[0].ID)
	assert.Empty(t, e.State().ManualSpeakers)
}

func TestRestoreWithHistory_CapsStacks(t *testing.T) {
	e := New()
	hist := make([]Snapshot, 80)
	e.RestoreWithHistory(nil, nil, hist, hist)
	assert.Len(t, e.State().History, DefaultHistoryLimit)
	assert.Len(t, e.State().Future, DefaultHistoryLimit)
}

func TestReset(t *testing.T) {
	e := New()
	e.CreateSegment("A", 0, 1)
	e.AddSpeaker()
	e.Reset()

	s := e.State()
	assert.Empty(t, s.Segments)
	assert.Empty(t, s.Speakers)
	assert.Empty(t, s.History)
}

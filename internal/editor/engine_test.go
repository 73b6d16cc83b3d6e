package editor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/diarist/internal/segment"
)

func seg(id, speaker string, start, dur float64) segment.Segment {
	return segment.Segment{ID: id, SpeakerID: speaker, StartTime: start, Duration: dur}
}

func ptr[T any](v T) *T { return &v }

// requireLanesClean fails if any lane holds two overlapping segments.
func requireLanesClean(t *testing.T, e *Engine) {
	t.Helper()
	segs := e.State().Segments
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			a, b := segs[i], segs[j]
			if a.SpeakerID == b.SpeakerID && a.Overlaps(b) {
				t.Fatalf("lane %s: %v overlaps %v", a.SpeakerID, a, b)
			}
		}
	}
}

func TestNew_Empty(t *testing.T) {
	e := New()
	s := e.State()

	assert.Empty(t, s.Segments)
	assert.Empty(t, s.Speakers)
	assert.Empty(t, s.History)
	assert.Empty(t, s.Future)
	assert.Equal(t, DefaultLabelWidth, s.LabelWidth)
	assert.Nil(t, s.Drag)
	assert.False(t, e.CanUndo())
	assert.False(t, e.CanRedo())
}

func TestSetSegments_ClearsHistory(t *testing.T) {
	e := New()
	_, ok := e.CreateSegment("A", 0, 1)
	require.True(t, ok)
	require.True(t, e.CanUndo())

	e.SetSegments([]segment.Segment{seg("x", "B", 0, 1), seg("y", "A", 2, 1)})

	s := e.State()
	assert.Len(t, s.Segments, 2)
	assert.Equal(t, []string{"A", "B"}, s.Speakers)
	assert.Empty(t, s.History)
	assert.Empty(t, s.Future)
}

func TestCreateSegment_ClampsAndSelects(t *testing.T) {
	e := New()
	id, ok := e.CreateSegment("A", -3, 0.01)
	require.True(t, ok)
	require.NotEmpty(t, id)

	got, found := e.Segment(id)
	require.True(t, found)
	assert.Equal(t, 0.0, got.StartTime)
	assert.Equal(t, segment.MinDuration, got.Duration)
	assert.Equal(t, id, e.SelectedSegmentID())
	assert.Len(t, e.State().History, 1)
}

func TestCreateSegment_RejectsOverlap(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 1, 2)})

	id, ok := e.CreateSegment("A", 2, 2)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Len(t, e.State().Segments, 1)
	assert.Empty(t, e.State().History)

	// Other lanes and adjacency are fine.
	_, ok = e.CreateSegment("B", 2, 2)
	assert.True(t, ok)
	_, ok = e.CreateSegment("A", 3, 1)
	assert.True(t, ok)
	requireLanesClean(t, e)
}

func TestCreateSegment_DropsManualSpeaker(t *testing.T) {
	e := New()
	id := e.AddSpeaker()
	require.Equal(t, []string{id}, e.State().ManualSpeakers)

	_, ok := e.CreateSegment(id, 0, 1)
	require.True(t, ok)

	s := e.State()
	assert.Empty(t, s.ManualSpeakers)
	assert.Equal(t, []string{id}, s.Speakers)
}

func TestUpdateSegment_ResizeLeftClamps(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 2), seg("b", "A", 3, 2)})

	require.True(t, e.UpdateSegment("b", Update{StartTime: ptr(1.0)}))

	b, _ := e.Segment("b")
	assert.Equal(t, 2.0, b.StartTime)
	assert.Equal(t, 5.0, b.EndTime())
	requireLanesClean(t, e)
}

func TestUpdateSegment_ResizeRightClamps(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 2), seg("b", "A", 3, 2)})

	require.True(t, e.UpdateSegment("a", Update{Duration: ptr(10.0)}))

	a, _ := e.Segment("a")
	assert.Equal(t, 0.0, a.StartTime)
	assert.Equal(t, 3.0, a.EndTime())
	requireLanesClean(t, e)
}

func TestUpdateSegment_ResizeEnforcesMinimum(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 1, 2)})

	require.True(t, e.UpdateSegment("a", Update{Duration: ptr(-4.0)}))
	a, _ := e.Segment("a")
	assert.Equal(t, 1.0, a.StartTime)
	assert.InDelta(t, segment.MinDuration, a.Duration, 1e-9)

	// Left edge dragged past the end stops MinDuration short of it.
	e.SetSegments([]segment.Segment{seg("a", "A", 1, 2)})
	require.True(t, e.UpdateSegment("a", Update{StartTime: ptr(8.0), Duration: ptr(-5.0)}))
	a, _ = e.Segment("a")
	assert.InDelta(t, segment.MinDuration, a.Duration, 1e-9)
	assert.GreaterOrEqual(t, a.StartTime, 0.0)
}

func TestUpdateSegment_ResizeNegativeStart(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 1, 2)})

	require.True(t, e.UpdateSegment("a", Update{StartTime: ptr(-1.0), Duration: ptr(4.0)}))
	a, _ := e.Segment("a")
	assert.Equal(t, 0.0, a.StartTime)
	assert.Equal(t, 3.0, a.EndTime())
}

func TestUpdateSegment_UnchangedIsNoop(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 2), seg("b", "A", 2, 2)})

	// Already flush against the neighbor: clamps back to the current geometry.
	assert.False(t, e.UpdateSegment("b", Update{StartTime: ptr(1.0)}))
	assert.False(t, e.UpdateSegment("a", Update{SpeakerID: ptr("A")}))
	assert.False(t, e.UpdateSegment("missing", Update{Duration: ptr(1.0)}))
	assert.Empty(t, e.State().History)
}

func TestUpdateSegment_Relabel(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 2), seg("b", "B", 1, 2), seg("c", "B", 5, 1)})

	// [0,2) overlaps [1,3) in lane B.
	assert.False(t, e.UpdateSegment("a", Update{SpeakerID: ptr("B")}))
	a, _ := e.Segment("a")
	assert.Equal(t, "A", a.SpeakerID)

	require.True(t, e.UpdateSegment("c", Update{SpeakerID: ptr("A")}))
	c, _ := e.Segment("c")
	assert.Equal(t, "A", c.SpeakerID)
	assert.Equal(t, 5.0, c.StartTime)
	requireLanesClean(t, e)
}

func TestUpdateSegment_RelabelToNewSpeaker(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 2)})

	require.True(t, e.UpdateSegment("a", Update{SpeakerID: ptr("Z")}))
	assert.Equal(t, []string{"Z"}, e.Speakers())
}

func TestDeleteSegment(t *testing.T) {
	e := New()
	id, ok := e.CreateSegment("A", 0, 1)
	require.True(t, ok)
	require.Equal(t, id, e.SelectedSegmentID())

	require.True(t, e.DeleteSegment(id))
	assert.Empty(t, e.SelectedSegmentID())
	assert.Empty(t, e.Speakers())
	assert.False(t, e.DeleteSegment(id))
}

func TestSelectSegment(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 1)})

	e.SelectSegment("a")
	assert.Equal(t, "a", e.SelectedSegmentID())
	e.SelectSegment("nope")
	assert.Empty(t, e.SelectedSegmentID())
	e.SelectSegment("a")
	e.SelectSegment("")
	assert.Empty(t, e.SelectedSegmentID())
	assert.Empty(t, e.State().History)
}

func TestSetLabelWidth_Clamps(t *testing.T) {
	e := New()
	assert.Equal(t, MinLabelWidth, e.SetLabelWidth(10))
	assert.Equal(t, MaxLabelWidth, e.SetLabelWidth(1000))
	assert.Equal(t, 200.0, e.SetLabelWidth(200))
	assert.Equal(t, 200.0, e.LabelWidth())
	assert.Empty(t, e.State().History)

	assert.Equal(t, MaxLabelWidth, New(WithLabelWidth(500)).LabelWidth())
}

func TestSubscribe(t *testing.T) {
	e := New()
	var docs []Document
	unsubscribe := e.Subscribe(func(d Document) { docs = append(docs, d) })

	_, ok := e.CreateSegment("A", 0, 1)
	require.True(t, ok)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Segments, 1)
	assert.Len(t, docs[0].History, 1)

	// Rejected mutations and presentational changes do not notify.
	_, ok = e.CreateSegment("A", 0, 1)
	require.False(t, ok)
	e.SetLabelWidth(120)
	e.SelectSegment("")
	assert.Len(t, docs, 1)

	unsubscribe()
	e.AddSpeaker()
	assert.Len(t, docs, 1)
}

func TestSubscribe_ObserverMayReadEngine(t *testing.T) {
	e := New()
	var seen int
	e.Subscribe(func(Document) { seen = len(e.State().Segments) })

	_, ok := e.CreateSegment("A", 0, 1)
	require.True(t, ok)
	assert.Equal(t, 1, seen)
}

func TestSubscribe_RevisionOrdersConcurrentCommits(t *testing.T) {
	e := New()

	var (
		mu     sync.Mutex
		latest Document
		calls  int
	)
	e.Subscribe(func(d Document) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			// Hold back the first delivery so the second commit overtakes it.
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		defer mu.Unlock()
		if d.Revision > latest.Revision {
			latest = d
		}
	})

	var wg sync.WaitGroup
	for _, speaker := range []string{"A", "B"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := e.CreateSegment(speaker, 0, 1)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(2), latest.Revision)
	assert.Len(t, latest.Segments, 2)
	assert.Equal(t, e.Document().Revision, latest.Revision)
}

func TestState_IsDeepCopy(t *testing.T) {
	e := New()
	e.SetSegments([]segment.Segment{seg("a", "A", 0, 1)})

	s := e.State()
	s.Segments[0].StartTime = 99
	s.Speakers[0] = "hacked"

	a, _ := e.Segment("a")
	assert.Equal(t, 0.0, a.StartTime)
	assert.Equal(t, []string{"A"}, e.Speakers())
}

func TestEngine_ConcurrentCreates(t *testing.T) {
	e := New()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.CreateSegment(fmt.Sprintf("S%d", i%4), float64(i%5), 1.5)
		}()
	}
	wg.Wait()

	requireLanesClean(t, e)
}

func TestLaneInvariant_RandomSequence(t *testing.T) {
	e := New()
	speakers := []string{"A", "B", "C"}

	for i := range 300 {
		s := e.State()
		sp := speakers[i%len(speakers)]
		switch i % 6 {
		case 0, 1:
			e.CreateSegment(sp, float64((i*7)%40)/2, float64(i%5)+0.5)
		case 2:
			if n := len(s.Segments); n > 0 {
				e.UpdateSegment(s.Segments[i%n].ID, Update{StartTime: ptr(float64((i*3)%30) / 2)})
			}
		case 3:
			if n := len(s.Segments); n > 0 {
				e.UpdateSegment(s.Segments[i%n].ID, Update{Duration: ptr(float64(i%9) + 0.2)})
			}
		case 4:
			if n := len(s.Segments); n > 0 {
				e.UpdateSegment(s.Segments[i%n].ID, Update{SpeakerID: ptr(sp)})
			}
		case 5:
			if i%4 == 1 {
				e.MergeSpeakers(sp, speakers[(i+1)%len(speakers)])
			} else {
				e.Undo()
			}
		}
		requireLanesClean(t, e)
		for _, sg := range e.State().Segments {
			require.GreaterOrEqual(t, sg.StartTime, 0.0)
			require.GreaterOrEqual(t, sg.Duration, segment.MinDuration-1e-9)
		}
	}
}

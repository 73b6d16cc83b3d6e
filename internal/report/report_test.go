package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/diarist/internal/segment"
)

var reportSegments = []segment.Segment{
	{ID: "2", SpeakerID: "B", StartTime: 4, Duration: 2},
	{ID: "1", SpeakerID: "A", StartTime: 0, Duration: 3},
	{ID: "3", SpeakerID: "A", StartTime: 6, Duration: 3},
}

func TestStats(t *testing.T) {
	stats := Stats(reportSegments, []string{"C"})
	require.Len(t, stats, 3)

	assert.Equal(t, "A", stats[0].SpeakerID)
	assert.Equal(t, 2, stats[0].Segments)
	assert.Equal(t, 6.0, stats[0].TalkTime)
	assert.InDelta(t, 0.75, stats[0].Share, 1e-9)

	assert.Equal(t, SpeakerStat{SpeakerID: "C"}, stats[2])
}

func TestStats_Empty(t *testing.T) {
	assert.Empty(t, Stats(nil, nil))
}

func TestRender(t *testing.T) {
	md := Render(Metadata{
		Key:          "abc123",
		FileName:     "standup.wav",
		SavedAt:      time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		HistoryDepth: 4,
	}, reportSegments, nil)

	assert.True(t, strings.HasPrefix(md, "# standup.wav\n"))
	assert.Contains(t, md, "- Key: `abc123`")
	assert.Contains(t, md, "- Saved: 2026-03-01 09:30")
	assert.Contains(t, md, "- Segments: 3")
	assert.Contains(t, md, "- Undo steps: 4")
	assert.Contains(t, md, "- Coverage: 00:00.0 to 00:09.0")
	assert.Contains(t, md, "| A | 2 | 00:06.0 | 75.0% |")
	assert.Contains(t, md, "| B | 1 | 00:02.0 | 25.0% |")

	// Timeline is in start order.
	first := strings.Index(md, "- [00:00.0-00:03.0] A")
	second := strings.Index(md, "- [00:04.0-00:06.0] B")
	require.GreaterOrEqual(t, first, 0)
	assert.Greater(t, second, first)
}

func TestRender_Empty(t *testing.T) {
	md := Render(Metadata{}, nil, nil)
	assert.Equal(t, "# Annotation Report\n\n- Segments: 0\n\n", md)
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:00.0", clock(-1))
	assert.Equal(t, "01:05.5", clock(65.5))
	assert.Equal(t, "1:00:01.0", clock(3601))
}

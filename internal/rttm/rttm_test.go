package rttm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/diarist/internal/segment"
)

const sampleLabels = `;; header comment
# another comment
SPEAKER meeting 1 0.000 2.500 <NA> <NA> SPEAKER_00 <NA> <NA>

SPEAKER meeting 1 3.250 1.000 <NA> <NA> SPEAKER_01 <NA> <NA>
SPEAKER meeting 1 1.000 <NA> <NA> SPEAKER_01
LEXEME meeting 1 1.000 1.000 <NA> <NA> SPEAKER_01 <NA> <NA>
SPEAKER meeting 1 abc 1.000 <NA> <NA> SPEAKER_01 <NA> <NA>
SPEAKER meeting 1 5.5 0.75 <NA> <NA> SPEAKER_00 <NA> <NA>
`

func TestParse_SkipsInvalidLines(t *testing.T) {
	segs := Parse(sampleLabels)
	require.Len(t, segs, 3)

	assert.Equal(t, "SPEAKER_00", segs[0].SpeakerID)
	assert.Equal(t, 0.0, segs[0].StartTime)
	assert.Equal(t, 2.5, segs[0].Duration)

	assert.Equal(t, "SPEAKER_01", segs[1].SpeakerID)
	assert.Equal(t, 3.25, segs[1].StartTime)

	assert.Equal(t, 5.5, segs[2].StartTime)
	assert.Equal(t, 0.75, segs[2].Duration)

	for _, s := range segs {
		assert.Len(t, s.ID, 26)
	}
}

func TestParse_CRLFAndTabs(t *testing.T) {
	segs := Parse("SPEAKER f 1\t1.0\t2.0 <NA> <NA> A <NA> <NA>\r\nSPEAKER f 1 4 1 <NA> <NA> B <NA> <NA>\r\n")
	require.Len(t, segs, 2)
	assert.Equal(t, "A", segs[0].SpeakerID)
	assert.Equal(t, "B", segs[1].SpeakerID)
}

func TestParse_RejectsNonFinite(t *testing.T) {
	segs := Parse("SPEAKER f 1 NaN 1 <NA> <NA> A <NA> <NA>\nSPEAKER f 1 1 Inf <NA> <NA> A <NA> <NA>")
	assert.Empty(t, segs)
}

func TestParse_Empty(t *testing.T) {
	segs := Parse("")
	assert.NotNil(t, segs)
	assert.Empty(t, segs)
}

func TestSerialize(t *testing.T) {
	segs := []segment.Segment{
		{ID: "2", SpeakerID: "B", StartTime: 4, Duration: 1.23456},
		{ID: "1", SpeakerID: "A", StartTime: 0.5, Duration: 2},
	}

	got := Serialize(segs, "")
	want := "SPEAKER audio 1 0.500 2.000 <NA> <NA> A <NA> <NA>\n" +
		"SPEAKER audio 1 4.000 1.235 <NA> <NA> B <NA> <NA>"
	assert.Equal(t, want, got)

	// Input order is untouched.
	assert.Equal(t, "2", segs[0].ID)

	assert.True(t, strings.HasPrefix(Serialize(segs, "meeting"), "SPEAKER meeting 1 "))
	assert.Equal(t, "", Serialize(nil, "x"))
}

func TestSerialize_NameWithSpaces(t *testing.T) {
	segs := []segment.Segment{{ID: "1", SpeakerID: "SPEAKER_00", StartTime: 1.5, Duration: 2}}

	text := Serialize(segs, "  my meeting.wav\t")
	assert.Equal(t, "SPEAKER my_meeting.wav 1 1.500 2.000 <NA> <NA> SPEAKER_00 <NA> <NA>", text)

	got := Parse(text)
	require.Len(t, got, 1)
	assert.Equal(t, "SPEAKER_00", got[0].SpeakerID)
	assert.Equal(t, 1.5, got[0].StartTime)
	assert.Equal(t, 2.0, got[0].Duration)

	assert.True(t, strings.HasPrefix(Serialize(segs, " \t "), "SPEAKER audio 1 "))
}

type triple struct {
	speaker         string
	start, duration float64
}

func triples(segs []segment.Segment) []triple {
	sorted := segment.Clone(segs)
	segment.SortByStart(sorted)
	out := make([]triple, len(sorted))
	for i, s := range sorted {
		out[i] = triple{s.SpeakerID, s.StartTime, s.Duration}
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	texts := []string{
		sampleLabels,
		"SPEAKER x 1 10.125 0.100 <NA> <NA> carol <NA> <NA>\nSPEAKER x 1 0 3 <NA> <NA> dave <NA> <NA>",
		"",
	}
	for _, text := range texts {
		first := Parse(text)
		second := Parse(Serialize(first, "rt"))
		assert.Equal(t, triples(first), triples(second))
	}
}

func TestSpeakerIDs(t *testing.T) {
	assert.Equal(t, []string{"SPEAKER_00", "SPEAKER_01"}, SpeakerIDs(Parse(sampleLabels)))
}

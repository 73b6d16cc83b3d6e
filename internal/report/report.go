// Package report renders a stored annotation document as Markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/diarist/internal/rttm"
	"github.com/hpungsan/diarist/internal/segment"
)

// Metadata is the header information of a report.
type Metadata struct {
	Title    string
	Key      string
	FileName string
	SavedAt  time.Time
	// AudioDuration is the audio length in seconds, 0 when unknown.
	AudioDuration float64
	HistoryDepth  int
}

// SpeakerStat is the talk-time breakdown for one speaker.
type SpeakerStat struct {
	SpeakerID string  `json:"speaker_id"`
	Segments  int     `json:"segments"`
	TalkTime  float64 `json:"talk_time"`
	Share     float64 `json:"share"`
}

// Stats returns one entry per speaker in sorted id order, manual speakers
// included with zero talk time. Share is the fraction of total talk time.
func Stats(segs []segment.Segment, manual []string) []SpeakerStat {
	speakers := segment.Speakers(segs, manual)
	byID := make(map[string]*SpeakerStat, len(speakers))
	out := make([]SpeakerStat, len(speakers))
	for i, id := range speakers {
		out[i].SpeakerID = id
		byID[id] = &out[i]
	}

	var total float64
	for _, s := range segs {
		st := byID[s.SpeakerID]
		st.Segments++
		st.TalkTime += s.Duration
		total += s.Duration
	}
	if total > 0 {
		for i := range out {
			out[i].Share = out[i].TalkTime / total
		}
	}
	return out
}

// Render produces the Markdown report.
func Render(meta Metadata, segs []segment.Segment, manual []string) string {
	var b strings.Builder

	title := meta.Title
	if title == "" {
		title = meta.FileName
	}
	if title == "" {
		title = "Annotation Report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if meta.FileName != "" {
		fmt.Fprintf(&b, "- File: `%s`\n", meta.FileName)
	}
	if meta.Key != "" {
		fmt.Fprintf(&b, "- Key: `%s`\n", meta.Key)
	}
	if !meta.SavedAt.IsZero() {
		fmt.Fprintf(&b, "- Saved: %s\n", meta.SavedAt.UTC().Format("2006-01-02 15:04"))
	}
	if meta.AudioDuration > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", rttm.FormatDuration(meta.AudioDuration))
	}
	fmt.Fprintf(&b, "- Segments: %d\n", len(segs))
	if meta.HistoryDepth > 0 {
		fmt.Fprintf(&b, "- Undo steps: %d\n", meta.HistoryDepth)
	}
	if cov := rttm.Cover(segs); cov.SegmentCount > 0 {
		fmt.Fprintf(&b, "- Coverage: %s to %s\n", clock(cov.MinStartTime), clock(cov.MaxEndTime))
	}
	b.WriteString("\n")

	stats := Stats(segs, manual)
	if len(stats) > 0 {
		b.WriteString("## Speakers\n\n")
		b.WriteString("| Speaker | Segments | Talk time | Share |\n")
		b.WriteString("|---|---:|---:|---:|\n")
		for _, st := range stats {
			fmt.Fprintf(&b, "| %s | %d | %s | %.1f%% |\n", escapeCell(st.SpeakerID), st.Segments, clock(st.TalkTime), st.Share*100)
		}
		b.WriteString("\n")
	}

	if len(segs) > 0 {
		sorted := segment.Clone(segs)
		segment.SortByStart(sorted)

		b.WriteString("## Timeline\n\n")
		for _, s := range sorted {
			fmt.Fprintf(&b, "- [%s-%s] %s\n", clock(s.StartTime), clock(s.EndTime()), s.SpeakerID)
		}
	}
	return b.String()
}

// clock renders seconds as mm:ss.s, or h:mm:ss.s past an hour.
func clock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	tenths := int64(sec*10 + 0.5)
	h := tenths / 36000
	m := (tenths / 600) % 60
	s := float64(tenths%600) / 10
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%04.1f", h, m, s)
	}
	return fmt.Sprintf("%02d:%04.1f", m, s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

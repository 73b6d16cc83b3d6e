package ops

import (
	"context"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/rttm"
	"github.com/hpungsan/diarist/internal/segment"
	"github.com/hpungsan/diarist/internal/store"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Target
	IncludeHistory bool
	IncludeLabels  bool
}

// FetchOutput contains one stored document.
type FetchOutput struct {
	Key            string            `json:"key"`
	FileName       string            `json:"file_name,omitempty"`
	SavedAt        int64             `json:"saved_at"`
	Segments       []segment.Segment `json:"segments"`
	Speakers       []string          `json:"speakers"`
	ManualSpeakers []string          `json:"manual_speakers"`
	HistoryDepth   int               `json:"history_depth"`
	FutureDepth    int               `json:"future_depth"`
	History        []editor.Snapshot `json:"history,omitempty"`
	Future         []editor.Snapshot `json:"future,omitempty"`
	Labels         *string           `json:"labels,omitempty"`
}

// Fetch retrieves a stored document by key or audio file.
func Fetch(ctx context.Context, st *store.Store, cfg *config.Config, input FetchInput) (*FetchOutput, error) {
	l, err := load(ctx, st, cfg, input.Target)
	if err != nil {
		return nil, err
	}

	s := l.engine.State()
	out := &FetchOutput{
		Key:            l.key,
		FileName:       l.record.FileName,
		SavedAt:        l.record.SavedAt,
		Segments:       s.Segments,
		Speakers:       s.Speakers,
		ManualSpeakers: s.ManualSpeakers,
		HistoryDepth:   len(s.History),
		FutureDepth:    len(s.Future),
	}
	if input.IncludeHistory {
		out.History = s.History
		out.Future = s.Future
	}
	if input.IncludeLabels {
		labels := rttm.Serialize(s.Segments, recordingName(cfg))
		out.Labels = &labels
	}
	return out, nil
}

func recordingName(cfg *config.Config) string {
	if cfg == nil {
		return rttm.DefaultName
	}
	return cfg.RecordingName
}

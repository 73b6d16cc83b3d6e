// Package ops implements the stateless document operations shared by the
// CLI and the MCP server. Each call loads one stored record into a fresh
// editor engine, applies a single operation and saves the result.
package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/rttm"
	"github.com/hpungsan/diarist/internal/segment"
	"github.com/hpungsan/diarist/internal/session"
	"github.com/hpungsan/diarist/internal/store"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Target names a stored document either by its key (the audio hash) or by
// the path of the audio file, which is hashed to find the key.
type Target struct {
	Key   string `json:"key,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// Address is a validated Target.
type Address struct {
	ByAudio bool
	Key     string
	Audio   string
}

// ValidateAddress checks that exactly one of key or audio is given.
func ValidateAddress(key, audio string) (*Address, error) {
	key = strings.TrimSpace(key)
	audio = strings.TrimSpace(audio)

	if key != "" && audio != "" {
		return nil, errors.NewAmbiguousAddressing()
	}
	if key == "" && audio == "" {
		return nil, errors.NewInvalidRequest("must specify either key or audio")
	}
	if audio != "" {
		return &Address{ByAudio: true, Audio: audio}, nil
	}
	return &Address{Key: key}, nil
}

// Resolve returns the document key and, for audio addresses, the audio
// file's base name. Audio files are hashed in full.
func (a *Address) Resolve(ctx context.Context) (key, fileName string, err error) {
	if !a.ByAudio {
		return a.Key, "", nil
	}
	f, err := os.Open(a.Audio)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", errors.NewFileNotFound(a.Audio)
		}
		return "", "", errors.NewInvalidRequest(fmt.Sprintf("cannot open audio: %v", err))
	}
	defer f.Close()

	key, err = session.HashAudio(ctx, f)
	if err != nil {
		return "", "", errors.NewInternal(fmt.Errorf("hash audio: %w", err))
	}
	return key, filepath.Base(a.Audio), nil
}

func resolveTarget(ctx context.Context, t Target) (key, fileName string, err error) {
	addr, err := ValidateAddress(t.Key, t.Audio)
	if err != nil {
		return "", "", err
	}
	return addr.Resolve(ctx)
}

func newEngine(cfg *config.Config) *editor.Engine {
	if cfg == nil {
		return editor.New()
	}
	opts := []editor.Option{editor.WithHistoryLimit(cfg.HistoryLimit)}
	if cfg.LabelWidth > 0 {
		opts = append(opts, editor.WithLabelWidth(cfg.LabelWidth))
	}
	return editor.New(opts...)
}

// loaded is a stored document opened in an engine. Stored segment ids are
// kept, so they stay valid across calls.
type loaded struct {
	key    string
	record store.Record
	engine *editor.Engine
}

func load(ctx context.Context, st *store.Store, cfg *config.Config, t Target) (*loaded, error) {
	key, fileName, err := resolveTarget(ctx, t)
	if err != nil {
		return nil, err
	}
	rec, found, err := st.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		if fileName != "" {
			return nil, errors.NewNotFound("document", fileName)
		}
		return nil, errors.NewNotFound("document", key)
	}
	if rec.FileName == "" {
		rec.FileName = fileName
	}

	e := newEngine(cfg)
	store.Apply(e, rec)
	return &loaded{key: key, record: rec, engine: e}, nil
}

func (l *loaded) save(ctx context.Context, st *store.Store) (store.Record, error) {
	return st.Save(ctx, l.key, store.FromDocument(l.engine.Document(), l.record.FileName))
}

// MutationOutput is the document after an edit. Changed is false when the
// engine rejected the edit; nothing is written then.
type MutationOutput struct {
	Key      string            `json:"key"`
	Changed  bool              `json:"changed"`
	SavedAt  int64             `json:"saved_at"`
	Segments []segment.Segment `json:"segments"`
	Speakers []string          `json:"speakers"`
	CanUndo  bool              `json:"can_undo"`
	CanRedo  bool              `json:"can_redo"`
}

// mutate loads t, runs edit and saves when edit reports a change.
func mutate(ctx context.Context, st *store.Store, cfg *config.Config, t Target, edit func(*editor.Engine) bool) (*MutationOutput, error) {
	l, err := load(ctx, st, cfg, t)
	if err != nil {
		return nil, err
	}

	out := &MutationOutput{Key: l.key, SavedAt: l.record.SavedAt}
	if edit(l.engine) {
		saved, err := l.save(ctx, st)
		if err != nil {
			return nil, err
		}
		out.Changed = true
		out.SavedAt = saved.SavedAt
	}

	s := l.engine.State()
	out.Segments = s.Segments
	out.Speakers = s.Speakers
	out.CanUndo = len(s.History) > 0
	out.CanRedo = len(s.Future) > 0
	return out, nil
}

func mismatchError(check rttm.Mismatch) error {
	return errors.NewDurationMismatch(check.Message, map[string]any{
		"kind":           string(check.Kind),
		"gap":            check.Gap,
		"audio_duration": check.AudioDuration,
		"max_end_time":   check.MaxEndTime,
	})
}

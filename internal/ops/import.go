package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/rttm"
	"github.com/hpungsan/diarist/internal/segment"
	"github.com/hpungsan/diarist/internal/store"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Target

	// Exactly one of Text or Path supplies the labels.
	Text string
	Path string

	// Duration is the audio length in seconds; 0 skips the mismatch check.
	Duration float64
	Force    bool
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Key      string        `json:"key"`
	Created  bool          `json:"created"`
	Imported int           `json:"imported"`
	Speakers []string      `json:"speakers"`
	Check    rttm.Mismatch `json:"check"`
	SavedAt  int64         `json:"saved_at"`
}

// Import replaces a document's segments with parsed labels, creating the
// document when the key is new. Manual speakers survive; undo history does
// not. Labels that do not fit Duration are refused unless Force is set.
func Import(ctx context.Context, st *store.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	segs, err := readLabels(cfg, input.Text, input.Path)
	if err != nil {
		return nil, err
	}

	check := rttm.CheckMismatch(segs, input.Duration)
	if check.Mismatch && !input.Force {
		return nil, mismatchError(check)
	}

	key, fileName, err := resolveTarget(ctx, input.Target)
	if err != nil {
		return nil, err
	}

	e := newEngine(cfg)
	rec, found, err := st.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		store.Apply(e, rec)
		if rec.FileName != "" {
			fileName = rec.FileName
		}
	}
	e.SetSegments(segs)

	saved, err := st.Save(ctx, key, store.FromDocument(e.Document(), fileName))
	if err != nil {
		return nil, err
	}

	return &ImportOutput{
		Key:      key,
		Created:  !found,
		Imported: len(segs),
		Speakers: rttm.SpeakerIDs(segs),
		Check:    check,
		SavedAt:  saved.SavedAt,
	}, nil
}

// readLabels parses inline text or a validated label file.
func readLabels(cfg *config.Config, text, path string) ([]segment.Segment, error) {
	hasText := strings.TrimSpace(text) != ""
	hasPath := strings.TrimSpace(path) != ""
	switch {
	case hasText && hasPath:
		return nil, errors.NewInvalidRequest("specify either text or path, not both")
	case hasText:
		return rttm.Parse(text), nil
	case !hasPath:
		return nil, errors.NewInvalidRequest("labels are required (text or path)")
	}

	if err := ValidatePath(path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open label file: %w", err))
	}
	defer f.Close()

	segs, err := rttm.ParseReader(f)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read label file: %w", err))
	}
	return segs, nil
}

package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/rttm"
	"github.com/hpungsan/diarist/internal/segment"
	"github.com/hpungsan/diarist/internal/store"
)

// CheckInput contains parameters for the Check operation. Labels come from
// either a stored document (Target) or inline Text / a label file Path.
type CheckInput struct {
	Target
	Text     string
	Path     string
	Duration float64
}

// Check compares labels against an audio duration without changing anything.
func Check(ctx context.Context, st *store.Store, cfg *config.Config, input CheckInput) (*rttm.Mismatch, error) {
	if input.Duration <= 0 {
		return nil, errors.NewInvalidRequest("duration must be positive")
	}

	hasTarget := strings.TrimSpace(input.Key) != "" || strings.TrimSpace(input.Audio) != ""
	hasLabels := strings.TrimSpace(input.Text) != "" || strings.TrimSpace(input.Path) != ""
	if hasTarget && hasLabels {
		return nil, errors.NewAmbiguousAddressing()
	}

	var segs []segment.Segment
	if hasTarget {
		l, err := load(ctx, st, cfg, input.Target)
		if err != nil {
			return nil, err
		}
		segs = l.engine.State().Segments
	} else {
		var err error
		if segs, err = readLabels(cfg, input.Text, input.Path); err != nil {
			return nil, err
		}
	}

	m := rttm.CheckMismatch(segs, input.Duration)
	return &m, nil
}

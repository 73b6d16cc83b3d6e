package ops

import (
	"context"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/drag"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/store"
	"github.com/hpungsan/diarist/internal/validation"
)

// GestureInput contains parameters for the ReplayGesture operation.
type GestureInput struct {
	Target
	Gesture drag.Gesture `json:"gesture"`
}

// GestureOutput adds the replay outcome to the mutation result.
type GestureOutput struct {
	MutationOutput
	Replay drag.Result `json:"replay"`
}

// ReplayGesture runs a recorded drag gesture against a stored document.
// A gesture that does not commit leaves the document untouched.
func ReplayGesture(ctx context.Context, st *store.Store, cfg *config.Config, input GestureInput) (*GestureOutput, error) {
	if err := validation.Struct(input.Gesture); err != nil {
		return nil, err
	}

	var res drag.Result
	out, err := mutate(ctx, st, cfg, input.Target, func(e *editor.Engine) bool {
		res = drag.Replay(e, input.Gesture)
		return res.Committed
	})
	if err != nil {
		return nil, err
	}
	return &GestureOutput{MutationOutput: *out, Replay: res}, nil
}

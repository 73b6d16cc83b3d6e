package ops

import (
	"context"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/store"
	"github.com/hpungsan/diarist/internal/validation"
)

// CreateSegmentInput contains parameters for the CreateSegment operation.
type CreateSegmentInput struct {
	Target
	SpeakerID string  `json:"speaker_id" validate:"required"`
	StartTime float64 `json:"start_time" validate:"gte=0"`
	Duration  float64 `json:"duration" validate:"gt=0"`
}

// CreateSegmentOutput adds the new segment's id to the mutation result.
type CreateSegmentOutput struct {
	MutationOutput
	SegmentID string `json:"segment_id,omitempty"`
}

// CreateSegment adds a segment to a speaker lane.
func CreateSegment(ctx context.Context, st *store.Store, cfg *config.Config, input CreateSegmentInput) (*CreateSegmentOutput, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var id string
	out, err := mutate(ctx, st, cfg, input.Target, func(e *editor.Engine) bool {
		var ok bool
		id, ok = e.CreateSegment(input.SpeakerID, input.StartTime, input.Duration)
		return ok
	})
	if err != nil {
		return nil, err
	}
	return &CreateSegmentOutput{MutationOutput: *out, SegmentID: id}, nil
}

// UpdateSegmentInput contains parameters for the UpdateSegment operation.
// Nil fields are left unchanged.
type UpdateSegmentInput struct {
	Target
	SegmentID string   `json:"segment_id" validate:"required"`
	StartTime *float64 `json:"start_time" validate:"omitempty,gte=0"`
	Duration  *float64 `json:"duration" validate:"omitempty,gt=0"`
	SpeakerID *string  `json:"speaker_id" validate:"omitempty,min=1"`
}

// UpdateSegment resizes and/or relabels a segment.
func UpdateSegment(ctx context.Context, st *store.Store, cfg *config.Config, input UpdateSegmentInput) (*MutationOutput, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	upd := editor.Update{StartTime: input.StartTime, Duration: input.Duration, SpeakerID: input.SpeakerID}
	return mutate(ctx, st, cfg, input.Target, func(e *editor.Engine) bool {
		return e.UpdateSegment(input.SegmentID, upd)
	})
}

// DeleteSegmentInput contains parameters for the DeleteSegment operation.
type DeleteSegmentInput struct {
	Target
	SegmentID string `json:"segment_id" validate:"required"`
}

// DeleteSegment removes a segment.
func DeleteSegment(ctx context.Context, st *store.Store, cfg *config.Config, input DeleteSegmentInput) (*MutationOutput, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return mutate(ctx, st, cfg, input.Target, func(e *editor.Engine) bool {
		return e.DeleteSegment(input.SegmentID)
	})
}

package ops

import (
	"context"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/store"
	"github.com/hpungsan/diarist/internal/validation"
)

// AddSpeakerOutput adds the new lane's id to the mutation result.
type AddSpeakerOutput struct {
	MutationOutput
	SpeakerID string `json:"speaker_id"`
}

// AddSpeaker creates an empty speaker lane with the next free SPEAKER_NN id.
func AddSpeaker(ctx context.Context, st *store.Store, cfg *config.Config, t Target) (*AddSpeakerOutput, error) {
	var id string
	out, err := mutate(ctx, st, cfg, t, func(e *editor.Engine) bool {
		id = e.AddSpeaker()
		return true
	})
	if err != nil {
		return nil, err
	}
	return &AddSpeakerOutput{MutationOutput: *out, SpeakerID: id}, nil
}

// SpeakerInput names one speaker of a document.
type SpeakerInput struct {
	Target
	SpeakerID string `json:"speaker_id" validate:"required"`
}

// RemoveSpeaker drops an empty manual lane.
func RemoveSpeaker(ctx context.Context, st *store.Store, cfg *config.Config, input SpeakerInput) (*MutationOutput, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return mutate(ctx, st, cfg, input.Target, func(e *editor.Engine) bool {
		return e.RemoveSpeaker(input.SpeakerID)
	})
}

// RenameSpeakerInput contains parameters for the RenameSpeaker operation.
type RenameSpeakerInput struct {
	Target
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// RenameSpeaker moves every segment of one speaker to a new name.
func RenameSpeaker(ctx context.Context, st *store.Store, cfg *config.Config, input RenameSpeakerInput) (*MutationOutput, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return mutate(ctx, st, cfg, input.Target, func(e *editor.Engine) bool {
		return e.RenameSpeaker(input.From, input.To)
	})
}

// MergeSpeakersInput contains parameters for the MergeSpeakers operation.
type MergeSpeakersInput struct {
	Target
	Source string `json:"source" validate:"required"`
	Into   string `json:"into" validate:"required"`
}

// MergeSpeakers folds the source lane into the target lane.
func MergeSpeakers(ctx context.Context, st *store.Store, cfg *config.Config, input MergeSpeakersInput) (*MutationOutput, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return mutate(ctx, st, cfg, input.Target, func(e *editor.Engine) bool {
		return e.MergeSpeakers(input.Source, input.Into)
	})
}

package ops

import (
	"context"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/store"
)

// Undo reverts the most recent stored edit. The redo stack is persisted
// with the document, so a later Redo call can reapply it.
func Undo(ctx context.Context, st *store.Store, cfg *config.Config, t Target) (*MutationOutput, error) {
	return mutate(ctx, st, cfg, t, (*editor.Engine).Undo)
}

// Redo reapplies the most recently undone edit.
func Redo(ctx context.Context, st *store.Store, cfg *config.Config, t Target) (*MutationOutput, error) {
	return mutate(ctx, st, cfg, t, (*editor.Engine).Redo)
}

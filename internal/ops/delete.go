package ops

import (
	"context"

	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/store"
)

// DeleteInput contains parameters for the DeleteDocument operation.
type DeleteInput struct {
	Target
}

// DeleteOutput contains the result of the DeleteDocument operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	Key     string `json:"key"`
}

// DeleteDocument removes a stored document.
func DeleteDocument(ctx context.Context, st *store.Store, input DeleteInput) (*DeleteOutput, error) {
	key, _, err := resolveTarget(ctx, input.Target)
	if err != nil {
		return nil, err
	}
	deleted, err := st.Delete(ctx, key)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, errors.NewNotFound("document", key)
	}
	return &DeleteOutput{Deleted: true, Key: key}, nil
}

package ops

import (
	"context"

	"github.com/hpungsan/diarist/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int
	Offset int
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []store.Summary `json:"items"`
	Pagination Pagination      `json:"pagination"`
	// RecentlyRemoved holds keys the store dropped as invalid on its last repair.
	RecentlyRemoved []string `json:"recently_removed,omitempty"`
}

// List returns stored documents, most recently used first.
func List(ctx context.Context, st *store.Store, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	all, err := st.List(ctx)
	if err != nil {
		return nil, err
	}

	total := len(all)
	start := min(offset, total)
	end := min(start+limit, total)

	return &ListOutput{
		Items: all[start:end],
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
		RecentlyRemoved: st.RecentlyRemoved(),
	}, nil
}

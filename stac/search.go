package stac

import (
	"context"
	"iter"
)

// Search is the capability exposed by a paginated catalog search: it
// produces items lazily, fetching pages as the sequence is consumed.
//
// The sequence is single-pass and finite; it consumes the underlying search
// exactly once and is not restartable once partially consumed. Iteration
// stops at the first error yielded.
type Search interface {
	Items(ctx context.Context) iter.Seq2[*Item, error]
}

package store

import (
	"context"

	"github.com/riptide-sh/riptide/internal/graph"
)

// UpdateFunc applies a mutation to the graph in memory. Returning an error
// aborts the update; nothing is written and the error is returned to the
// caller unchanged.
type UpdateFunc func(g *graph.TaskGraph) error

// Store is the durable home of a run's task graph.
type Store interface {
	// Load returns the current committed graph. Returns
	// errors.ErrStateNotFound if the run has not been initialized.
	// Load never blocks on the mutation lock: the atomic-rename write
	// discipline guarantees it observes a committed snapshot.
	Load(ctx context.Context) (*graph.TaskGraph, error)

	// Update runs fn against the freshest graph under the mutation lock and
	// commits the result atomically. The returned graph is the committed
	// post-mutation state.
	Update(ctx context.Context, fn UpdateFunc) (*graph.TaskGraph, error)

	// Create initializes the store with g. Fails if state already exists.
	Create(ctx context.Context, g *graph.TaskGraph) error
}

package backend

import (
	"context"
	"fmt"

	"github.com/dshills/pitwall/internal/state"
)

// Bind mirrors a live collection into the store at statePath. Every snapshot
// replaces the value at statePath with a list of document fields, each
// carrying its id. The returned function stops the mirror.
func Bind(ctx context.Context, svc Service, store *state.Store, collection, statePath string) (func(), error) {
	if _, err := state.ParsePath(statePath); err != nil {
		return nil, fmt.Errorf("bind %s: %w", collection, err)
	}
	return svc.Watch(ctx, collection, func(snap Snapshot) {
		items := make([]any, len(snap.Docs))
		for i, d := range snap.Docs {
			items[i] = d.Fields()
		}
		store.SetState(statePath, items, state.WithSource("backend:"+collection))
	})
}

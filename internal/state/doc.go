// Package state implements the reactive state store.
//
// The store owns a single nested tree of map[string]any values addressed by
// dot-delimited paths ("auth.user.name"). The tree is immutable by
// replacement: every commit builds a new tree that shallow-clones the maps
// along the written path and shares everything else with the previous one.
// Readers load the current tree without locking.
//
// # Commits
//
// SetState and BatchUpdate build a candidate tree and run it through the
// middleware chain in registration order. Any middleware returning false, or
// panicking, rejects the whole commit: the tree is unchanged, nothing is
// recorded and no observer runs. An accepted commit appends to the bounded
// history, notifies observers of each written path, then wildcard observers,
// and broadcasts state.changed or state.batch_changed on the event bus.
//
// # Observers
//
// Observers run after the commit lock is released, over a snapshot of the
// observer list taken at commit time. An observer may write to the store; that
// write is a new, independent commit. Nesting is bounded by MaxNotifyDepth.
//
// Values handed to observers and middleware are shared with the store and
// must be treated as read-only. GetState and Get return deep copies.
package state

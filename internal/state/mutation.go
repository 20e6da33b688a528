package state

// MutationKind says which operation produced a commit.
type MutationKind int

const (
	// MutationSet is a single-path SetState.
	MutationSet MutationKind = iota
	// MutationBatch is a BatchUpdate.
	MutationBatch
	// MutationReset replaces the whole tree.
	MutationReset
)

// String returns the kind name.
func (k MutationKind) String() string {
	switch k {
	case MutationSet:
		return "set"
	case MutationBatch:
		return "batch"
	case MutationReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Update is one path/value pair of a batch.
type Update struct {
	Path  string
	Value any
}

// Mutation describes a pending commit to middleware.
type Mutation struct {
	Kind MutationKind

	// Path, Value and OldValue describe a MutationSet.
	Path     string
	Value    any
	OldValue any

	// Updates lists every write of a MutationBatch in application order.
	Updates []Update
}

// Paths returns every path the mutation writes.
func (m Mutation) Paths() []string {
	if m.Kind == MutationSet {
		return []string{m.Path}
	}
	paths := make([]string, len(m.Updates))
	for i, u := range m.Updates {
		paths[i] = u.Path
	}
	return paths
}

// Middleware validates a pending commit. Returning false vetoes it. next and
// prev are shared with the store and must not be modified.
type Middleware func(next, prev Tree, m Mutation) bool

// Change is delivered to observers after a commit.
type Change struct {
	// Path is the path the observer subscribed to. For wildcard observers of a
	// batch or reset it is empty.
	Path     string
	Value    any
	OldValue any

	// State and OldState are the whole trees after and before the commit.
	State    Tree
	OldState Tree

	Kind    MutationKind
	Updates []Update
}

// Observer receives changes. It runs synchronously after the commit.
type Observer func(Change)

// StateChanged is the payload of the state.changed bus event.
type StateChanged struct {
	Path     string
	Value    any
	OldValue any
	State    Tree
}

// BatchChanged is the payload of the state.batch_changed bus event.
type BatchChanged struct {
	Kind    MutationKind
	Updates []Update
	State   Tree
}

package state

import (
	"fmt"
	"strings"
)

// Wildcard subscribes an observer to every commit.
const Wildcard = "*"

// Path is a parsed dot path. The zero value addresses the root of the tree.
type Path struct {
	keys []string
	raw  string
}

// ParsePath splits a dot path into keys. Empty segments are rejected.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	keys := strings.Split(s, ".")
	for _, k := range keys {
		if k == "" {
			return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
	}
	return Path{keys: keys, raw: s}, nil
}

// MustParsePath is ParsePath that panics on error, for static paths.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dot form of the path.
func (p Path) String() string { return p.raw }

// Keys returns a copy of the key sequence.
func (p Path) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// IsRoot reports whether the path addresses the whole tree.
func (p Path) IsRoot() bool { return len(p.keys) == 0 }

// Equal reports whether two paths address the same location.
func (p Path) Equal(other Path) bool { return p.raw == other.raw }

// Tree is the state tree. A Tree held by the store is never mutated.
type Tree = map[string]any

// getIn returns the value at keys, or false when any step is missing.
func getIn(tree Tree, keys []string) (any, bool) {
	var node any = tree
	for _, k := range keys {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// setIn returns a new tree with value stored at keys. Maps along the path are
// shallow-cloned; siblings are shared. A non-map value in the way is replaced
// by a fresh map.
func setIn(tree Tree, keys []string, value any) Tree {
	next := make(map[string]any, len(tree)+1)
	for k, v := range tree {
		next[k] = v
	}
	if len(keys) == 1 {
		next[keys[0]] = value
		return next
	}
	child, _ := tree[keys[0]].(map[string]any)
	next[keys[0]] = setIn(child, keys[1:], value)
	return next
}

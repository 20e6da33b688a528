package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidJSON is returned by Hydrate for malformed input.
var ErrInvalidJSON = errors.New("invalid state JSON")

// MarshalJSON encodes the current tree.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.current.Load().tree)
}

// Query evaluates a gjson path against a JSON encoding of the current tree.
// It supports the gjson query syntax ("races.#(round==3).name") on top of
// plain dot paths.
func (s *Store) Query(path string) gjson.Result {
	data, err := s.MarshalJSON()
	if err != nil {
		s.logger.Warn("state query: encoding failed", "error", err)
		return gjson.Result{}
	}
	return gjson.GetBytes(data, path)
}

// Export encodes the listed paths into one JSON document, keeping their
// nesting. Absent paths are skipped. With no paths the whole tree is encoded.
func (s *Store) Export(paths ...string) ([]byte, error) {
	if len(paths) == 0 {
		return s.MarshalJSON()
	}

	tree := s.current.Load().tree
	doc := []byte("{}")
	for _, raw := range paths {
		p, err := s.parse(raw)
		if err != nil {
			return nil, err
		}
		v, ok := getIn(tree, p.keys)
		if !ok {
			continue
		}
		doc, err = sjson.SetBytes(doc, p.raw, v)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", p.raw, err)
		}
	}
	return doc, nil
}

// Hydrate writes values from a JSON document produced by Export back into the
// store as one batch. Only the listed paths are read; with no paths every
// top-level key is. Numbers decode as float64.
func (s *Store) Hydrate(data []byte, paths []string, opts ...SetOption) (bool, error) {
	if !gjson.ValidBytes(data) {
		return false, ErrInvalidJSON
	}

	var updates []Update
	if len(paths) == 0 {
		gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
			updates = append(updates, Update{Path: key.String(), Value: value.Value()})
			return true
		})
	} else {
		for _, p := range paths {
			if r := gjson.GetBytes(data, p); r.Exists() {
				updates = append(updates, Update{Path: p, Value: r.Value()})
			}
		}
	}
	return s.Batch(updates, opts...), nil
}

// PatchJSON replaces the value at path with the decoded raw JSON and commits it
// through SetState. The path uses dot syntax; missing parents are created.
func (s *Store) PatchJSON(path string, raw []byte, opts ...SetOption) (bool, error) {
	if !gjson.ValidBytes(raw) {
		return false, ErrInvalidJSON
	}
	p, err := s.parse(path)
	if err != nil {
		return false, err
	}
	if p.IsRoot() {
		return false, fmt.Errorf("%w: patch needs a non-root path", ErrInvalidPath)
	}

	doc, err := sjson.SetRawBytes([]byte("{}"), p.raw, raw)
	if err != nil {
		return false, fmt.Errorf("patch %s: %w", p.raw, err)
	}
	return s.SetState(p.raw, gjson.GetBytes(doc, p.raw).Value(), opts...), nil
}

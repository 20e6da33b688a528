package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		keys    []string
		wantErr bool
	}{
		{"", []string{}, false},
		{"auth", []string{"auth"}, false},
		{"auth.user.name", []string{"auth", "user", "name"}, false},
		{"auth..user", nil, true},
		{".auth", nil, true},
		{"auth.", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.keys, p.Keys())
			assert.Equal(t, tt.in, p.String())
		})
	}
}

func TestPath_Equal(t *testing.T) {
	assert.True(t, MustParsePath("a.b").Equal(MustParsePath("a.b")))
	assert.False(t, MustParsePath("a.b").Equal(MustParsePath("a")))
	assert.True(t, MustParsePath("").IsRoot())
	assert.Panics(t, func() { MustParsePath("a..b") })
}

func TestSetIn_StructuralSharing(t *testing.T) {
	races := map[string]any{"count": 3}
	tree := Tree{
		"auth":  map[string]any{"user": "ana", "token": "t"},
		"races": races,
	}

	next := setIn(tree, []string{"auth", "user"}, "bo")

	assert.Equal(t, "ana", tree["auth"].(map[string]any)["user"], "original tree untouched")
	assert.Equal(t, "bo", next["auth"].(map[string]any)["user"])
	assert.Equal(t, "t", next["auth"].(map[string]any)["token"])

	// Unrelated branches are shared, not copied.
	races["count"] = 4
	assert.Equal(t, 4, next["races"].(map[string]any)["count"])
}

func TestSetIn_ReplacesScalarInTheWay(t *testing.T) {
	next := setIn(Tree{"ui": "dark"}, []string{"ui", "theme"}, "light")
	assert.Equal(t, map[string]any{"theme": "light"}, next["ui"])
}

func TestGetIn(t *testing.T) {
	tree := Tree{"a": map[string]any{"b": map[string]any{"c": 1}}, "s": "x"}

	v, ok := getIn(tree, []string{"a", "b", "c"})
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = getIn(tree, []string{"a", "x"})
	assert.False(t, ok)

	_, ok = getIn(tree, []string{"s", "deeper"})
	assert.False(t, ok)

	v, ok = getIn(tree, nil)
	assert.True(t, ok)
	assert.Equal(t, tree, v)
}

func TestCloneValue(t *testing.T) {
	orig := map[string]any{
		"list":  []any{map[string]any{"x": 1}},
		"names": []string{"a"},
		"tags":  map[string]string{"k": "v"},
		"rows":  []map[string]any{{"id": "1"}},
	}
	c := cloneValue(orig).(map[string]any)
	assert.Equal(t, orig, c)

	c["list"].([]any)[0].(map[string]any)["x"] = 2
	c["names"].([]string)[0] = "b"
	c["tags"].(map[string]string)["k"] = "w"
	c["rows"].([]map[string]any)[0]["id"] = "2"

	assert.Equal(t, 1, orig["list"].([]any)[0].(map[string]any)["x"])
	assert.Equal(t, "a", orig["names"].([]string)[0])
	assert.Equal(t, "v", orig["tags"].(map[string]string)["k"])
	assert.Equal(t, "1", orig["rows"].([]map[string]any)[0]["id"])
}

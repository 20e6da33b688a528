package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_DynamicMatch(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(Route{Pattern: "/drivers/:driverId", ViewID: "driver"}))

	r, params, ok := tbl.Match("/drivers/42")
	require.True(t, ok)
	assert.Equal(t, "/drivers/:driverId", r.Pattern)
	assert.Equal(t, Params{"driverId": "42"}, params)

	_, _, ok = tbl.Match("/drivers/42/extra")
	assert.False(t, ok)
	_, _, ok = tbl.Match("/drivers")
	assert.False(t, ok)
}

func TestTable_StaticPreferred(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(Route{Pattern: "/:section", ViewID: "section"}))
	require.NoError(t, tbl.Register(Route{Pattern: "/races", ViewID: "races"}))

	r, params, ok := tbl.Match("/races")
	require.True(t, ok)
	assert.Equal(t, "races", r.ViewID)
	assert.Empty(t, params)

	r, params, ok = tbl.Match("/drivers")
	require.True(t, ok)
	assert.Equal(t, "section", r.ViewID)
	assert.Equal(t, "drivers", params["section"])
}

func TestTable_FirstDynamicWins(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(Route{Pattern: "/races/:id", ViewID: "first"}))
	require.NoError(t, tbl.Register(Route{Pattern: "/races/:round", ViewID: "second"}))

	r, _, ok := tbl.Match("/races/3")
	require.True(t, ok)
	assert.Equal(t, "first", r.ViewID)
}

func TestTable_DecodesParams(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(Route{Pattern: "/circuits/:name", ViewID: "circuit"}))

	_, params, ok := tbl.Match("/circuits/S%C3%A3o%20Paulo")
	require.True(t, ok)
	assert.Equal(t, "São Paulo", params["name"])

	_, params, ok = tbl.Match("/circuits/100%")
	require.True(t, ok)
	assert.Equal(t, "100%", params["name"])
}

func TestTable_RegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		route Route
	}{
		{"missing view", Route{Pattern: "/races"}},
		{"relative pattern", Route{Pattern: "races", ViewID: "races"}},
		{"empty segment", Route{Pattern: "/races//3", ViewID: "races"}},
		{"unnamed param", Route{Pattern: "/races/:", ViewID: "races"}},
		{"repeated param", Route{Pattern: "/a/:id/:id", ViewID: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTable().Register(tt.route)
			assert.ErrorIs(t, err, ErrInvalidRoute)
		})
	}
}

func TestTable_DuplicateNameAndFrozen(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Register(Route{Pattern: "/", ViewID: "home", Name: "home"}))
	assert.ErrorIs(t, tbl.Register(Route{Pattern: "/home", ViewID: "home", Name: "home"}), ErrDuplicateRoute)

	tbl.freeze()
	assert.ErrorIs(t, tbl.Register(Route{Pattern: "/late", ViewID: "late"}), ErrRouterStarted)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_RegisterCopiesDescriptor(t *testing.T) {
	tbl := NewTable()
	meta := map[string]any{"title": "Feed"}
	require.NoError(t, tbl.Register(Route{Pattern: "/feed", ViewID: "feed", Meta: meta}))
	meta["title"] = "changed"

	r, _, _ := tbl.Match("/feed")
	assert.Equal(t, "Feed", r.titleFor())
}

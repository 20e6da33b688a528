package app

import "github.com/dshills/pitwall/internal/state"

// DefaultState returns the initial state tree.
func DefaultState() state.Tree {
	return state.Tree{
		"auth": map[string]any{
			"user":            nil,
			"isAuthenticated": false,
		},
		"ui": map[string]any{
			"theme":       "dark",
			"loading":     false,
			"sidebarOpen": false,
		},
		"router": map[string]any{
			"current": nil,
			"params":  map[string]any{},
			"query":   map[string]any{},
		},
		"championships": []any{},
		"races":         []any{},
		"drivers":       []any{},
		"feed": map[string]any{
			"posts":  []any{},
			"filter": "all",
		},
		"notifications": map[string]any{
			"items":  []any{},
			"unread": 0,
		},
	}
}

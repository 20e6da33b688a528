package app

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/dshills/pitwall/internal/router"
)

// placeholderView renders a stand-in for a view with no registered component.
type placeholderView struct {
	viewID string
}

func (v placeholderView) Render(_ context.Context, params router.Params, query router.Query) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `<section data-view="%s">`, html.EscapeString(v.viewID))
	for _, kv := range sortedPairs(params) {
		fmt.Fprintf(&b, `<dd data-param="%s">%s</dd>`, html.EscapeString(kv[0]), html.EscapeString(kv[1]))
	}
	for _, kv := range sortedPairs(query) {
		fmt.Fprintf(&b, `<dd data-query="%s">%s</dd>`, html.EscapeString(kv[0]), html.EscapeString(kv[1]))
	}
	b.WriteString("</section>")
	return b.String(), nil
}

func sortedPairs[M ~map[string]string](m M) [][2]string {
	out := make([][2]string, 0, len(m))
	for k, v := range m {
		out = append(out, [2]string{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// RegisterPlaceholders registers a placeholder component for every configured
// view that has none and returns the view ids it filled.
func (rt *Runtime) RegisterPlaceholders() []string {
	var filled []string
	seen := make(map[string]bool)
	for _, r := range rt.Config.Routes {
		if seen[r.View] || rt.Views.Has(r.View) {
			continue
		}
		seen[r.View] = true
		rt.Views.RegisterComponent(r.View, placeholderView{viewID: r.View})
		filled = append(filled, r.View)
	}
	return filled
}

package router

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL renders the path for the named route. Query keys are sorted.
func (r *Router) BuildURL(name string, params Params, query Query) (string, error) {
	u, err := buildURL(r.table, name, params, query)
	if err != nil {
		r.logger.Warn("build url failed", "route", name, "error", err)
	}
	return u, err
}

func buildURL(t *Table, name string, params Params, query Query) (string, error) {
	route, ok := t.ByName(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}

	var b strings.Builder
	for _, seg := range route.segments {
		b.WriteByte('/')
		if !strings.HasPrefix(seg, ":") {
			b.WriteString(seg)
			continue
		}
		v, ok := params[seg[1:]]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s needs %q", ErrMissingParam, name, seg[1:])
		}
		b.WriteString(url.PathEscape(v))
	}
	if b.Len() == 0 {
		b.WriteByte('/')
	}
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String(), nil
}

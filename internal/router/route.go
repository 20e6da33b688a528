package router

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var routeValidate = validator.New()

// Route binds a URL pattern to a view.
type Route struct {
	Pattern      string `validate:"required,startswith=/"`
	ViewID       string `validate:"required"`
	Name         string
	Title        string
	RequiresAuth bool
	Layout       string
	Meta         map[string]any

	segments []string
	params   []string
}

// IsDynamic reports whether the pattern has parameters.
func (r *Route) IsDynamic() bool { return len(r.params) > 0 }

// ParamNames returns the parameter names in pattern order.
func (r *Route) ParamNames() []string {
	out := make([]string, len(r.params))
	copy(out, r.params)
	return out
}

// compile validates the descriptor and splits its pattern.
func (r *Route) compile() error {
	if err := routeValidate.Struct(r); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidRoute, r.Pattern, err)
	}

	r.Pattern = normalizePath(r.Pattern)
	r.segments = splitSegments(r.Pattern)
	r.params = r.params[:0]

	seen := make(map[string]struct{})
	for _, seg := range r.segments {
		if seg == "" {
			return fmt.Errorf("%w %q: empty segment", ErrInvalidRoute, r.Pattern)
		}
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := seg[1:]
		if name == "" {
			return fmt.Errorf("%w %q: unnamed parameter", ErrInvalidRoute, r.Pattern)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w %q: parameter %q repeated", ErrInvalidRoute, r.Pattern, name)
		}
		seen[name] = struct{}{}
		r.params = append(r.params, name)
	}
	return nil
}

// match binds the route against path segments.
func (r *Route) match(segments []string) (Params, bool) {
	if len(segments) != len(r.segments) {
		return nil, false
	}
	params := make(Params, len(r.params))
	for i, seg := range r.segments {
		if strings.HasPrefix(seg, ":") {
			params[seg[1:]] = decodeSegment(segments[i])
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// titleFor returns the configured title for the route.
func (r *Route) titleFor() string {
	if r.Title != "" {
		return r.Title
	}
	if t, ok := r.Meta["title"].(string); ok {
		return t
	}
	return ""
}

// clone returns a copy that shares nothing mutable with r.
func (r *Route) clone() *Route {
	c := *r
	c.segments = append([]string(nil), r.segments...)
	c.params = append([]string(nil), r.params...)
	if r.Meta != nil {
		c.Meta = make(map[string]any, len(r.Meta))
		for k, v := range r.Meta {
			c.Meta[k] = v
		}
	}
	return &c
}

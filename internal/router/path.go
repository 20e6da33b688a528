package router

import (
	"net/url"
	"strings"
)

// Params holds the values bound to a route's parameters.
type Params map[string]string

// Query holds parsed query string values.
type Query map[string]string

// normalizePath ensures a leading slash and drops a trailing one.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func splitSegments(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func decodeSegment(seg string) string {
	if v, err := url.PathUnescape(seg); err == nil {
		return v
	}
	return seg
}

// SplitPath separates a location into pathname and search (with its leading
// '?'). A fragment is dropped.
func SplitPath(raw string) (pathname, search string) {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return normalizePath(raw[:i]), raw[i:]
	}
	return normalizePath(raw), ""
}

// ParseQuery parses a query string, with or without its leading '?'. When a
// key repeats, the last value wins. Malformed escapes are kept verbatim.
func ParseQuery(search string) Query {
	q := Query{}
	search = strings.TrimPrefix(search, "?")
	if search == "" {
		return q
	}
	for _, pair := range strings.Split(search, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescapeQuery(key)
		if key == "" {
			continue
		}
		q[key] = unescapeQuery(value)
	}
	return q
}

func unescapeQuery(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// Encode renders the query with sorted keys, without a leading '?'.
func (q Query) Encode() string {
	values := make(url.Values, len(q))
	for k, v := range q {
		values.Set(k, v)
	}
	return values.Encode()
}

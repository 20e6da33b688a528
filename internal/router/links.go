package router

import (
	"context"
	"net/url"
	"strings"
)

// LinkClick describes a click on an anchor, as seen by delegated handling.
type LinkClick struct {
	Href     string
	Target   string
	Download bool
	Rel      string
	Button   int
	Meta     bool
	Ctrl     bool
	Shift    bool
	Alt      bool
}

// internalPath returns the in-app path for click, or false when the browser
// should handle it. A query-only href keeps the current pathname.
func internalPath(click LinkClick, origin, current string) (string, bool) {
	if click.Href == "" || click.Button != 0 {
		return "", false
	}
	if click.Meta || click.Ctrl || click.Shift || click.Alt {
		return "", false
	}
	if click.Target != "" && click.Target != "_self" {
		return "", false
	}
	if click.Download {
		return "", false
	}
	for _, rel := range strings.Fields(click.Rel) {
		if strings.EqualFold(rel, "external") {
			return "", false
		}
	}

	u, err := url.Parse(click.Href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		base, err := url.Parse(origin)
		if origin == "" || err != nil {
			return "", false
		}
		if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
			return "", false
		}
	}
	if u.Path == "" && u.RawQuery == "" {
		return "", false
	}

	p := u.EscapedPath()
	if p == "" {
		p = current
		if p == "" {
			p = "/"
		}
	}
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p, true
}

// HandleClick intercepts an internal link and navigates to it. It reports
// false when the click was left to the browser.
func (r *Router) HandleClick(ctx context.Context, click LinkClick) (Result, bool) {
	current, _ := SplitPath(r.history.Location())
	if cur := r.Current(); cur != nil {
		current = cur.Pathname
	}
	path, ok := internalPath(click, r.cfg.Origin, current)
	if !ok {
		return Result{}, false
	}
	return r.Navigate(ctx, path), true
}

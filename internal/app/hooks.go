package app

import (
	"context"
	"net/url"

	"github.com/dshills/pitwall/internal/router"
	"github.com/dshills/pitwall/internal/state"
)

// Built-in hook names.
const (
	HookAuthGuard   = "auth-guard"
	HookRouteMirror = "route-mirror"
	HookPageView    = "page-view"
)

func (rt *Runtime) installHooks() {
	rt.Router.BeforeEach(HookAuthGuard, rt.authGuard)
	rt.Router.AfterEach(HookRouteMirror, rt.mirrorRoute)
	rt.Router.AfterEach(HookPageView, rt.logPageView)
}

// authGuard sends unauthenticated visitors of protected routes to the login
// route, remembering where they were going.
func (rt *Runtime) authGuard(_ context.Context, to, _ *router.NavigationContext) router.Verdict {
	if !to.Route.RequiresAuth {
		return router.Allow()
	}
	if ok, _ := state.Select[bool](rt.Store, "auth.isAuthenticated"); ok {
		return router.Allow()
	}
	login := rt.Config.Router.LoginPath
	rt.Logger.Info("auth required, redirecting", "path", to.FullPath, "login", login)
	return router.Redirect(login + "?redirect=" + url.QueryEscape(to.FullPath))
}

func (rt *Runtime) mirrorRoute(_ context.Context, to, _ *router.NavigationContext) {
	params := make(map[string]any, len(to.Params))
	for k, v := range to.Params {
		params[k] = v
	}
	query := make(map[string]any, len(to.Query))
	for k, v := range to.Query {
		query[k] = v
	}
	rt.Store.BatchUpdate(map[string]any{
		"router.current": map[string]any{
			"path":     to.Pathname,
			"fullPath": to.FullPath,
			"name":     to.Route.Name,
			"pattern":  to.Route.Pattern,
			"view":     to.Route.ViewID,
		},
		"router.params": params,
		"router.query":  query,
	}, state.WithSource("router"))
}

func (rt *Runtime) logPageView(_ context.Context, to, from *router.NavigationContext) {
	attrs := []any{"path", to.FullPath, "route", to.Route.Name}
	if from != nil {
		attrs = append(attrs, "from", from.FullPath)
	}
	rt.Logger.Info("page view", attrs...)
}

// loadingTarget mirrors the router's loading indicator into ui.loading.
type loadingTarget struct {
	router.RenderTarget
	store *state.Store
}

func (t loadingTarget) SetLoading(loading bool) {
	t.RenderTarget.SetLoading(loading)
	if cur, _ := state.Select[bool](t.store, "ui.loading"); cur != loading {
		t.store.SetState("ui.loading", loading, state.WithSource("router"))
	}
}

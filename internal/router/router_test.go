package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pitwall/internal/event"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticView(out string) Component {
	return ComponentFunc(func(context.Context, Params, Query) (string, error) {
		return out, nil
	})
}

type fixture struct {
	router  *Router
	views   *ViewRegistry
	target  *BufferTarget
	history *MemoryHistory
	bus     *event.Bus
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		views:   NewViewRegistry(),
		target:  NewBufferTarget(),
		history: NewMemoryHistory("/"),
		bus:     event.NewBus(event.WithLogger(quietLogger())),
	}
	f.router = New(
		WithConfig(cfg),
		WithLoader(f.views),
		WithTarget(f.target),
		WithHistory(f.history),
		WithEmitter(f.bus),
		WithLogger(quietLogger()),
	)

	routes := []Route{
		{Pattern: "/", ViewID: "home", Name: "home", Title: "Home"},
		{Pattern: "/races", ViewID: "races", Name: "races", Title: "Races"},
		{Pattern: "/drivers/:driverId", ViewID: "driver", Name: "driver"},
		{Pattern: "/login", ViewID: "login", Name: "login", Title: "Sign in"},
		{Pattern: "/404", ViewID: "notfound", Name: "not-found", Title: "Not found"},
	}
	for _, r := range routes {
		require.NoError(t, f.router.Register(r))
	}
	f.views.RegisterComponent("home", staticView("<home>"))
	f.views.RegisterComponent("races", staticView("<races>"))
	f.views.RegisterComponent("login", staticView("<login>"))
	f.views.RegisterComponent("notfound", staticView("<404>"))
	f.views.RegisterComponent("driver", ComponentFunc(func(_ context.Context, p Params, _ Query) (string, error) {
		return "<driver " + p["driverId"] + ">", nil
	}))
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	res, err := f.router.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
}

func TestRouter_NavigateRendersAndCommits(t *testing.T) {
	f := newFixture(t, Config{TitleSuffix: " | Pitwall"})
	f.start(t)

	var changes []RouteChange
	_, err := f.bus.OnFunc(event.ChannelRouteChange, func(_ context.Context, evt event.Event) error {
		changes = append(changes, evt.Payload.(RouteChange))
		return nil
	})
	require.NoError(t, err)

	res := f.router.Navigate(context.Background(), "/drivers/42?tab=stats")
	require.Equal(t, StatusCompleted, res.Status)
	assert.True(t, res.OK())

	cur := f.router.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "/drivers/42", cur.Pathname)
	assert.Equal(t, Params{"driverId": "42"}, cur.Params)
	assert.Equal(t, Query{"tab": "stats"}, cur.Query)
	assert.Equal(t, "/drivers/42?tab=stats", cur.FullPath)

	assert.Equal(t, "<driver 42>", f.target.Content())
	assert.Equal(t, " | Pitwall", f.target.Title())
	assert.False(t, f.target.Loading())
	assert.Same(t, cur, f.target.Highlighted())
	assert.Equal(t, "/drivers/42?tab=stats", f.history.Location())
	assert.Equal(t, StateSettled, f.router.State())

	require.Len(t, changes, 1)
	assert.Same(t, cur, changes[0].Route)
	require.NotNil(t, changes[0].PreviousRoute)
	assert.Equal(t, "/", changes[0].PreviousRoute.Pathname)

	f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, "Races | Pitwall", f.target.Title())
	assert.Equal(t, "Races | Pitwall", f.history.Current().Title)
}

func TestRouter_StartReplacesInitialEntry(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	pushes, replaces := f.history.Counts()
	assert.Equal(t, 0, pushes)
	assert.Equal(t, 1, replaces)
	assert.Equal(t, "<home>", f.target.Content())

	_, err := f.router.Start(context.Background())
	assert.ErrorIs(t, err, ErrRouterStarted)
	assert.ErrorIs(t, f.router.Register(Route{Pattern: "/late", ViewID: "late"}), ErrRouterStarted)
}

func TestRouter_NotFoundRedirects(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	res := f.router.Navigate(context.Background(), "/nope")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, "/404", f.router.Current().Pathname)
	assert.Equal(t, "<404>", f.target.Content())
	assert.Equal(t, "/nope", res.Requested)
}

func TestRouter_NotFoundWithoutNotFoundRoute(t *testing.T) {
	f := newFixture(t, Config{NotFoundPath: "/missing"})
	f.start(t)

	res := f.router.Navigate(context.Background(), "/nope")
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrRouteNotFound)
	assert.Contains(t, f.target.Content(), "route-error")
	assert.Equal(t, "/", f.router.Current().Pathname)
}

func TestRouter_BeforeHookCancel(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	before := f.router.Current()
	entries := f.history.Len()

	var afterCalls, events atomic.Int32
	f.router.BeforeEach("block-races", func(_ context.Context, to, _ *NavigationContext) Verdict {
		if to.Pathname == "/races" {
			return Cancel()
		}
		return Allow()
	})
	f.router.AfterEach("count", func(context.Context, *NavigationContext, *NavigationContext) {
		afterCalls.Add(1)
	})
	_, err := f.bus.OnFunc(event.ChannelRouteChange, func(context.Context, event.Event) error {
		events.Add(1)
		return nil
	})
	require.NoError(t, err)

	res := f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Same(t, before, f.router.Current())
	assert.Equal(t, entries, f.history.Len())
	assert.Equal(t, "<home>", f.target.Content())
	assert.Zero(t, afterCalls.Load())
	assert.Zero(t, events.Load())
	assert.Equal(t, StateIdle, f.router.State())
}

func TestRouter_MiddlewareRunsAfterBeforeHooks(t *testing.T) {
	f := newFixture(t, Config{})
	var order []string
	f.router.Use("mw", func(context.Context, *NavigationContext, *NavigationContext) Verdict {
		order = append(order, "mw")
		return Allow()
	})
	f.router.BeforeEach("first", func(context.Context, *NavigationContext, *NavigationContext) Verdict {
		order = append(order, "first")
		return Allow()
	})
	f.router.BeforeEach("second", func(context.Context, *NavigationContext, *NavigationContext) Verdict {
		order = append(order, "second")
		return Allow()
	})
	f.router.AfterEach("after", func(context.Context, *NavigationContext, *NavigationContext) {
		order = append(order, "after")
	})

	f.start(t)
	assert.Equal(t, []string{"first", "second", "mw", "after"}, order)

	before, mw, after := f.router.HookNames()
	assert.Equal(t, []string{"first", "second"}, before)
	assert.Equal(t, []string{"mw"}, mw)
	assert.Equal(t, []string{"after"}, after)

	assert.True(t, f.router.RemoveHook("second"))
	assert.False(t, f.router.RemoveHook("second"))
}

func TestRouter_HookRedirect(t *testing.T) {
	f := newFixture(t, Config{})
	f.router.BeforeEach("auth", func(_ context.Context, to, _ *NavigationContext) Verdict {
		if to.Pathname == "/races" {
			return Redirect("/login")
		}
		return Allow()
	})
	f.start(t)

	res := f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, StatusRedirected, res.Status)
	assert.Equal(t, "/login", f.router.Current().Pathname)
	assert.Equal(t, "<login>", f.target.Content())
}

func TestRouter_RedirectLoopIsBounded(t *testing.T) {
	f := newFixture(t, Config{MaxRedirects: 3})
	f.router.BeforeEach("ping-pong", func(_ context.Context, to, _ *NavigationContext) Verdict {
		switch to.Pathname {
		case "/races":
			return Redirect("/login")
		case "/login":
			return Redirect("/races")
		}
		return Allow()
	})
	f.start(t)

	res := f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, StatusCancelled, res.Status)
	assert.ErrorIs(t, res.Err, ErrTooManyRedirects)
	assert.Equal(t, "/", f.router.Current().Pathname)
}

func TestRouter_LoadFailureShowsInlineError(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.router.Register(Route{Pattern: "/standings", ViewID: "standings"}))
	f.start(t)

	res := f.router.Navigate(context.Background(), "/standings")
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrViewNotRegistered)

	var navErr *NavigationError
	require.ErrorAs(t, res.Err, &navErr)
	assert.Equal(t, "load", navErr.Op)
	assert.Contains(t, f.target.Content(), "route-error")
	assert.False(t, f.target.Loading())
}

func TestRouter_RenderFailureDoesNotRunAfterHooks(t *testing.T) {
	f := newFixture(t, Config{})
	f.views.RegisterComponent("races", ComponentFunc(func(context.Context, Params, Query) (string, error) {
		return "", errors.New("feed offline")
	}))
	var after atomic.Int32
	f.router.AfterEach("count", func(context.Context, *NavigationContext, *NavigationContext) {
		after.Add(1)
	})
	f.start(t)
	after.Store(0)

	res := f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, f.target.Content(), "feed offline")
	assert.Zero(t, after.Load())
}

type initView struct {
	inits atomic.Int32
}

func (v *initView) Render(context.Context, Params, Query) (string, error) { return "<init>", nil }

func (v *initView) Init(context.Context, Params, Query) error {
	v.inits.Add(1)
	return nil
}

func TestRouter_CallsInitAfterMount(t *testing.T) {
	f := newFixture(t, Config{})
	view := &initView{}
	f.views.RegisterComponent("races", view)
	f.start(t)

	f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, int32(1), view.inits.Load())
	assert.Equal(t, "<init>", f.target.Content())
}

func TestRouter_PanicFallsBackToErrorRoute(t *testing.T) {
	f := newFixture(t, Config{ErrorPath: "/error"})
	require.NoError(t, f.router.Register(Route{Pattern: "/error", ViewID: "error"}))
	f.views.RegisterComponent("error", staticView("<error page>"))
	f.router.BeforeEach("boom", func(_ context.Context, to, _ *NavigationContext) Verdict {
		if to.Pathname == "/races" {
			panic("hook exploded")
		}
		return Allow()
	})
	f.start(t)

	res := f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrNavigationPanic)
	assert.Equal(t, "/error", f.router.Current().Pathname)
	assert.Equal(t, "<error page>", f.target.Content())
}

func TestRouter_PanicInsideFallbackDoesNotRecurse(t *testing.T) {
	f := newFixture(t, Config{ErrorPath: "/error"})
	require.NoError(t, f.router.Register(Route{Pattern: "/error", ViewID: "error"}))

	var errorRenders atomic.Int32
	f.views.RegisterComponent("error", ComponentFunc(func(context.Context, Params, Query) (string, error) {
		errorRenders.Add(1)
		panic("error page broken too")
	}))
	f.views.RegisterComponent("races", ComponentFunc(func(context.Context, Params, Query) (string, error) {
		panic("races broken")
	}))
	f.start(t)

	res := f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, int32(1), errorRenders.Load())
	assert.Contains(t, f.target.Content(), "route-error")
}

func TestRouter_SupersededNavigation(t *testing.T) {
	f := newFixture(t, Config{})
	started := make(chan struct{})
	release := make(chan struct{})
	f.views.RegisterComponent("races", ComponentFunc(func(context.Context, Params, Query) (string, error) {
		close(started)
		<-release
		return "<slow races>", nil
	}))
	f.start(t)

	var wg sync.WaitGroup
	var slow Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow = f.router.Navigate(context.Background(), "/races")
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("slow navigation never rendered")
	}

	fast := f.router.Navigate(context.Background(), "/drivers/7")
	require.Equal(t, StatusCompleted, fast.Status)
	close(release)
	wg.Wait()

	assert.Equal(t, StatusSuperseded, slow.Status)
	assert.Equal(t, "/drivers/7", f.router.Current().Pathname)
	assert.Equal(t, "<driver 7>", f.target.Content())
	assert.Equal(t, StateSettled, f.router.State())
}

func TestRouter_PopNavigatesInReplaceMode(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	f.router.Navigate(context.Background(), "/races")
	f.router.Navigate(context.Background(), "/drivers/44")
	pushes, _ := f.history.Counts()

	require.True(t, f.router.Back())
	assert.Equal(t, "/races", f.router.Current().Pathname)
	assert.Equal(t, "<races>", f.target.Content())

	require.True(t, f.router.Forward())
	assert.Equal(t, "/drivers/44", f.router.Current().Pathname)

	after, _ := f.history.Counts()
	assert.Equal(t, pushes, after)

	f.router.Stop()
	require.True(t, f.history.Back())
	assert.Equal(t, "/drivers/44", f.router.Current().Pathname)
}

func TestRouter_ReplaceOption(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	n := f.history.Len()

	f.router.Navigate(context.Background(), "/races", Replace(), WithState(map[string]any{"from": "menu"}))
	assert.Equal(t, n, f.history.Len())
	assert.Equal(t, "menu", f.history.Current().State["from"])
}

func TestRouter_Resolve(t *testing.T) {
	f := newFixture(t, Config{})
	nc, ok := f.router.Resolve("/drivers/16?season=2024")
	require.True(t, ok)
	assert.Equal(t, "driver", nc.Name())
	assert.Equal(t, "16", nc.Params["driverId"])
	assert.Equal(t, "2024", nc.Query["season"])

	_, ok = f.router.Resolve("/nowhere")
	assert.False(t, ok)
	assert.Nil(t, f.router.Current())
	assert.Equal(t, StateIdle, f.router.State())
}

func TestRouter_ContextCancelled(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	f.router.BeforeEach("noop", func(context.Context, *NavigationContext, *NavigationContext) Verdict {
		return Allow()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.router.Navigate(ctx, "/races")
	assert.Equal(t, StatusCancelled, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, "/", f.router.Current().Pathname)
}

func TestRouter_CommittedNavigationFinishesWhenNewerIsCancelled(t *testing.T) {
	f := newFixture(t, Config{})
	started := make(chan struct{})
	release := make(chan struct{})
	f.views.RegisterComponent("races", ComponentFunc(func(context.Context, Params, Query) (string, error) {
		close(started)
		<-release
		return "<slow races>", nil
	}))
	f.start(t)
	f.router.BeforeEach("no-drivers", func(_ context.Context, to, _ *NavigationContext) Verdict {
		if to.Name() == "driver" {
			return Cancel()
		}
		return Allow()
	})

	var wg sync.WaitGroup
	var slow Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow = f.router.Navigate(context.Background(), "/races")
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("slow navigation never rendered")
	}
	assert.True(t, f.target.Loading())

	cancelled := f.router.Navigate(context.Background(), "/drivers/7")
	require.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, StateNavigating, f.router.State())

	close(release)
	wg.Wait()

	assert.Equal(t, StatusCompleted, slow.Status)
	assert.Equal(t, "/races", f.router.Current().Pathname)
	assert.Equal(t, "<slow races>", f.target.Content())
	assert.False(t, f.target.Loading())
	assert.Same(t, f.router.Current(), f.target.Highlighted())
	assert.Equal(t, StateSettled, f.router.State())
}

func TestRouter_StopDuringNavigationSettles(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)
	f.router.BeforeEach("stop", func(context.Context, *NavigationContext, *NavigationContext) Verdict {
		f.router.Stop()
		return Allow()
	})

	res := f.router.Navigate(context.Background(), "/races")
	assert.Equal(t, StatusSuperseded, res.Status)
	assert.Equal(t, StateSettled, f.router.State())
	assert.Equal(t, "/", f.router.Current().Pathname)
	assert.Equal(t, "<home>", f.target.Content())
}

func TestRouter_RouteChangeEmittedAfterContextCancelled(t *testing.T) {
	f := newFixture(t, Config{})
	f.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.views.RegisterComponent("races", ComponentFunc(func(context.Context, Params, Query) (string, error) {
		cancel()
		return "<races>", nil
	}))

	var deliveries atomic.Int32
	_, err := f.bus.OnFunc(event.ChannelRouteChange, func(context.Context, event.Event) error {
		deliveries.Add(1)
		return nil
	})
	require.NoError(t, err)

	res := f.router.Navigate(ctx, "/races")
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "/races", f.router.Current().Pathname)
	assert.Equal(t, int32(1), deliveries.Load())
}

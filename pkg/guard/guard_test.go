package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/menu"
	"github.com/mchmarny/navd/pkg/metric"
	"github.com/mchmarny/navd/pkg/router"
	"github.com/mchmarny/navd/pkg/session"
)

func testMenus() menu.Tree {
	return menu.Tree{
		{Name: "Dashboard", Path: "/dashboard", Component: "views/Dashboard", Meta: menu.Meta{Title: "Dashboard"}},
		{Name: "System", Path: "/system", Component: menu.PassThroughTag, Meta: menu.Meta{Title: "System"}, Children: []menu.Node{
			{Name: "SystemUsers", Path: "/system/users", Component: "views/SystemUsers", Meta: menu.Meta{Title: "Users"}},
		}},
		{Name: "Reports", Path: "/reports", Component: "views/Reports", Meta: menu.Meta{Title: "Reports"}},
	}
}

type fixture struct {
	session   *session.Session
	router    *router.Router
	guard     *Guard
	navigator *router.Navigator
	metrics   *Metrics
}

func newFixture(t *testing.T, f MenuFetcher) *fixture {
	t.Helper()

	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	reg := component.Default()
	s := session.New("test")
	r := router.New(reg)
	g := New(s, r, reg, f, WithMetrics(m))

	return &fixture{
		session:   s,
		router:    r,
		guard:     g,
		navigator: router.NewNavigator(r, g),
		metrics:   m,
	}
}

func (f *fixture) fetches(result string) float64 {
	return f.metrics.Fetches.(*metric.Counter).Value(result)
}

func (f *fixture) decisions(outcome Outcome) float64 {
	return f.metrics.Decisions.(*metric.Counter).Value(outcome.String())
}

func staticFetcher(tree menu.Tree, calls *atomic.Int32) MenuFetcher {
	return MenuFetcherFunc(func(context.Context, string) (menu.Tree, error) {
		if calls != nil {
			calls.Add(1)
		}
		return tree, nil
	})
}

func TestUnauthenticatedIsSentToLogin(t *testing.T) {
	f := newFixture(t, staticFetcher(testMenus(), nil))
	ctx := context.Background()

	res, err := f.navigator.Navigate(ctx, "/reports")
	require.NoError(t, err)
	assert.True(t, res.Redirected())
	assert.Equal(t, "/login?redirect=/reports", res.Location())
	assert.Equal(t, router.LoginName, res.Match.Name)

	res, err = f.navigator.Navigate(ctx, "/login")
	require.NoError(t, err)
	assert.False(t, res.Redirected())

	assert.Equal(t, 1.0, f.decisions(RedirectLogin))
	assert.Equal(t, 2.0, f.decisions(Allow))
}

func TestUnauthenticatedRootKeepsHomeTarget(t *testing.T) {
	f := newFixture(t, staticFetcher(testMenus(), nil))

	res, err := f.navigator.Navigate(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "/login?redirect=/dashboard", res.Location())
}

func TestPendingLoadsMenusThenResolvesTarget(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, staticFetcher(testMenus(), &calls))
	f.session.SetLogin("tok", &session.User{Username: "admin"}, false)

	res, err := f.navigator.Navigate(context.Background(), "/reports?tab=2#top")
	require.NoError(t, err)

	assert.Equal(t, "Reports", res.Match.Name)
	assert.False(t, res.Redirected(), "the reload lands on the requested location")
	assert.True(t, res.Replace)
	assert.Equal(t, "2", res.Match.Query.Get("tab"))
	assert.Equal(t, "top", res.Match.Hash)

	assert.Equal(t, session.AuthenticatedReady, f.session.State())
	assert.True(t, f.router.HasRoute("SystemUsers"))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1.0, f.fetches("success"))
	assert.Equal(t, 1.0, f.decisions(RedirectTarget))

	_, err = f.navigator.Navigate(context.Background(), "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "menus load once per login")
}

func TestPendingRootEndsOnHome(t *testing.T) {
	f := newFixture(t, staticFetcher(testMenus(), nil))
	f.session.SetLogin("tok", nil, false)

	res, err := f.navigator.Navigate(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "Dashboard", res.Match.Name)
	assert.True(t, res.Redirected())
	assert.Equal(t, "/dashboard", res.Location())
}

func TestPendingDirectoryEndsOnFirstChild(t *testing.T) {
	f := newFixture(t, staticFetcher(testMenus(), nil))
	f.session.SetLogin("tok", nil, false)

	res, err := f.navigator.Navigate(context.Background(), "/system")
	require.NoError(t, err)
	assert.Equal(t, "SystemUsers", res.Match.Name)
	assert.Equal(t, "/system/users", res.Location())
}

func TestUnknownPathAfterLoadIsNotFound(t *testing.T) {
	f := newFixture(t, staticFetcher(testMenus(), nil))
	f.session.SetLogin("tok", nil, false)

	res, err := f.navigator.Navigate(context.Background(), "/nowhere")
	require.NoError(t, err)
	assert.True(t, res.Match.IsNotFound())
	assert.Equal(t, "/nowhere", res.Location())
}

func TestReadyLoginRedirectsRoot(t *testing.T) {
	f := newFixture(t, staticFetcher(testMenus(), nil))
	gen := f.session.SetLogin("tok", nil, false)
	f.session.SetMenus(gen, menu.Tree{})

	m, err := f.router.Resolve("/login")
	require.NoError(t, err)

	d := f.guard.Decide(context.Background(), m)
	assert.Equal(t, RedirectRoot, d.Outcome)
	assert.Equal(t, router.RootPath, d.Location)
}

func TestEmptyMenusStillLoad(t *testing.T) {
	f := newFixture(t, staticFetcher(menu.Tree{}, nil))
	f.session.SetLogin("tok", nil, false)

	res, err := f.navigator.Navigate(context.Background(), "/dashboard")
	require.NoError(t, err)
	assert.True(t, res.Match.IsNotFound())
	assert.True(t, f.session.MenusLoaded())
}

func TestFetchFailureLogsOut(t *testing.T) {
	fetchErr := errors.New("backend unavailable")
	f := newFixture(t, MenuFetcherFunc(func(context.Context, string) (menu.Tree, error) {
		return nil, fetchErr
	}))
	f.session.SetLogin("tok", nil, false)

	m, err := f.router.Resolve("/dashboard")
	require.NoError(t, err)

	d := f.guard.Decide(context.Background(), m)
	assert.Equal(t, RedirectLogin, d.Outcome)
	assert.Equal(t, "/login?redirect=/dashboard", d.Location)
	assert.ErrorIs(t, d.Err, fetchErr)
	assert.Equal(t, session.Unauthenticated, f.session.State())
	assert.Equal(t, 1.0, f.fetches("failure"))

	f.session.SetLogin("tok", nil, false)
	res, err := f.navigator.Navigate(context.Background(), "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "/login?redirect=/dashboard", res.Location())
}

func TestConcurrentNavigationsShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	f := newFixture(t, MenuFetcherFunc(func(context.Context, string) (menu.Tree, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return testMenus(), nil
	}))
	f.session.SetLogin("tok", nil, false)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*router.Result, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.navigator.Navigate(context.Background(), "/reports")
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, "Reports", results[i].Match.Name)
	}
	assert.Equal(t, 1.0, f.fetches("success"))
}

func TestLogoutDuringFetchDiscardsResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	f := newFixture(t, MenuFetcherFunc(func(context.Context, string) (menu.Tree, error) {
		close(started)
		<-release
		return testMenus(), nil
	}))
	f.session.SetLogin("tok", nil, false)

	m, err := f.router.Resolve("/reports")
	require.NoError(t, err)

	done := make(chan Decision)
	go func() { done <- f.guard.Decide(context.Background(), m) }()

	<-started
	f.session.Clear()
	close(release)

	d := <-done
	assert.Equal(t, RedirectLogin, d.Outcome)
	assert.Equal(t, "/login?redirect=/reports", d.Location)
	assert.NoError(t, d.Err)

	assert.False(t, f.session.MenusLoaded())
	assert.False(t, f.router.HasRoute("Reports"), "no routes are registered for a discarded fetch")
	assert.Equal(t, 1.0, f.fetches("discarded"))
}

func TestReloginDuringFetchFetchesAgain(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	f := newFixture(t, MenuFetcherFunc(func(context.Context, string) (menu.Tree, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return menu.Tree{{Name: "Stale", Path: "/stale", Component: "views/Ledger"}}, nil
		}
		return testMenus(), nil
	}))
	f.session.SetLogin("tok1", nil, false)

	done := make(chan *router.Result)
	go func() {
		res, err := f.navigator.Navigate(context.Background(), "/reports")
		assert.NoError(t, err)
		done <- res
	}()

	<-started
	f.session.SetLogin("tok2", nil, false)
	close(release)

	res := <-done
	require.NotNil(t, res)
	assert.Equal(t, "Reports", res.Match.Name)
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, f.router.HasRoute("Stale"))
	assert.Equal(t, 1.0, f.fetches("discarded"))
	assert.Equal(t, 1.0, f.fetches("success"))
}

func TestCanceledRequestDoesNotAbortSharedFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	f := newFixture(t, MenuFetcherFunc(func(ctx context.Context, _ string) (menu.Tree, error) {
		close(started)
		select {
		case <-release:
			return testMenus(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
	f.session.SetLogin("tok", nil, false)

	m, err := f.router.Resolve("/reports")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Decision)
	go func() { done <- f.guard.Decide(ctx, m) }()

	<-started
	cancel()
	close(release)

	d := <-done
	assert.Equal(t, RedirectTarget, d.Outcome)
	assert.True(t, f.session.MenusLoaded())
}

func TestNewMetricsSharedAcrossGuards(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewMetrics(reg)
	require.NoError(t, err)
	b, err := NewMetrics(reg)
	require.NoError(t, err)

	a.Decisions.Increment("allow")
	b.Decisions.Increment("allow")
	assert.Equal(t, 2.0, a.Decisions.(*metric.Counter).Value("allow"))
}

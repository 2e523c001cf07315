package guard

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/menu"
	"github.com/mchmarny/navd/pkg/metric"
	"github.com/mchmarny/navd/pkg/route"
	"github.com/mchmarny/navd/pkg/router"
	"github.com/mchmarny/navd/pkg/session"
)

// errDiscarded marks a fetch whose session changed while it was in flight.
var errDiscarded = errors.New("menu fetch result discarded")

// MenuFetcher loads the menu tree of the token's user.
type MenuFetcher interface {
	FetchMenus(ctx context.Context, token string) (menu.Tree, error)
}

// MenuFetcherFunc adapts a function to a MenuFetcher.
type MenuFetcherFunc func(ctx context.Context, token string) (menu.Tree, error)

// FetchMenus calls f.
func (f MenuFetcherFunc) FetchMenus(ctx context.Context, token string) (menu.Tree, error) {
	return f(ctx, token)
}

// Metrics are the guard counters. They are shared by the guards of all sessions.
type Metrics struct {
	Decisions metric.IncrementalCounter
	Fetches   metric.IncrementalCounter
}

// NewMetrics registers the guard counters with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	decisions, err := metric.NewCounterWithRegistry(reg,
		"navd_navigation_decisions_total",
		"Navigation guard decisions by outcome.",
		"outcome")
	if err != nil {
		return nil, err
	}

	fetches, err := metric.NewCounterWithRegistry(reg,
		"navd_menu_fetch_total",
		"Menu fetches by result.",
		"result")
	if err != nil {
		return nil, err
	}

	return &Metrics{Decisions: decisions, Fetches: fetches}, nil
}

func nopMetrics() *Metrics {
	return &Metrics{Decisions: metric.Nop(), Fetches: metric.Nop()}
}

// Guard evaluates navigations for one session against that session's router.
type Guard struct {
	session  *session.Session
	router   *router.Router
	registry *component.Registry
	fetcher  MenuFetcher
	flight   singleflight.Group
	metrics  *Metrics
	logger   *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithMetrics sets the counters the guard reports to.
func WithMetrics(m *Metrics) Option {
	return func(g *Guard) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithLogger sets the guard logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New creates the guard of a session.
func New(s *session.Session, r *router.Router, reg *component.Registry, f MenuFetcher, opts ...Option) *Guard {
	g := &Guard{
		session:  s,
		router:   r,
		registry: reg,
		fetcher:  f,
		metrics:  nopMetrics(),
		logger:   slog.Default().With("component", "guard", "session", s.ID()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Before implements router.Hook.
func (g *Guard) Before(ctx context.Context, to *router.Match) router.Verdict {
	return g.Decide(ctx, to).Verdict()
}

// Decide evaluates one navigation to the resolved target.
func (g *Guard) Decide(ctx context.Context, to *router.Match) Decision {
	d := g.decide(ctx, to)
	g.metrics.Decisions.Increment(d.Outcome.String())
	return d
}

func (g *Guard) decide(ctx context.Context, to *router.Match) Decision {
	switch g.session.State() {
	case session.Unauthenticated:
		if to.Name == router.LoginName {
			return Decision{Outcome: Allow}
		}
		return loginRedirect(to, nil)

	case session.AuthenticatedPendingMenus:
		err := g.loadMenus(ctx)
		switch {
		case err == nil:
			return Decision{Outcome: RedirectTarget, Location: to.FullPath, Replace: true}
		case errors.Is(err, errDiscarded):
			if !g.session.Authenticated() {
				return loginRedirect(to, nil)
			}
			return Decision{Outcome: RedirectTarget, Location: to.FullPath, Replace: true}
		default:
			return loginRedirect(to, err)
		}

	default:
		if to.Name == router.LoginName {
			return Decision{Outcome: RedirectRoot, Location: router.RootPath}
		}
		if to.IsNotFound() && g.registeredSince(to) {
			return Decision{Outcome: RedirectTarget, Location: to.FullPath, Replace: true}
		}
		return Decision{Outcome: Allow}
	}
}

// registeredSince reports whether a not-found match was resolved before the
// menu routes were registered and now resolves to a real route.
func (g *Guard) registeredSince(to *router.Match) bool {
	m, err := g.router.Resolve(to.FullPath)
	return err == nil && !m.IsNotFound()
}

func loginRedirect(to *router.Match, err error) Decision {
	return Decision{
		Outcome:  RedirectLogin,
		Location: LoginLocation(to.FullPath),
		Err:      err,
	}
}

// loadMenus runs one menu fetch per session generation; concurrent callers
// wait for and share its result.
func (g *Guard) loadMenus(ctx context.Context) error {
	gen := g.session.Generation()

	_, err, shared := g.flight.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return nil, g.fetchAndRegister(context.WithoutCancel(ctx), gen)
	})
	if shared {
		g.logger.Debug("joined in-flight menu fetch", "generation", gen)
	}
	return err
}

func (g *Guard) fetchAndRegister(ctx context.Context, gen uint64) error {
	if g.session.MenusLoaded() && g.session.Current(gen) {
		return nil
	}

	menus, err := g.fetcher.FetchMenus(ctx, g.session.Token())

	if !g.session.Current(gen) {
		g.metrics.Fetches.Increment("discarded")
		g.logger.Info("session changed during menu fetch, result discarded", "generation", gen)
		return errDiscarded
	}

	if err != nil {
		g.metrics.Fetches.Increment("failure")
		g.logger.Warn("menu fetch failed, logging session out", "error", err)
		g.session.Clear()
		return err
	}

	records := route.BuildRoot(menus, g.registry)
	added := g.router.Register(records)

	if !g.session.SetMenus(gen, menus) {
		g.metrics.Fetches.Increment("discarded")
		return errDiscarded
	}

	g.metrics.Fetches.Increment("success")
	g.logger.Info("menus loaded",
		"menus", menus.Count(),
		"routes_added", added)
	return nil
}

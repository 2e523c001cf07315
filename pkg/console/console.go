// Package console serves the administrative console over HTTP. Each browser
// page request is one navigation of the caller's session: it is resolved
// against that session's live router and decided by that session's guard.
package console

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mchmarny/navd/pkg/api"
	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/guard"
	"github.com/mchmarny/navd/pkg/router"
	"github.com/mchmarny/navd/pkg/session"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "navd_session"

	// CSRFCookieName is the name of the CSRF token cookie.
	CSRFCookieName = "navd_csrf"
)

// Authenticator is the login collaborator.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	FetchPerms(ctx context.Context, token string) ([]string, error)
}

// Backend is everything the console needs from the backend.
type Backend interface {
	guard.MenuFetcher
	Authenticator
}

// Config holds console settings.
type Config struct {
	// HomePath is where the root redirects.
	HomePath string

	// CookieSecure marks cookies Secure.
	CookieSecure bool

	// SessionTTL is the lifetime of remembered session cookies.
	SessionTTL time.Duration
}

// client is one session with its router, guard and navigator.
type client struct {
	session   *session.Session
	router    *router.Router
	guard     *guard.Guard
	navigator *router.Navigator
}

// Console is the HTTP console.
type Console struct {
	cfg       Config
	sessions  *session.Manager
	backend   Backend
	registry  *component.Registry
	metrics   *guard.Metrics
	mu        sync.Mutex
	clients   map[string]*client
	anonymous *client
	mux       *http.ServeMux
	logger    *slog.Logger
}

// Option configures a Console.
type Option func(*Console)

// WithMetrics sets the guard counters shared by all sessions.
func WithMetrics(m *guard.Metrics) Option {
	return func(c *Console) { c.metrics = m }
}

// New creates a console.
func New(sessions *session.Manager, backend Backend, reg *component.Registry, cfg Config, opts ...Option) *Console {
	if cfg.HomePath == "" {
		cfg.HomePath = router.DefaultHomePath
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}

	c := &Console{
		cfg:      cfg,
		sessions: sessions,
		backend:  backend,
		registry: reg,
		clients:  make(map[string]*client),
		mux:      http.NewServeMux(),
		logger:   slog.Default().With("component", "console"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.anonymous = c.newClient(session.New("anonymous"))

	c.mux.HandleFunc("POST "+router.LoginPath, c.handleLogin)
	c.mux.HandleFunc("POST /logout", c.handleLogout)
	c.mux.HandleFunc("GET /api/session", c.handleSessionInfo)
	c.mux.HandleFunc("GET /", c.handleNavigate)

	return c
}

// Handler returns the console HTTP handler.
func (c *Console) Handler() http.Handler {
	return c.mux
}

// Clients returns the number of sessions with a live router.
func (c *Console) Clients() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Sweep drops the routers of sessions that are no longer authenticated.
func (c *Console) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for id, cl := range c.clients {
		if !cl.session.Authenticated() {
			delete(c.clients, id)
			dropped++
		}
	}
	return dropped
}

func (c *Console) newClient(s *session.Session) *client {
	r := router.New(c.registry,
		router.WithHomePath(c.cfg.HomePath),
		router.WithLogger(c.logger.With("session", s.ID())))
	g := guard.New(s, r, c.registry, c.backend, guard.WithMetrics(c.metrics))

	return &client{
		session:   s,
		router:    r,
		guard:     g,
		navigator: router.NewNavigator(r, g),
	}
}

// clientFor returns the client of the request's session, or the anonymous
// client when the request carries no usable session.
func (c *Console) clientFor(r *http.Request) *client {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return c.anonymous
	}

	s, ok := c.sessions.Get(r.Context(), cookie.Value)
	if !ok || !s.Authenticated() {
		c.dropClient(cookie.Value)
		return c.anonymous
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[s.ID()]; ok && cl.session == s {
		return cl
	}

	cl := c.newClient(s)
	c.clients[s.ID()] = cl
	return cl
}

func (c *Console) dropClient(id string) {
	c.mu.Lock()
	delete(c.clients, id)
	c.mu.Unlock()
}

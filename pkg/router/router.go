package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/menu"
	"github.com/mchmarny/navd/pkg/route"
)

// Fixed route names and paths.
const (
	LoginName    = "Login"
	RootName     = "Root"
	NotFoundName = "NotFound"

	LoginPath = "/login"
	RootPath  = "/"

	// DefaultHomePath is where the root redirects when no home path is set.
	DefaultHomePath = "/dashboard"

	// maxRecordRedirects bounds record redirects followed in one resolution.
	maxRecordRedirects = 16
)

var (
	// ErrParentNotFound is returned when adding a route under an unknown parent.
	ErrParentNotFound = errors.New("parent route not found")

	// ErrDuplicateName is returned when adding a route whose name is taken.
	ErrDuplicateName = errors.New("route name already registered")

	// ErrRedirectLoop is returned when record redirects form a cycle.
	ErrRedirectLoop = errors.New("route redirect loop")
)

type entry struct {
	key      string
	record   *route.Record
	parent   string
	fullPath string
}

// Router is a live route table backed by a gorilla/mux router. Routes are
// matched in registration order; a path no route matches resolves to NotFound.
type Router struct {
	mu       sync.RWMutex
	mux      *mux.Router
	entries  map[string]*entry
	byRoute  map[*mux.Route]*entry
	order    []string
	notFound *route.Record
	homePath string
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithHomePath sets the path the root redirects to.
func WithHomePath(p string) Option {
	return func(r *Router) { r.homePath = menu.NormalizePath(p) }
}

// WithLogger sets the router logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router holding the fixed Login, Root and NotFound routes.
func New(reg *component.Registry, opts ...Option) *Router {
	r := &Router{
		mux:      mux.NewRouter(),
		entries:  make(map[string]*entry),
		byRoute:  make(map[*mux.Route]*entry),
		homePath: DefaultHomePath,
		logger:   slog.Default().With("component", "router"),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.notFound = &route.Record{
		Name:      NotFoundName,
		Tag:       component.PlaceholderTag,
		Component: reg.Placeholder(),
		Meta:      menu.Meta{Title: "Not found"},
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.addLocked("", &route.Record{
		Path:      LoginPath,
		Name:      LoginName,
		Tag:       component.LoginTag,
		Component: reg.Resolve(component.LoginTag),
		Meta:      menu.Meta{Title: "Sign in"},
	})

	root := &route.Record{
		Path:      RootPath,
		Name:      RootName,
		Tag:       component.LayoutTag,
		Component: reg.Resolve(component.LayoutTag),
		Meta:      menu.Meta{Title: "Home"},
	}
	if r.homePath != "" && r.homePath != RootPath {
		root.Redirect = r.homePath
	}
	r.addLocked("", root)

	return r
}

// HomePath returns the path the root redirects to.
func (r *Router) HomePath() string {
	return r.homePath
}

// HasRoute reports whether a route with the name is registered.
func (r *Router) HasRoute(name string) bool {
	if name == NotFoundName {
		return true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Routes returns the registered route keys in registration order.
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// FullPath returns the absolute path of a named route.
func (r *Router) FullPath(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return "", false
	}
	return e.fullPath, true
}

// AddRoute attaches rec and its descendants under the named parent.
func (r *Router) AddRoute(parent string, rec *route.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[parent]; !ok {
		return fmt.Errorf("adding %q under %q: %w", rec.Name, parent, ErrParentNotFound)
	}
	if _, ok := r.entries[rec.Name]; ok {
		return fmt.Errorf("adding %q: %w", rec.Name, ErrDuplicateName)
	}

	r.addLocked(parent, rec)
	return nil
}

// Register merges top-level records under Root. Records whose name is
// already registered, and unnamed records, are skipped, so calling Register
// again with the same table changes nothing. It returns the number of
// top-level records added.
func (r *Router) Register(records []*route.Record) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, rec := range records {
		if rec == nil || rec.Name == "" {
			continue
		}
		if _, ok := r.entries[rec.Name]; ok {
			r.logger.Debug("route already registered", "name", rec.Name)
			continue
		}
		r.addLocked(RootName, rec)
		added++
	}

	if added > 0 {
		r.logger.Debug("routes registered", "added", added, "total", len(r.order))
	}
	return added
}

// addLocked registers rec under parent and recurses into its children.
// Must be called with mu held.
func (r *Router) addLocked(parent string, rec *route.Record) {
	parentPath := ""
	if p, ok := r.entries[parent]; ok {
		parentPath = p.fullPath
	}

	full := route.JoinPath(parentPath, rec.Path)
	if parent == "" {
		full = menu.NormalizePath(rec.Path)
	}

	key := rec.Name
	if key == "" {
		key = "path:" + full
	}

	if _, ok := r.entries[key]; ok {
		r.logger.Warn("skipping nested route with duplicate name",
			"name", key,
			"parent", parent)
		return
	}

	e := &entry{
		key:      key,
		record:   rec,
		parent:   parent,
		fullPath: full,
	}

	mr := r.mux.Path(pathTemplate(full))
	if rec.Name != "" {
		mr = mr.Name(rec.Name)
	}
	if err := mr.GetError(); err != nil {
		r.logger.Warn("route path cannot be matched",
			"name", key,
			"path", full,
			"error", err)
	}

	r.entries[key] = e
	r.byRoute[mr] = e
	r.order = append(r.order, key)

	for _, child := range rec.Children {
		if child == nil {
			continue
		}
		r.addLocked(key, child)
	}
}

// Resolve matches fullPath against the live routes, following the redirects
// of matched records. Query and hash are kept across record redirects unless
// the redirect target sets its own.
func (r *Router) Resolve(fullPath string) (*Match, error) {
	u, err := url.Parse(fullPath)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", fullPath, err)
	}
	if u.Path == "" {
		u.Path = RootPath
	}

	var redirectedFrom string
	seen := make(map[string]bool)

	for range maxRecordRedirects {
		m := r.match(u)

		rec := m.Record()
		if rec == nil || rec.Redirect == "" {
			m.RedirectedFrom = redirectedFrom
			return m, nil
		}

		if seen[m.Path] {
			return nil, fmt.Errorf("resolving %q: %w", fullPath, ErrRedirectLoop)
		}
		seen[m.Path] = true

		if redirectedFrom == "" {
			redirectedFrom = m.FullPath
		}

		next, err := url.Parse(rec.Redirect)
		if err != nil {
			return nil, fmt.Errorf("parsing redirect %q of %q: %w", rec.Redirect, rec.Name, err)
		}
		if next.RawQuery == "" {
			next.RawQuery = u.RawQuery
		}
		if next.Fragment == "" {
			next.Fragment = u.Fragment
		}
		u = next
	}

	return nil, fmt.Errorf("resolving %q: %w", fullPath, ErrRedirectLoop)
}

// match resolves a single path without following redirects.
func (r *Router) match(u *url.URL) *Match {
	m := &Match{
		Path:     u.Path,
		FullPath: fullPath(u),
		Query:    u.Query(),
		Hash:     u.Fragment,
		Params:   map[string]string{},
	}

	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: u.Path, RawPath: u.RawPath}}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var rm mux.RouteMatch
	if !r.mux.Match(req, &rm) || rm.Route == nil {
		m.Name = NotFoundName
		m.Chain = []*route.Record{r.notFound}
		return m
	}

	e, ok := r.byRoute[rm.Route]
	if !ok {
		m.Name = NotFoundName
		m.Chain = []*route.Record{r.notFound}
		return m
	}

	m.Name = e.key
	for k, v := range rm.Vars {
		m.Params[k] = v
	}
	m.Chain = r.chainLocked(e)
	return m
}

// chainLocked lists the records from the outermost ancestor to e.
func (r *Router) chainLocked(e *entry) []*route.Record {
	var chain []*route.Record
	for cur := e; cur != nil; cur = r.entries[cur.parent] {
		chain = append(chain, cur.record)
		if cur.parent == "" {
			break
		}
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// pathTemplate converts ":param" segments into mux "{param}" variables.
func pathTemplate(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		if len(s) > 1 && s[0] == ':' {
			segments[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

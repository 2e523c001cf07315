package session

import (
	"slices"
	"sync"
	"time"

	"github.com/mchmarny/navd/pkg/menu"
)

// State is the guard-relevant state of a session.
type State int

const (
	// Unauthenticated sessions have no token.
	Unauthenticated State = iota
	// AuthenticatedPendingMenus sessions have a token but no menus yet.
	AuthenticatedPendingMenus
	// AuthenticatedReady sessions have a token and loaded menus.
	AuthenticatedReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedPendingMenus:
		return "pending_menus"
	case AuthenticatedReady:
		return "ready"
	default:
		return "unknown"
	}
}

// User is the signed-in user returned by login.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
}

// Info is a point-in-time copy of a session.
type Info struct {
	ID            string   `json:"id"`
	State         string   `json:"state"`
	Authenticated bool     `json:"authenticated"`
	User          *User    `json:"user,omitempty"`
	Persist       bool     `json:"persist"`
	MenusLoaded   bool     `json:"menusLoaded"`
	MenuCount     int      `json:"menuCount"`
	Perms         []string `json:"perms"`
	PermsLoaded   bool     `json:"permsLoaded"`
}

// Session is the authentication and menu state of one console client.
type Session struct {
	mu          sync.RWMutex
	id          string
	token       string
	user        *User
	persist     bool
	menus       menu.Tree
	menusLoaded bool
	perms       []string
	permsLoaded bool
	generation  uint64
	createdAt   time.Time

	onClear func(*Session)
}

// New creates an unauthenticated session.
func New(id string) *Session {
	return &Session{id: id, createdAt: time.Now()}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Token returns the bearer token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Persist reports whether the user asked to be remembered.
func (s *Session) Persist() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persist
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// State derives the guard state from the session fields.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.token == "":
		return Unauthenticated
	case !s.menusLoaded:
		return AuthenticatedPendingMenus
	default:
		return AuthenticatedReady
	}
}

// Generation returns the current generation.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Current reports whether the session is authenticated under generation gen.
func (s *Session) Current(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.generation == gen
}

// MenusLoaded reports whether the menu tree has been loaded.
func (s *Session) MenusLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.menusLoaded
}

// Menus returns the loaded menu tree.
func (s *Session) Menus() menu.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.menus
}

// Perms returns a copy of the loaded permissions.
func (s *Session) Perms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.perms)
}

// PermsLoaded reports whether permissions have been loaded.
func (s *Session) PermsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permsLoaded
}

// HasPerm reports whether the loaded permissions include perm.
func (s *Session) HasPerm(perm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.perms, perm)
}

// SetLogin authenticates the session and starts a new generation. Menus and
// permissions from any earlier login are dropped.
func (s *Session) SetLogin(token string, user *User, persist bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
	s.persist = persist
	s.menus = nil
	s.menusLoaded = false
	s.perms = nil
	s.permsLoaded = false
	s.generation++
	return s.generation
}

// SetMenus stores the menu tree and marks it loaded. It does nothing and
// returns false when the session left generation gen or is unauthenticated.
func (s *Session) SetMenus(gen uint64, menus menu.Tree) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" || s.generation != gen {
		return false
	}
	if menus == nil {
		menus = menu.Tree{}
	}
	s.menus = menus
	s.menusLoaded = true
	return true
}

// SetPerms stores the permission list under the same rules as SetMenus.
func (s *Session) SetPerms(gen uint64, perms []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" || s.generation != gen {
		return false
	}
	s.perms = slices.Clone(perms)
	s.permsLoaded = true
	return true
}

// Clear logs the session out: token, user, menus, permissions and the
// remember flag are dropped and a new generation starts.
func (s *Session) Clear() {
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.token = ""
	s.user = nil
	s.persist = false
	s.menus = nil
	s.menusLoaded = false
	s.perms = nil
	s.permsLoaded = false
	s.generation++
	hook := s.onClear
	s.mu.Unlock()

	if hook != nil && wasAuthenticated {
		hook(s)
	}
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:            s.id,
		State:         s.stateLocked().String(),
		Authenticated: s.token != "",
		Persist:       s.persist,
		MenusLoaded:   s.menusLoaded,
		MenuCount:     s.menus.Count(),
		Perms:         slices.Clone(s.perms),
		PermsLoaded:   s.permsLoaded,
	}
	if info.Perms == nil {
		info.Perms = []string{}
	}
	if s.user != nil {
		u := *s.user
		info.User = &u
	}
	return info
}

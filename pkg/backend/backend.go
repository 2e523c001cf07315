// Package backend is a development backend serving the login, menu and
// permission endpoints the console consumes, from a YAML fixture.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/mchmarny/navd/pkg/api"
	"github.com/mchmarny/navd/pkg/auth"
	"github.com/mchmarny/navd/pkg/menu"
	"github.com/mchmarny/navd/pkg/session"
)

const (
	// DefaultTokenTTL is the lifetime of issued tokens.
	DefaultTokenTTL = 24 * time.Hour

	maxLoginBody = 1 << 16
)

// ErrUnknownUser is returned when a token names a user missing from the fixture.
var ErrUnknownUser = errors.New("unknown user")

type account struct {
	row  UserRow
	hash []byte
}

// Backend serves a fixture.
type Backend struct {
	fixture  *Fixture
	accounts map[string]*account
	issuer   *auth.Issuer
	tokenTTL time.Duration
	router   *mux.Router
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.tokenTTL = d
		}
	}
}

// New creates a backend for the fixture. Plain passwords are hashed once here.
func New(f *Fixture, issuer *auth.Issuer, opts ...Option) (*Backend, error) {
	if f == nil {
		return nil, errors.New("fixture is required")
	}
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}

	b := &Backend{
		fixture:  f,
		accounts: make(map[string]*account, len(f.Users)),
		issuer:   issuer,
		tokenTTL: DefaultTokenTTL,
		router:   mux.NewRouter(),
		logger:   slog.Default().With("component", "backend"),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, u := range f.Users {
		hash := []byte(u.PasswordHash)
		if len(hash) == 0 {
			if u.Password == "" {
				return nil, fmt.Errorf("user %q has no password", u.Username)
			}
			h, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
			if err != nil {
				return nil, fmt.Errorf("hashing password of %q: %w", u.Username, err)
			}
			hash = h
		}
		b.accounts[u.Username] = &account{row: u, hash: hash}
	}

	b.router.HandleFunc(api.LoginPath, b.handleLogin).Methods(http.MethodPost)
	b.router.HandleFunc(api.MenusPath, b.authenticated(b.handleMenus)).Methods(http.MethodGet)
	b.router.HandleFunc(api.PermsPath, b.authenticated(b.handlePerms)).Methods(http.MethodGet)

	b.logger.Info("backend initialized",
		"users", len(b.accounts),
		"roles", len(f.Roles),
		"menus", len(f.Menus))

	return b, nil
}

// Handler returns the backend HTTP handler.
func (b *Backend) Handler() http.Handler {
	return b.router
}

// Authenticate checks the credentials and issues a token.
func (b *Backend) Authenticate(username, password string) (*api.LoginResponse, error) {
	acc, ok := b.accounts[username]
	if !ok || acc.row.Disabled {
		return nil, api.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, api.ErrUnauthorized
	}

	token, err := b.issuer.Generate(acc.row.Username, acc.row.ID, b.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	return &api.LoginResponse{
		Token: token,
		User: session.User{
			ID:       acc.row.ID,
			Username: acc.row.Username,
			Nickname: acc.row.Nickname,
		},
	}, nil
}

// MenusFor returns the menu tree the user's roles grant.
func (b *Backend) MenusFor(username string) (menu.Tree, error) {
	acc, ok := b.accounts[username]
	if !ok {
		return nil, ErrUnknownUser
	}
	return BuildTree(grantedRows(b.fixture, acc.row.Roles)), nil
}

// PermsFor returns the permissions the user's roles grant.
func (b *Backend) PermsFor(username string) ([]string, error) {
	acc, ok := b.accounts[username]
	if !ok {
		return nil, ErrUnknownUser
	}
	return permsOf(grantedRows(b.fixture, acc.row.Roles)), nil
}

type userHandler func(w http.ResponseWriter, r *http.Request, claims *auth.Claims)

// authenticated verifies the bearer token before calling next.
func (b *Backend) authenticated(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := b.issuer.Verify(token)
		if err != nil {
			b.logger.Debug("rejected token", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, r, claims)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := b.Authenticate(strings.TrimSpace(creds.Username), creds.Password)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			b.logger.Warn("login rejected", "username", creds.Username)
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		b.logger.Error("login failed", "username", creds.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	b.logger.Info("login accepted", "username", resp.User.Username)
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleMenus(w http.ResponseWriter, _ *http.Request, claims *auth.Claims) {
	tree, err := b.MenusFor(claims.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (b *Backend) handlePerms(w http.ResponseWriter, _ *http.Request, claims *auth.Claims) {
	perms, err := b.PermsFor(claims.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

func writeError(w http.ResponseWriter, status int, message string) {
	slog.Debug("handling error response",
		"status", status,
		"message", message,
	)
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, "error, see logs for details", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

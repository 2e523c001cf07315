package console

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/mchmarny/navd/pkg/api"
	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/guard"
	"github.com/mchmarny/navd/pkg/router"
	"github.com/mchmarny/navd/pkg/session"
)

// handleNavigate runs one navigation for the requested path and either
// renders the final match or redirects the browser to the final location.
func (c *Console) handleNavigate(w http.ResponseWriter, r *http.Request) {
	cl := c.clientFor(r)
	requested := r.URL.RequestURI()

	res, err := cl.navigator.Navigate(r.Context(), requested)
	if err != nil {
		c.logger.Error("navigation failed", "path", requested, "error", err)
		http.Error(w, "navigation failed", http.StatusInternalServerError)
		return
	}

	if cl != c.anonymous && !cl.session.Authenticated() {
		c.dropClient(cl.session.ID())
		c.clearSessionCookie(w)
	}

	if res.Redirected() {
		http.Redirect(w, r, res.Location(), http.StatusFound)
		return
	}

	csrf := c.ensureCSRFToken(w, r)
	c.render(w, r, cl, res.Match, csrf)
}

func (c *Console) render(w http.ResponseWriter, r *http.Request, cl *client, m *router.Match, csrf string) {
	page := &component.Page{
		FullPath: m.FullPath,
		Params:   m.Params,
		Query:    m.Query,
		Menus:    cl.session.Menus(),
		Perms:    cl.session.Perms(),
		CSRF:     csrf,
	}
	if u := cl.session.User(); u != nil {
		page.User = &component.User{ID: u.ID, Username: u.Username, Nickname: u.Nickname}
	}

	var buf bytes.Buffer
	view := component.NewView(m.Frames(), page)
	if err := view.Render(r.Context(), &buf); err != nil {
		c.logger.Error("render failed", "route", m.Name, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if m.IsNotFound() {
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (c *Console) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	target := sanitizeRedirect(r.FormValue(guard.RedirectParam))

	if !validateCSRF(r) {
		http.Redirect(w, r, loginErrorLocation(target, "Invalid request, please try again"), http.StatusSeeOther)
		return
	}

	creds := api.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if creds.Username == "" || creds.Password == "" {
		http.Redirect(w, r, loginErrorLocation(target, "Username and password required"), http.StatusSeeOther)
		return
	}
	remember := isChecked(r.FormValue("remember"))

	ctx := r.Context()

	resp, err := c.backend.Login(ctx, creds)
	if err != nil {
		c.logger.Warn("login failed", "username", creds.Username, "error", err)
		msg := "Login failed, please try again"
		if errors.Is(err, api.ErrUnauthorized) {
			msg = "Invalid username or password"
		}
		http.Redirect(w, r, loginErrorLocation(target, msg), http.StatusSeeOther)
		return
	}

	previous := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		previous = cookie.Value
		c.dropClient(previous)
	}

	s, err := c.sessions.Login(ctx, previous, resp.Token, resp.User, remember)
	if err != nil {
		c.logger.Error("failed to start session", "error", err)
		http.Redirect(w, r, loginErrorLocation(target, "Login failed, please try again"), http.StatusSeeOther)
		return
	}

	perms, err := c.backend.FetchPerms(ctx, resp.Token)
	if err != nil {
		c.logger.Warn("loading permissions failed", "username", creds.Username, "error", err)
		c.sessions.Logout(ctx, s.ID())
		http.Redirect(w, r, loginErrorLocation(target, "Login failed, please try again"), http.StatusSeeOther)
		return
	}
	s.SetPerms(s.Generation(), perms)

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(c.cfg.SessionTTL.Seconds())
	}
	http.SetCookie(w, cookie)

	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (c *Console) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid request", http.StatusForbidden)
		return
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		c.sessions.Logout(r.Context(), cookie.Value)
		c.dropClient(cookie.Value)
	}

	c.clearSessionCookie(w)
	http.Redirect(w, r, router.LoginPath, http.StatusSeeOther)
}

type sessionResponse struct {
	session.Info
	Routes []string `json:"routes"`
}

func (c *Console) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	cl := c.clientFor(r)

	resp := sessionResponse{
		Info:   cl.session.Info(),
		Routes: cl.router.Routes(),
	}
	if cl == c.anonymous {
		resp.ID = ""
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.logger.Error("failed to encode session", "error", err)
	}
}

func (c *Console) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ensureCSRFToken returns the request's CSRF token, issuing a new cookie
// when there is none.
func (c *Console) ensureCSRFToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		c.logger.Error("failed to generate CSRF token", "error", err)
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// validateCSRF checks the form token (or X-CSRF-Token header) against the cookie.
func validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// sanitizeRedirect keeps only same-origin absolute paths.
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return router.RootPath
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return router.RootPath
	}
	return target
}

func loginErrorLocation(target, msg string) string {
	loc := router.LoginPath + "?"
	if target != router.RootPath {
		loc = guard.LoginLocation(target) + "&"
	}
	return loc + "error=" + url.QueryEscape(msg)
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}

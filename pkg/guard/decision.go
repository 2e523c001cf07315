package guard

import (
	"net/url"
	"strings"

	"github.com/mchmarny/navd/pkg/router"
)

// Outcome is the terminal result of one guard evaluation.
type Outcome int

const (
	// Allow lets the navigation complete.
	Allow Outcome = iota
	// RedirectLogin sends the user to the login route with the target kept.
	RedirectLogin
	// RedirectTarget restarts the navigation on the original target.
	RedirectTarget
	// RedirectRoot sends an authenticated user away from the login route.
	RedirectRoot
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectTarget:
		return "redirect_target"
	case RedirectRoot:
		return "redirect_root"
	default:
		return "unknown"
	}
}

// Decision is the guard's answer for one navigation.
type Decision struct {
	Outcome  Outcome
	Location string
	Replace  bool

	// Err is the menu fetch error behind a RedirectLogin, if any.
	Err error
}

// Verdict converts the decision for the navigator.
func (d Decision) Verdict() router.Verdict {
	if d.Outcome == Allow {
		return router.Allow()
	}
	return router.RedirectTo(d.Location, d.Replace)
}

// RedirectParam is the login query parameter holding the resumable target.
const RedirectParam = "redirect"

var queryValueEncoder = strings.NewReplacer("%2F", "/", "%3A", ":", "%40", "@")

// LoginLocation returns the login path carrying target as the redirect
// parameter. Slashes stay readable: "/reports" -> "/login?redirect=/reports".
func LoginLocation(target string) string {
	if target == "" {
		return router.LoginPath
	}
	return router.LoginPath + "?" + RedirectParam + "=" + queryValueEncoder.Replace(url.QueryEscape(target))
}

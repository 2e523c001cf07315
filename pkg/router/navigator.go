package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxHops bounds the redirects a single navigation may follow.
const DefaultMaxHops = 10

// ErrTooManyRedirects is returned when a navigation keeps being redirected.
var ErrTooManyRedirects = errors.New("too many navigation redirects")

// Verdict is a hook's answer for one resolved target.
type Verdict struct {
	// Allow completes the navigation on the resolved match.
	Allow bool

	// Location is the next navigation target when Allow is false.
	Location string

	// Replace asks the caller to replace the current history entry.
	Replace bool
}

// Allow is the verdict that lets a navigation complete.
func Allow() Verdict {
	return Verdict{Allow: true}
}

// RedirectTo is the verdict that starts a new navigation to location.
func RedirectTo(location string, replace bool) Verdict {
	return Verdict{Location: location, Replace: replace}
}

// Hook is evaluated before every navigation completes.
type Hook interface {
	Before(ctx context.Context, to *Match) Verdict
}

// HookFunc adapts a function to a Hook.
type HookFunc func(ctx context.Context, to *Match) Verdict

// Before calls f.
func (f HookFunc) Before(ctx context.Context, to *Match) Verdict {
	return f(ctx, to)
}

// Result is a completed navigation.
type Result struct {
	// Requested is the path the navigation started from.
	Requested string

	// Match is the final resolved match.
	Match *Match

	// Hops lists the redirect locations followed, in order.
	Hops []string

	// Replace is set when the last redirect asked for replace semantics.
	Replace bool
}

// Redirected reports whether the navigation ended somewhere other than the
// requested location.
func (res *Result) Redirected() bool {
	return res.Match.FullPath != res.Requested
}

// Location returns the final full path.
func (res *Result) Location() string {
	return res.Match.FullPath
}

// Navigator runs navigations against a router.
type Navigator struct {
	router  *Router
	hook    Hook
	maxHops int
	logger  *slog.Logger
}

// NewNavigator creates a navigator. A nil hook allows every navigation.
func NewNavigator(r *Router, hook Hook) *Navigator {
	return &Navigator{
		router:  r,
		hook:    hook,
		maxHops: DefaultMaxHops,
		logger:  slog.Default().With("component", "navigator"),
	}
}

// Router returns the navigator's router.
func (n *Navigator) Router() *Router {
	return n.router
}

// Navigate resolves fullPath and runs the hook. Each redirect verdict starts
// a fresh resolution of its location.
func (n *Navigator) Navigate(ctx context.Context, fullPath string) (*Result, error) {
	res := &Result{Requested: fullPath}
	target := fullPath

	for hop := 0; ; hop++ {
		if hop > n.maxHops {
			return nil, fmt.Errorf("navigating to %q: %w", fullPath, ErrTooManyRedirects)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := n.router.Resolve(target)
		if err != nil {
			return nil, err
		}

		if n.hook == nil {
			res.Match = m
			return res, nil
		}

		v := n.hook.Before(ctx, m)
		if v.Allow {
			res.Match = m
			return res, nil
		}

		n.logger.Debug("navigation redirected",
			"from", m.FullPath,
			"to", v.Location,
			"replace", v.Replace)

		res.Hops = append(res.Hops, v.Location)
		res.Replace = v.Replace
		target = v.Location
	}
}

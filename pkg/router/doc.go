// Package router holds a session's live route table and the navigation loop
// that runs against it.
//
// Every router starts with three fixed routes: Login at /login, Root at /
// (the console shell) and the NotFound catch-all. Route tables built from the
// server menu are merged under Root by name, once:
//
//	r := router.New(component.Default(), router.WithHomePath("/dashboard"))
//	r.Register(route.BuildRoot(menus, reg))
//
// A Navigator resolves a path, asks its Hook for a verdict, and restarts the
// navigation from scratch on every redirect. A match is never reused across
// hops, so a path that matched NotFound before its routes were registered
// resolves to the real route on the next hop.
package router

// Package guard decides every navigation of a console session.
//
// The guard is a state machine over the session state:
//
//	Unauthenticated            -> login redirect carrying the requested path
//	AuthenticatedPendingMenus  -> fetch menus once, build and register routes,
//	                              then redirect to the requested path again
//	AuthenticatedReady + login -> redirect to the root
//	AuthenticatedReady         -> allow
//
// The menu fetch is the only blocking step. Concurrent navigations of one
// session share a single fetch. A failed fetch logs the session out; a fetch
// that completes after the session logged out is discarded.
package guard

// Package session holds the per-client authentication and menu state the
// navigation guard decides on.
//
// A Session moves through three states derived from its fields:
//
//   - Unauthenticated: no token.
//   - AuthenticatedPendingMenus: token set, menus not loaded yet.
//   - AuthenticatedReady: token set and menus loaded.
//
// Every login and every clear bumps the session generation. Work started
// under one generation (a menu fetch) applies its result only if the
// generation is unchanged when it finishes.
//
// The Manager owns the lifecycle (restore on first sight, set on login,
// clear on logout) and persists sessions whose user opted into "remember
// me". Sessions without that flag live in memory only.
package session

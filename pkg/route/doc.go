// Package route turns a server-declared menu tree into the nested route table
// mounted under the console root.
//
// Building is pure and never fails: unknown component tags resolve to the
// placeholder, empty child lists produce no redirect, and paths that do not
// sit under their parent fall back to a best-effort relative path.
//
//	records := route.BuildRoot(menus, component.Default())
//
// Child paths are relative to their parent so the table can be mounted under
// the fixed root at runtime. A directory record redirects to its first child.
package route

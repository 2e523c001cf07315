package menu

import "strings"

// PassThroughTag is the reserved component tag of a directory node that only
// hosts its nested routes.
const PassThroughTag = "RouteView"

// Meta is the display metadata of a menu node. It is carried through to the
// route table unchanged.
type Meta struct {
	// Title is the label shown in the navigation.
	Title string `json:"title" yaml:"title"`

	// Icon is an optional icon token.
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Node is one navigable unit declared by the server.
type Node struct {
	// Name is the process-unique identifier of the node, used as the route name.
	Name string `json:"name" yaml:"name"`

	// Path is the absolute path of the node. It may arrive without the leading slash.
	Path string `json:"path" yaml:"path"`

	// Component is the symbolic component tag. Empty or unknown tags render the placeholder.
	Component string `json:"component,omitempty" yaml:"component,omitempty"`

	// Meta is the display metadata.
	Meta Meta `json:"meta" yaml:"meta"`

	// Children are the nested nodes in server order. The first child is the
	// default target of the directory.
	Children []Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsDirectory reports whether the node has at least one child.
func (n *Node) IsDirectory() bool {
	return len(n.Children) > 0
}

// NormalizedPath returns the node path with a leading slash.
func (n *Node) NormalizedPath() string {
	return NormalizePath(n.Path)
}

// NormalizePath prefixes p with "/" when missing. The empty path stays empty.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

package route

import (
	"strings"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/menu"
)

// RootPath is the parent path of top-level records.
const RootPath = ""

// Record is one entry of the route table.
type Record struct {
	// Path is relative to the parent record.
	Path string `json:"path"`

	// Name is the registration key of the route.
	Name string `json:"name"`

	// Tag is the component tag the record was built from.
	Tag string `json:"component,omitempty"`

	// Component is the resolved binding.
	Component component.Binding `json:"-"`

	// Meta is copied from the menu node.
	Meta menu.Meta `json:"meta"`

	// Children are the nested records, nil for leaves.
	Children []*Record `json:"children,omitempty"`

	// Redirect is the absolute path of the first child, set on directories only.
	Redirect string `json:"redirect,omitempty"`
}

// IsDirectory reports whether the record has nested records.
func (r *Record) IsDirectory() bool {
	return len(r.Children) > 0
}

// Walk visits the record and its descendants depth-first.
func (r *Record) Walk(fn func(rec *Record, depth int)) {
	r.walk(0, fn)
}

func (r *Record) walk(depth int, fn func(rec *Record, depth int)) {
	fn(r, depth)
	for _, c := range r.Children {
		c.walk(depth+1, fn)
	}
}

// BuildRoot builds the records mounted directly under the root.
func BuildRoot(menus []menu.Node, reg *component.Registry) []*Record {
	return Build(menus, reg, RootPath)
}

// Build converts menus into route records relative to parentPath, keeping
// the input order.
func Build(menus []menu.Node, reg *component.Registry, parentPath string) []*Record {
	records := make([]*Record, 0, len(menus))

	for i := range menus {
		m := &menus[i]
		fullPath := m.NormalizedPath()
		hasChildren := m.IsDirectory()

		var binding component.Binding
		if hasChildren && m.Component == menu.PassThroughTag {
			binding = reg.PassThrough()
		} else {
			binding = reg.Resolve(m.Component)
		}

		rec := &Record{
			Path:      RelativePath(fullPath, parentPath),
			Name:      m.Name,
			Tag:       m.Component,
			Component: binding,
			Meta:      m.Meta,
		}

		if hasChildren {
			rec.Children = Build(m.Children, reg, fullPath)
			rec.Redirect = m.Children[0].NormalizedPath()
		}

		records = append(records, rec)
	}

	return records
}

// RelativePath returns fullPath relative to parentPath. Top-level paths lose
// their leading slash; nested paths lose the parent prefix and its trailing
// slash. A path outside its parent keeps everything but the leading slash.
func RelativePath(fullPath, parentPath string) string {
	full := menu.NormalizePath(fullPath)

	if parentPath == "/" {
		parentPath = ""
	}
	parent := menu.NormalizePath(parentPath)

	if parent == "" {
		return strings.TrimPrefix(full, "/")
	}

	prefix := parent + "/"
	if strings.HasPrefix(full, prefix) {
		return strings.TrimPrefix(full, prefix)
	}

	return strings.TrimPrefix(full, "/")
}

// JoinPath joins a relative record path onto its parent's absolute path.
func JoinPath(parentPath, rel string) string {
	parent := strings.TrimSuffix(menu.NormalizePath(parentPath), "/")
	if rel == "" {
		if parent == "" {
			return "/"
		}
		return parent
	}
	if strings.HasPrefix(rel, "/") {
		return rel
	}
	return parent + "/" + rel
}

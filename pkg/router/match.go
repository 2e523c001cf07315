package router

import (
	"net/url"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/route"
)

// Match is the result of resolving a path against the live routes.
type Match struct {
	// Name of the leaf route.
	Name string

	// Path is the matched path without query and hash.
	Path string

	// FullPath is the path with query and hash.
	FullPath string

	Query  url.Values
	Hash   string
	Params map[string]string

	// Chain lists the matched records from the outermost to the leaf.
	Chain []*route.Record

	// RedirectedFrom is the path originally requested when record redirects
	// were followed during resolution.
	RedirectedFrom string
}

// Record returns the leaf record.
func (m *Match) Record() *route.Record {
	if len(m.Chain) == 0 {
		return nil
	}
	return m.Chain[len(m.Chain)-1]
}

// IsNotFound reports whether the match is the catch-all route.
func (m *Match) IsNotFound() bool {
	return m.Name == NotFoundName
}

// Frames converts the chain into render frames.
func (m *Match) Frames() []component.Frame {
	frames := make([]component.Frame, 0, len(m.Chain))
	for _, rec := range m.Chain {
		frames = append(frames, component.Frame{
			Name:    rec.Name,
			Meta:    rec.Meta,
			Binding: rec.Component,
		})
	}
	return frames
}

func fullPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		p += "#" + u.EscapedFragment()
	}
	return p
}

package component

import (
	"context"
	"io"
	"net/url"
	"slices"

	"github.com/mchmarny/navd/pkg/menu"
)

// User is the signed-in user shown by the console shell.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
}

// DisplayName returns the nickname, or the username when no nickname is set.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// Page carries the request-scoped data every binding may read.
type Page struct {
	FullPath string
	Params   map[string]string
	Query    url.Values
	User     *User
	Menus    menu.Tree
	Perms    []string
	CSRF     string
}

// HasPerm reports whether the page's user holds the permission.
func (p *Page) HasPerm(perm string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Perms, perm)
}

// Frame is one matched route level: the outermost frame is the root layout,
// the innermost the leaf page.
type Frame struct {
	Name    string
	Meta    menu.Meta
	Binding Binding
}

// View is a matched route chain positioned at one depth.
type View struct {
	Frames []Frame
	Page   *Page
	depth  int
}

// NewView creates a view positioned at the outermost frame.
func NewView(frames []Frame, page *Page) *View {
	if page == nil {
		page = &Page{}
	}
	return &View{Frames: frames, Page: page}
}

// Depth returns the index of the frame the view is positioned at.
func (v *View) Depth() int {
	return v.depth
}

// Current returns the frame at the view's depth.
func (v *View) Current() (Frame, bool) {
	if v.depth < 0 || v.depth >= len(v.Frames) {
		return Frame{}, false
	}
	return v.Frames[v.depth], true
}

// Leaf returns the innermost frame.
func (v *View) Leaf() (Frame, bool) {
	if len(v.Frames) == 0 {
		return Frame{}, false
	}
	return v.Frames[len(v.Frames)-1], true
}

// Title returns the leaf frame title.
func (v *View) Title() string {
	leaf, ok := v.Leaf()
	if !ok {
		return ""
	}
	return leaf.Meta.Title
}

// Render renders the frame at the current depth.
func (v *View) Render(ctx context.Context, w io.Writer) error {
	frame, ok := v.Current()
	if !ok || frame.Binding == nil {
		return nil
	}
	return frame.Binding.Render(ctx, w, v)
}

// Outlet renders the next nested frame. An outlet past the leaf renders nothing.
func (v *View) Outlet(ctx context.Context, w io.Writer) error {
	next := &View{Frames: v.Frames, Page: v.Page, depth: v.depth + 1}
	return next.Render(ctx, w)
}

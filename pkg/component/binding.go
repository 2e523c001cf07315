package component

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/mchmarny/navd/pkg/menu"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"path": menu.NormalizePath,
}).ParseFS(templateFS, "templates/*.html"))

// Binding is a renderable unit selected by a component tag.
type Binding interface {
	Render(ctx context.Context, w io.Writer, v *View) error
}

// BindingFunc adapts a function to a Binding.
type BindingFunc func(ctx context.Context, w io.Writer, v *View) error

// Render calls f.
func (f BindingFunc) Render(ctx context.Context, w io.Writer, v *View) error {
	return f(ctx, w, v)
}

// passThrough renders whatever nested route matched below it.
type passThrough struct{}

func (passThrough) Render(ctx context.Context, w io.Writer, v *View) error {
	return v.Outlet(ctx, w)
}

// PassThrough returns the binding that only renders the matched nested route.
func PassThrough() Binding {
	return passThrough{}
}

// IsPassThrough reports whether b is the pass-through binding.
func IsPassThrough(b Binding) bool {
	_, ok := b.(passThrough)
	return ok
}

type templateData struct {
	Title  string
	Page   *Page
	Outlet template.HTML
}

// templateBinding renders one of the embedded templates. When nested is set
// the outlet is rendered first and handed to the template.
type templateBinding struct {
	name   string
	title  string
	nested bool
}

func (b *templateBinding) Render(ctx context.Context, w io.Writer, v *View) error {
	data := templateData{Title: b.title, Page: v.Page}
	if t := v.Title(); t != "" {
		data.Title = t
	}

	if b.nested {
		var buf bytes.Buffer
		if err := v.Outlet(ctx, &buf); err != nil {
			return err
		}
		data.Outlet = template.HTML(buf.String()) //nolint:gosec // produced by our own templates
	}

	if err := templates.ExecuteTemplate(w, b.name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", b.name, err)
	}
	return nil
}

// Layout returns the console shell binding: navigation built from the
// session menus with the nested route rendered in its content area.
func Layout() Binding {
	return &templateBinding{name: "layout.html", title: "Console", nested: true}
}

// Placeholder returns the fallback binding for unknown component tags.
func Placeholder() Binding {
	return &templateBinding{name: "placeholder.html", title: "Not available"}
}

// LoginForm returns the login page binding.
func LoginForm() Binding {
	return &templateBinding{name: "login.html", title: "Sign in"}
}

// NewPage returns a content page binding with a default title.
func NewPage(title string) Binding {
	return &templateBinding{name: "page.html", title: title}
}

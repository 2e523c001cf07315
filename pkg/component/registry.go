package component

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mchmarny/navd/pkg/menu"
)

// Tags of the built-in bindings.
const (
	LayoutTag      = "Layout"
	LoginTag       = "Login"
	PlaceholderTag = "views/Placeholder"
)

var (
	// ErrFrozen is returned when registering into a frozen registry.
	ErrFrozen = errors.New("component registry is frozen")

	// ErrEmptyTag is returned when registering a binding without a tag.
	ErrEmptyTag = errors.New("component tag is empty")
)

// Registry maps a closed set of component tags to bindings. Tags received
// from the server are only ever used as lookup keys.
type Registry struct {
	mu          sync.RWMutex
	bindings    map[string]Binding
	placeholder Binding
	frozen      bool
}

// NewRegistry creates a registry that falls back to placeholder for unknown
// tags. The pass-through tag is always registered.
func NewRegistry(placeholder Binding) *Registry {
	if placeholder == nil {
		placeholder = Placeholder()
	}

	return &Registry{
		bindings: map[string]Binding{
			menu.PassThroughTag: PassThrough(),
			PlaceholderTag:      placeholder,
		},
		placeholder: placeholder,
	}
}

// Register binds a tag. Re-registering a tag replaces the binding.
func (r *Registry) Register(tag string, b Binding) error {
	if tag == "" {
		return ErrEmptyTag
	}
	if b == nil {
		return fmt.Errorf("registering %q: nil binding", tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registering %q: %w", tag, ErrFrozen)
	}

	r.bindings[tag] = b
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// package-level wiring at startup.
func (r *Registry) MustRegister(tag string, b Binding) *Registry {
	if err := r.Register(tag, b); err != nil {
		panic(err)
	}
	return r
}

// Freeze closes the registry. Later registrations fail with ErrFrozen.
func (r *Registry) Freeze() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	return r
}

// Resolve returns the binding for tag, or the placeholder when the tag is
// empty or unknown.
func (r *Registry) Resolve(tag string) Binding {
	if tag == "" {
		return r.placeholder
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.bindings[tag]; ok {
		return b
	}
	return r.placeholder
}

// Has reports whether tag is registered.
func (r *Registry) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[tag]
	return ok
}

// PassThrough returns the registered pass-through binding.
func (r *Registry) PassThrough() Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindings[menu.PassThroughTag]
}

// Placeholder returns the fallback binding.
func (r *Registry) Placeholder() Binding {
	return r.placeholder
}

// Tags returns the registered tags sorted by name.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.bindings))
	for tag := range r.bindings {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// views are the console pages known to this build, keyed by tag.
var views = map[string]string{
	"views/Dashboard":        "Dashboard",
	"views/Ledger":           "Ledger",
	"views/Profile":          "Profile",
	"views/SystemUsers":      "Users",
	"views/SystemRoles":      "Roles",
	"views/BaseProducts":     "Products",
	"views/BaseWarehouses":   "Warehouses",
	"views/BasePartners":     "Partners",
	"views/BaseCategories":   "Categories",
	"views/WmsStocks":        "Stock",
	"views/WmsStockInBills":  "Stock-in bills",
	"views/WmsStockOutBills": "Stock-out bills",
	"views/WmsStockLogs":     "Stock logs",
}

// Default returns a frozen registry with the console shell, the login form
// and all known pages.
func Default() *Registry {
	r := NewRegistry(Placeholder())
	r.MustRegister(LayoutTag, Layout())
	r.MustRegister(LoginTag, LoginForm())
	for tag, title := range views {
		r.MustRegister(tag, NewPage(title))
	}
	return r.Freeze()
}

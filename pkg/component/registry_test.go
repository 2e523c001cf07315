package component

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/navd/pkg/menu"
)

func staticBinding(s string) Binding {
	return BindingFunc(func(_ context.Context, w io.Writer, _ *View) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func render(t *testing.T, b Binding) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, b.Render(context.Background(), &buf, NewView(nil, nil)))
	return buf.String()
}

func TestRegistryResolve(t *testing.T) {
	placeholder := staticBinding("placeholder")
	reg := NewRegistry(placeholder)
	require.NoError(t, reg.Register("views/Reports", staticBinding("reports")))

	assert.Equal(t, "reports", render(t, reg.Resolve("views/Reports")))
	assert.Equal(t, "placeholder", render(t, reg.Resolve("views/Unknown")))
	assert.Equal(t, "placeholder", render(t, reg.Resolve("")))
	assert.Equal(t, "placeholder", render(t, reg.Resolve(PlaceholderTag)))

	assert.True(t, reg.Has(menu.PassThroughTag))
	assert.True(t, IsPassThrough(reg.Resolve(menu.PassThroughTag)))
	assert.True(t, IsPassThrough(reg.PassThrough()))
	assert.False(t, IsPassThrough(reg.Placeholder()))
}

func TestRegistryNilPlaceholder(t *testing.T) {
	reg := NewRegistry(nil)
	assert.NotNil(t, reg.Placeholder())
	assert.Contains(t, render(t, reg.Resolve("missing")), "not available")
}

func TestRegistryRegisterErrors(t *testing.T) {
	reg := NewRegistry(nil)

	assert.ErrorIs(t, reg.Register("", staticBinding("x")), ErrEmptyTag)
	assert.Error(t, reg.Register("views/X", nil))

	reg.Freeze()
	assert.ErrorIs(t, reg.Register("views/Late", staticBinding("late")), ErrFrozen)
	assert.False(t, reg.Has("views/Late"))

	assert.Panics(t, func() { reg.MustRegister("views/Late", staticBinding("late")) })
}

func TestRegistryReplace(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register("views/A", staticBinding("one")))
	require.NoError(t, reg.Register("views/A", staticBinding("two")))
	assert.Equal(t, "two", render(t, reg.Resolve("views/A")))
}

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	tags := reg.Tags()
	assert.IsIncreasing(t, tags)
	for _, tag := range []string{LayoutTag, LoginTag, PlaceholderTag, menu.PassThroughTag, "views/Dashboard", "views/WmsStocks"} {
		assert.Contains(t, tags, tag)
	}

	assert.ErrorIs(t, reg.Register("views/New", staticBinding("x")), ErrFrozen)
	assert.Contains(t, render(t, reg.Resolve("views/SystemUsers")), "Users")
}

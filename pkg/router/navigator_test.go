package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/navd/pkg/component"
)

func TestNavigateWithoutHook(t *testing.T) {
	n := NewNavigator(New(component.Default()), nil)

	res, err := n.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	assert.Equal(t, LoginName, res.Match.Name)
	assert.False(t, res.Redirected())
	assert.Empty(t, res.Hops)
}

func TestNavigateFollowsVerdicts(t *testing.T) {
	r := New(component.Default())

	var seen []string
	hook := HookFunc(func(_ context.Context, to *Match) Verdict {
		seen = append(seen, to.FullPath)
		if to.Name == LoginName {
			return Allow()
		}
		return RedirectTo("/login?redirect="+to.Path, false)
	})

	res, err := NewNavigator(r, hook).Navigate(context.Background(), "/reports")
	require.NoError(t, err)

	assert.Equal(t, []string{"/reports", "/login?redirect=/reports"}, seen)
	assert.Equal(t, []string{"/login?redirect=/reports"}, res.Hops)
	assert.True(t, res.Redirected())
	assert.Equal(t, "/login?redirect=/reports", res.Location())
	assert.Equal(t, LoginName, res.Match.Name)
}

func TestNavigateSameTargetIsNotRedirected(t *testing.T) {
	r := New(component.Default())

	calls := 0
	hook := HookFunc(func(_ context.Context, to *Match) Verdict {
		calls++
		if calls == 1 {
			return RedirectTo(to.FullPath, true)
		}
		return Allow()
	})

	res, err := NewNavigator(r, hook).Navigate(context.Background(), "/reports?x=1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, res.Replace)
	assert.False(t, res.Redirected())
}

func TestNavigateHopBound(t *testing.T) {
	r := New(component.Default())
	hook := HookFunc(func(_ context.Context, to *Match) Verdict {
		return RedirectTo(to.FullPath, false)
	})

	_, err := NewNavigator(r, hook).Navigate(context.Background(), "/spin")
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestNavigateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNavigator(New(component.Default()), nil).Navigate(ctx, "/login")
	assert.ErrorIs(t, err, context.Canceled)
}

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mchmarny/navd/pkg/menu"
)

func TestSessionLifecycle(t *testing.T) {
	s := New("s1")
	assert.Equal(t, Unauthenticated, s.State())
	assert.False(t, s.Authenticated())
	assert.Equal(t, uint64(0), s.Generation())

	gen := s.SetLogin("tok", &User{ID: 7, Username: "admin"}, true)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, AuthenticatedPendingMenus, s.State())
	assert.True(t, s.Current(gen))
	assert.True(t, s.Persist())
	assert.Equal(t, "admin", s.User().Username)

	assert.True(t, s.SetMenus(gen, menu.Tree{{Name: "Dashboard", Path: "/dashboard"}}))
	assert.Equal(t, AuthenticatedReady, s.State())
	assert.Len(t, s.Menus(), 1)

	assert.True(t, s.SetPerms(gen, []string{"sys:user:view"}))
	assert.True(t, s.HasPerm("sys:user:view"))
	assert.False(t, s.HasPerm("sys:user:add"))

	s.Clear()
	assert.Equal(t, Unauthenticated, s.State())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
	assert.False(t, s.Persist())
	assert.False(t, s.MenusLoaded())
	assert.False(t, s.PermsLoaded())
	assert.Empty(t, s.Perms())
	assert.False(t, s.Current(gen))
}

func TestSetMenusRejectsStaleGeneration(t *testing.T) {
	s := New("s1")

	assert.False(t, s.SetMenus(0, menu.Tree{}), "unauthenticated")

	gen := s.SetLogin("tok", nil, false)
	s.Clear()
	assert.False(t, s.SetMenus(gen, menu.Tree{}))
	assert.False(t, s.SetPerms(gen, []string{"a"}))

	next := s.SetLogin("tok2", nil, false)
	assert.False(t, s.SetMenus(gen, menu.Tree{}))
	assert.True(t, s.SetMenus(next, nil))
	assert.NotNil(t, s.Menus())
	assert.True(t, s.MenusLoaded())
}

func TestSetLoginResetsMenus(t *testing.T) {
	s := New("s1")
	gen := s.SetLogin("tok", nil, false)
	s.SetMenus(gen, menu.Tree{{Name: "A"}})
	s.SetPerms(gen, []string{"p"})

	s.SetLogin("tok2", nil, false)
	assert.Equal(t, AuthenticatedPendingMenus, s.State())
	assert.Nil(t, s.Menus())
	assert.False(t, s.PermsLoaded())
}

func TestClearHook(t *testing.T) {
	s := New("s1")
	calls := 0
	s.onClear = func(*Session) { calls++ }

	s.Clear()
	assert.Equal(t, 0, calls, "clearing an unauthenticated session is silent")

	s.SetLogin("tok", nil, false)
	s.Clear()
	assert.Equal(t, 1, calls)
}

func TestInfo(t *testing.T) {
	s := New("s1")
	info := s.Info()
	assert.Equal(t, "s1", info.ID)
	assert.Equal(t, "unauthenticated", info.State)
	assert.NotNil(t, info.Perms)
	assert.Nil(t, info.User)

	gen := s.SetLogin("tok", &User{Username: "admin"}, true)
	s.SetMenus(gen, menu.Tree{{Name: "A", Children: []menu.Node{{Name: "B"}}}})

	info = s.Info()
	assert.Equal(t, "ready", info.State)
	assert.True(t, info.Authenticated)
	assert.Equal(t, 2, info.MenuCount)
	assert.Equal(t, "admin", info.User.Username)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending_menus", AuthenticatedPendingMenus.String())
	assert.Equal(t, "unknown", State(42).String())
}

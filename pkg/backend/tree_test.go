package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/menu"
)

func intp(i int) *int { return &i }

func TestBuildTree(t *testing.T) {
	rows := []MenuRow{
		{ID: 5, ParentID: 0, Name: "Reports", Path: "/reports", Type: MenuTypePage, Sort: intp(3)},
		{ID: 1, ParentID: 0, Name: "Dashboard", Path: "/dashboard", Component: "views/Dashboard", Type: MenuTypePage, Sort: intp(1), Icon: "odometer"},
		{ID: 2, ParentID: 0, Name: "System", Title: "System settings", Path: "/system", Type: MenuTypeDirectory, Sort: intp(2)},
		{ID: 4, ParentID: 2, Name: "SystemRoles", Path: "/system/roles", Component: "views/SystemRoles", Type: MenuTypePage, Sort: intp(1)},
		{ID: 3, ParentID: 2, Name: "SystemUsers", Path: "/system/users", Component: "views/SystemUsers", Type: MenuTypePage, Sort: intp(1)},
		{ID: 6, ParentID: 3, Name: "SystemUsersAdd", Type: MenuTypeButton, Perms: "sys:user:add"},
		{ID: 7, ParentID: 0, Name: "Unsorted", Path: "/unsorted", Component: "views/Ledger", Type: MenuTypePage},
		{ID: 8, ParentID: 99, Name: "Orphan", Path: "/orphan", Type: MenuTypePage},
	}

	tree := BuildTree(rows)

	names := make([]string, 0, len(tree))
	for _, n := range tree {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"Dashboard", "System", "Reports", "Unsorted"}, names)

	assert.Equal(t, "odometer", tree[0].Meta.Icon)
	assert.Equal(t, "Dashboard", tree[0].Meta.Title, "title defaults to the name")

	sys := tree[1]
	assert.Equal(t, menu.PassThroughTag, sys.Component)
	assert.Equal(t, "System settings", sys.Meta.Title)
	require.Len(t, sys.Children, 2)
	assert.Equal(t, "SystemUsers", sys.Children[0].Name, "equal sort falls back to id")
	assert.Equal(t, "SystemRoles", sys.Children[1].Name)
	assert.Nil(t, sys.Children[0].Children, "button rows never become nodes")

	assert.Equal(t, component.PlaceholderTag, tree[2].Component)
	assert.Equal(t, 6, tree.Count())
}

func TestBuildTreeDirectoryWithComponent(t *testing.T) {
	tree := BuildTree([]MenuRow{
		{ID: 1, Name: "Wms", Path: "/wms", Component: "views/WmsStocks", Type: "m"},
		{ID: 2, ParentID: 1, Name: "WmsLogs", Path: "/wms/logs", Component: "views/WmsStockLogs", Type: MenuTypePage},
	})
	require.Len(t, tree, 1)
	assert.Equal(t, "views/WmsStocks", tree[0].Component)
	assert.Len(t, tree[0].Children, 1)
}

func TestBuildTreeEmpty(t *testing.T) {
	tree := BuildTree(nil)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestPermsOf(t *testing.T) {
	perms := permsOf([]MenuRow{
		{Perms: "b:view"},
		{Perms: " a:view , b:view"},
		{Perms: ""},
		{Perms: "c:edit,"},
	})
	assert.Equal(t, []string{"a:view", "b:view", "c:edit"}, perms)
	assert.NotNil(t, permsOf(nil))
}

func TestGrantedRows(t *testing.T) {
	f := &Fixture{
		Roles: []RoleRow{
			{Key: "all", Menus: []string{AllMenus}},
			{Key: "some", Menus: []string{"1", "3"}},
		},
		Menus: []MenuRow{{ID: 1}, {ID: 2}, {ID: 3}},
	}

	assert.Len(t, grantedRows(f, []string{"all"}), 3)
	assert.Len(t, grantedRows(f, []string{"some"}), 2)
	assert.Len(t, grantedRows(f, []string{"some", "all"}), 3)
	assert.Empty(t, grantedRows(f, []string{"missing"}))
	assert.Empty(t, grantedRows(f, nil))
}

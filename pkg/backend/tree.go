package backend

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/menu"
)

// BuildTree assembles the menu tree from flat rows. Siblings are ordered by
// sort (rows without one last) and then id; button rows are dropped;
// directory rows without a component become pass-through nodes and other
// rows without one fall back to the placeholder. Rows whose parent is not in
// rows are unreachable and left out.
func BuildTree(rows []MenuRow) menu.Tree {
	grouped := make(map[int64][]MenuRow)
	for _, row := range rows {
		grouped[row.ParentID] = append(grouped[row.ParentID], row)
	}
	return buildLevel(0, grouped)
}

func buildLevel(parentID int64, grouped map[int64][]MenuRow) menu.Tree {
	var level []MenuRow
	for _, row := range grouped[parentID] {
		if strings.EqualFold(row.Type, MenuTypeButton) {
			continue
		}
		level = append(level, row)
	}

	slices.SortStableFunc(level, func(a, b MenuRow) int {
		switch {
		case a.Sort == nil && b.Sort != nil:
			return 1
		case a.Sort != nil && b.Sort == nil:
			return -1
		case a.Sort != nil && b.Sort != nil && *a.Sort != *b.Sort:
			return cmp.Compare(*a.Sort, *b.Sort)
		}
		return cmp.Compare(a.ID, b.ID)
	})

	tree := make(menu.Tree, 0, len(level))
	for _, row := range level {
		title := row.Title
		if title == "" {
			title = row.Name
		}

		node := menu.Node{
			Name:      row.Name,
			Path:      row.Path,
			Component: resolveComponent(row),
			Meta:      menu.Meta{Title: title, Icon: row.Icon},
		}
		if children := buildLevel(row.ID, grouped); len(children) > 0 {
			node.Children = children
		}
		tree = append(tree, node)
	}
	return tree
}

func resolveComponent(row MenuRow) string {
	if strings.EqualFold(row.Type, MenuTypeDirectory) && strings.TrimSpace(row.Component) == "" {
		return menu.PassThroughTag
	}
	if row.Component == "" {
		return component.PlaceholderTag
	}
	return row.Component
}

// grantedRows returns the menu rows granted by the roles.
func grantedRows(f *Fixture, roles []string) []MenuRow {
	ids := make(map[string]bool)
	all := false
	for _, key := range roles {
		for _, role := range f.Roles {
			if role.Key != key {
				continue
			}
			for _, id := range role.Menus {
				if id == AllMenus {
					all = true
				}
				ids[id] = true
			}
		}
	}

	var rows []MenuRow
	for _, row := range f.Menus {
		if all || ids[strconv.FormatInt(row.ID, 10)] {
			rows = append(rows, row)
		}
	}
	return rows
}

// permsOf returns the distinct, sorted, non-blank perms of rows.
func permsOf(rows []MenuRow) []string {
	set := make(map[string]bool)
	for _, row := range rows {
		for _, p := range strings.Split(row.Perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				set[p] = true
			}
		}
	}

	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	slices.Sort(perms)
	return perms
}

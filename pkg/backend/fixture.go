package backend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Menu types of a fixture row.
const (
	// MenuTypeDirectory rows group other rows.
	MenuTypeDirectory = "M"
	// MenuTypePage rows are navigable pages.
	MenuTypePage = "C"
	// MenuTypeButton rows only carry a permission and never become routes.
	MenuTypeButton = "F"
)

// AllMenus in a role's menu list grants every menu row.
const AllMenus = "*"

// Fixture is the data the dev backend serves.
type Fixture struct {
	Users []UserRow `yaml:"users"`
	Roles []RoleRow `yaml:"roles"`
	Menus []MenuRow `yaml:"menus"`
}

// UserRow is a login account. Either Password or PasswordHash (bcrypt) is set.
type UserRow struct {
	ID           int64    `yaml:"id"`
	Username     string   `yaml:"username"`
	Nickname     string   `yaml:"nickname"`
	Password     string   `yaml:"password"`
	PasswordHash string   `yaml:"password_hash"`
	Roles        []string `yaml:"roles"`
	Disabled     bool     `yaml:"disabled"`
}

// RoleRow grants menu rows, by id, or all of them with "*".
type RoleRow struct {
	Key   string   `yaml:"key"`
	Menus []string `yaml:"menus"`
}

// MenuRow is one flat menu row; the tree is rebuilt from parent ids.
type MenuRow struct {
	ID        int64  `yaml:"id"`
	ParentID  int64  `yaml:"parent_id"`
	Name      string `yaml:"name"`
	Title     string `yaml:"title"`
	Path      string `yaml:"path"`
	Component string `yaml:"component"`
	Type      string `yaml:"type"`
	Perms     string `yaml:"perms"`
	Icon      string `yaml:"icon"`
	Sort      *int   `yaml:"sort"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	seen := make(map[string]bool)
	for _, u := range f.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("fixture user %d: username is required", u.ID)
		}
		if seen[u.Username] {
			return nil, fmt.Errorf("fixture user %q: duplicate username", u.Username)
		}
		seen[u.Username] = true
	}

	return &f, nil
}

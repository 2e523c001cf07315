package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tree is an ordered list of top-level menu nodes.
type Tree []Node

// Walk visits every node depth-first in server order.
// Returning false from fn stops the descent into that node's children.
func (t Tree) Walk(fn func(n *Node, depth int) bool) {
	walk(t, 0, fn)
}

func walk(nodes []Node, depth int, fn func(n *Node, depth int) bool) {
	for i := range nodes {
		if fn(&nodes[i], depth) {
			walk(nodes[i].Children, depth+1, fn)
		}
	}
}

// Find returns the first node with the given name.
func (t Tree) Find(name string) (*Node, bool) {
	var found *Node
	t.Walk(func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Name == name {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Count returns the number of nodes in the tree.
func (t Tree) Count() int {
	count := 0
	t.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Decode parses a menu tree. JSON is detected by a leading '[';
// everything else is read as YAML.
func Decode(data []byte) (Tree, error) {
	var tree Tree

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Tree{}, nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &tree); err != nil {
			return nil, fmt.Errorf("decoding menu json: %w", err)
		}
		return tree, nil
	}

	if err := yaml.Unmarshal(trimmed, &tree); err != nil {
		return nil, fmt.Errorf("decoding menu yaml: %w", err)
	}
	return tree, nil
}

// Load reads a menu tree from a JSON or YAML file.
func Load(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading menu file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		var tree Tree
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("decoding menu json: %w", err)
		}
		return tree, nil
	}

	return Decode(data)
}

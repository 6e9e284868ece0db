// Package menu holds the console's navigation tree and filters it per role.
package menu

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/merchant-console/internal/domain"
)

//go:embed menu.yaml
var defaultMenu []byte

// Node is one entry of the navigation tree. A nil Roles list means the node is unrestricted;
// definitions loaded through Load always declare roles.
type Node struct {
	Path     string        `yaml:"path" json:"path" validate:"required,startswith=/"`
	Name     string        `yaml:"name" json:"name" validate:"required"`
	Label    string        `yaml:"label" json:"label" validate:"required"`
	Icon     string        `yaml:"icon" json:"icon,omitempty"`
	URL      string        `yaml:"url" json:"url,omitempty"`
	Roles    []domain.Role `yaml:"roles" json:"roles" validate:"required,min=1,dive,oneof=admin sales"`
	Children []Node        `yaml:"children" json:"children,omitempty" validate:"dive"`
}

type definition struct {
	Nodes []Node `validate:"required,min=1,dive"`
}

var validate = validator.New()

// ErrInvalidMenu wraps every definition problem reported by Load and Parse.
var ErrInvalidMenu = errors.New("invalid menu definition")

// Load reads the menu from file, or the embedded default when file is empty.
func Load(file string) ([]Node, error) {
	if file == "" {
		return Parse(defaultMenu)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read menu %s: %w", file, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML menu definition.
func Parse(raw []byte) ([]Node, error) {
	var nodes []Node
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&nodes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMenu, err)
	}
	if err := validate.Struct(definition{Nodes: nodes}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMenu, err)
	}
	if dup := duplicatePath(nodes, map[string]struct{}{}); dup != "" {
		return nil, fmt.Errorf("%w: duplicate path %s", ErrInvalidMenu, dup)
	}
	return nodes, nil
}

func duplicatePath(nodes []Node, seen map[string]struct{}) string {
	for _, n := range nodes {
		if _, ok := seen[n.Path]; ok {
			return n.Path
		}
		seen[n.Path] = struct{}{}
		if dup := duplicatePath(n.Children, seen); dup != "" {
			return dup
		}
	}
	return ""
}

// FilterByRole returns the subset of nodes visible to role. The input is never modified:
// kept nodes are copies whose children are the filtered lists.
//
// A node whose roles exclude role is dropped with its subtree. A node with children is kept
// only while at least one child survives. A node with an empty child list is a leaf.
func FilterByRole(nodes []Node, role domain.Role) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Roles != nil && !hasRole(n.Roles, role) {
			continue
		}
		if len(n.Children) > 0 {
			children := FilterByRole(n.Children, role)
			if len(children) == 0 {
				continue
			}
			n.Children = children
		}
		n.Roles = append([]domain.Role(nil), n.Roles...)
		out = append(out, n)
	}
	return out
}

// Find returns the node with path, searching depth-first.
func Find(nodes []Node, path string) (*Node, bool) {
	for i := range nodes {
		if nodes[i].Path == path {
			node := nodes[i]
			return &node, true
		}
		if node, ok := Find(nodes[i].Children, path); ok {
			return node, true
		}
	}
	return nil, false
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

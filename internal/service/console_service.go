package service

import (
	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/menu"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

// Dashboard views chosen for the home shell.
const (
	ViewAdminDashboard    = "admin-dashboard"
	ViewMerchantDashboard = "merchant-dashboard"
)

// Shell is the JSON description of a page: which view to mount, and the navigation the
// current user may see.
type Shell struct {
	View   string           `json:"view"`
	Title  string           `json:"title,omitempty"`
	Path   string           `json:"path"`
	User   *domain.UserInfo `json:"user,omitempty"`
	Menu   []menu.Node      `json:"menu,omitempty"`
	Active *menu.Node       `json:"active,omitempty"`
}

// ConsoleService assembles page shells and role-filtered navigation.
type ConsoleService struct {
	menu []menu.Node
}

// NewConsoleService builds the service over a loaded menu.
func NewConsoleService(nodes []menu.Node) *ConsoleService {
	return &ConsoleService{menu: nodes}
}

// Menu returns the navigation visible to role.
func (s *ConsoleService) Menu(role domain.Role) []menu.Node {
	return menu.FilterByRole(s.menu, role)
}

// Lookup returns the visible menu entry for path.
func (s *ConsoleService) Lookup(role domain.Role, path string) (*menu.Node, error) {
	node, ok := menu.Find(s.Menu(role), path)
	if !ok {
		return nil, apperrors.NewNotFound("menu entry", map[string]any{"path": path})
	}
	return node, nil
}

// PublicShell describes a page reachable without a session, such as login.
func (s *ConsoleService) PublicShell(view, path string) Shell {
	return Shell{View: view, Path: path}
}

// PageShell describes a protected page for user. The home page mounts the dashboard that
// matches the role; other pages mount the view named after their menu entry.
func (s *ConsoleService) PageShell(user domain.UserInfo, path string) Shell {
	visible := s.Menu(user.Role)
	shell := Shell{Path: path, User: &user, Menu: visible}

	if node, ok := menu.Find(visible, path); ok {
		shell.Active = node
		shell.Title = node.Label
		shell.View = node.Name
	}
	if path == "/home" {
		shell.View = ViewMerchantDashboard
		if user.Role == domain.RoleAdmin {
			shell.View = ViewAdminDashboard
		}
	}
	if shell.View == "" {
		shell.View = "page"
	}
	return shell
}

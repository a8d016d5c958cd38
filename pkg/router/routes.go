// Package router holds the console's static route table (YAML/JSON) and the
// conversion of backend menus into routes.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transition configures the page animation of a route.
type Transition struct {
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	EnterTransition string `json:"enterTransition,omitempty" yaml:"enterTransition,omitempty"`
	LeaveTransition string `json:"leaveTransition,omitempty" yaml:"leaveTransition,omitempty"`
}

// Meta is the display metadata of a route.
type Meta struct {
	Title      string      `json:"title" yaml:"title"`
	Icon       string      `json:"icon,omitempty" yaml:"icon,omitempty"`
	ExtraIcon  string      `json:"extraIcon,omitempty" yaml:"extraIcon,omitempty"`
	Rank       int         `json:"rank,omitempty" yaml:"rank,omitempty"`
	ShowLink   *bool       `json:"showLink,omitempty" yaml:"showLink,omitempty"`
	KeepAlive  bool        `json:"keepAlive,omitempty" yaml:"keepAlive,omitempty"`
	Roles      []string    `json:"roles,omitempty" yaml:"roles,omitempty"`
	Auths      []string    `json:"auths,omitempty" yaml:"auths,omitempty"`
	Transition *Transition `json:"transition,omitempty" yaml:"transition,omitempty"`
}

// Visible reports whether the route shows up in the menu. Unset means visible.
func (m Meta) Visible() bool {
	return m.ShowLink == nil || *m.ShowLink
}

// Route is one node of the route tree.
type Route struct {
	Path      string  `json:"path" yaml:"path"`
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Redirect  string  `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Component string  `json:"component,omitempty" yaml:"component,omitempty"`
	Meta      Meta    `json:"meta" yaml:"meta"`
	Children  []Route `json:"children,omitempty" yaml:"children,omitempty"`
}

type routeFile struct {
	Routes []Route `json:"routes" yaml:"routes"`
}

// Registry is a validated, rank-ordered route table.
type Registry struct {
	routes []Route
	byName map[string]Route
}

// LoadRegistry reads and validates a route table file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("routes file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routes file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}

	rf, err := parseRoutes(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(rf.Routes) == 0 {
		return nil, errors.New("routes file contains no routes entries")
	}
	return NewRegistry(rf.Routes)
}

// NewRegistry sanitizes and validates routes.
func NewRegistry(routes []Route) (*Registry, error) {
	reg := &Registry{
		routes: make([]Route, 0, len(routes)),
		byName: make(map[string]Route),
	}
	for i := range routes {
		r := sanitizeRoute(routes[i])
		if err := validateRoute(r); err != nil {
			return nil, fmt.Errorf("route[%d]: %w", i, err)
		}
		if err := reg.index(r); err != nil {
			return nil, err
		}
		reg.routes = append(reg.routes, r)
	}
	sortRoutes(reg.routes)
	return reg, nil
}

func (reg *Registry) index(r Route) error {
	if r.Name != "" {
		if _, exists := reg.byName[r.Name]; exists {
			return fmt.Errorf("duplicate route name %q", r.Name)
		}
		reg.byName[r.Name] = r
	}
	for _, child := range r.Children {
		if err := reg.index(child); err != nil {
			return err
		}
	}
	return nil
}

// All returns the top-level routes ordered by rank.
func (reg *Registry) All() []Route {
	out := make([]Route, len(reg.routes))
	copy(out, reg.routes)
	return out
}

// ByName returns the route registered under name.
func (reg *Registry) ByName(name string) (Route, bool) {
	r, ok := reg.byName[strings.TrimSpace(name)]
	return r, ok
}

// Flatten lists every route depth-first, parents before children.
func (reg *Registry) Flatten() []Route {
	return Flatten(reg.routes)
}

// Flatten lists every route of the tree depth-first, parents before children.
func Flatten(routes []Route) []Route {
	var out []Route
	var walk func([]Route)
	walk = func(rs []Route) {
		for _, r := range rs {
			out = append(out, r)
			walk(r.Children)
		}
	}
	walk(routes)
	return out
}

func parseRoutes(data []byte, ext string) (routeFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var rf routeFile
		if err := d.fn(data, &rf); err != nil {
			lastErr = fmt.Errorf("decode %s routes: %w", d.name, err)
			continue
		}
		return rf, nil
	}
	if lastErr != nil {
		return routeFile{}, lastErr
	}
	return routeFile{}, errors.New("routes file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func sanitizeRoute(r Route) Route {
	r.Path = strings.TrimSpace(r.Path)
	r.Name = strings.TrimSpace(r.Name)
	r.Redirect = strings.TrimSpace(r.Redirect)
	r.Component = strings.TrimSpace(r.Component)
	r.Meta.Title = strings.TrimSpace(r.Meta.Title)
	if len(r.Path) > 1 {
		r.Path = strings.TrimRight(r.Path, "/")
	}

	if len(r.Children) > 0 {
		children := make([]Route, len(r.Children))
		for i := range r.Children {
			children[i] = sanitizeRoute(r.Children[i])
		}
		r.Children = children
	}
	return r
}

func validateRoute(r Route) error {
	if r.Path == "" {
		return errors.New("path is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("path %q must be absolute", r.Path)
	}
	if r.Meta.Title == "" {
		return fmt.Errorf("meta.title is required for route %q", r.Path)
	}

	if len(r.Children) == 0 {
		if r.Name == "" {
			return fmt.Errorf("name is required for leaf route %q", r.Path)
		}
		if r.Component == "" && r.Redirect == "" {
			return fmt.Errorf("component is required for leaf route %q", r.Path)
		}
		return nil
	}

	if r.Redirect != "" && !hasChild(r, r.Redirect) {
		return fmt.Errorf("redirect %q of route %q does not match a child", r.Redirect, r.Path)
	}
	for i := range r.Children {
		if err := validateRoute(r.Children[i]); err != nil {
			return fmt.Errorf("%s > child[%d]: %w", r.Path, i, err)
		}
	}
	return nil
}

func hasChild(r Route, path string) bool {
	for _, child := range r.Children {
		if child.Path == path {
			return true
		}
	}
	return false
}

// sortRoutes orders siblings by rank, keeping file order for ties.
func sortRoutes(routes []Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Meta.Rank < routes[j].Meta.Rank
	})
}

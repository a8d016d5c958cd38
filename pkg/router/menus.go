package router

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/samvad-hq/admin-console/pkg/api"
)

// FromMenus converts the backend menu table into a route tree. Buttons become
// the auths of their parent menu. Hidden, disabled and orphaned entries are
// dropped, as are directories left without children. Entries that cannot form
// a valid route, like a blank title or a reused component name, are skipped
// and reported in skipped; the rest of the tree is still returned.
func FromMenus(menus []api.MenuVO) (routes []Route, skipped []error) {
	children := make(map[int64][]api.MenuVO)
	auths := make(map[int64][]string)
	for _, m := range menus {
		if m.Type == api.MenuTypeButton {
			if p := strings.TrimSpace(m.Permission); p != "" && m.Status == api.StatusEnabled {
				auths[m.ParentID] = append(auths[m.ParentID], p)
			}
			continue
		}
		if !m.Visible || m.Status != api.StatusEnabled {
			continue
		}
		children[m.ParentID] = append(children[m.ParentID], m)
	}

	b := &menuBuilder{
		children: children,
		auths:    auths,
		seen:     make(map[int64]bool),
		names:    make(map[string]int64),
	}
	routes = b.build(0, "/")
	return routes, b.skipped
}

type menuBuilder struct {
	children map[int64][]api.MenuVO
	auths    map[int64][]string
	seen     map[int64]bool
	names    map[string]int64
	skipped  []error
}

func (b *menuBuilder) build(parentID int64, parentPath string) []Route {
	entries := b.children[parentID]
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Sort != entries[j].Sort {
			return entries[i].Sort < entries[j].Sort
		}
		return entries[i].ID < entries[j].ID
	})

	var out []Route
	for _, m := range entries {
		if b.seen[m.ID] {
			continue
		}
		b.seen[m.ID] = true
		if strings.TrimSpace(m.Name) == "" {
			b.skip(m, fmt.Errorf("menu name is blank"))
			continue
		}

		r := Route{
			Path:      menuPath(parentPath, m.Path),
			Component: strings.TrimSpace(m.Component),
			Meta: Meta{
				Title:     m.Name,
				Icon:      m.Icon,
				Rank:      m.Sort,
				KeepAlive: m.KeepAlive,
				Auths:     b.auths[m.ID],
			},
		}
		r.Children = b.build(m.ID, r.Path)

		if m.Type == api.MenuTypeDirectory {
			if len(r.Children) == 0 {
				continue
			}
			r.Redirect = r.Children[0].Path
		} else {
			r.Name = menuName(m)
		}
		r = sanitizeRoute(r)
		if err := b.claim(m, r); err != nil {
			b.skip(m, err)
			continue
		}
		out = append(out, r)
	}
	return out
}

// claim validates r and reserves its name.
func (b *menuBuilder) claim(m api.MenuVO, r Route) error {
	if err := validateRoute(r); err != nil {
		return err
	}
	if r.Name == "" {
		return nil
	}
	if owner, taken := b.names[r.Name]; taken {
		return fmt.Errorf("route name %q already used by menu %d", r.Name, owner)
	}
	b.names[r.Name] = m.ID
	return nil
}

func (b *menuBuilder) skip(m api.MenuVO, err error) {
	b.skipped = append(b.skipped, fmt.Errorf("menu %d (%s): %w", m.ID, strings.TrimSpace(m.Path), err))
}

func menuPath(parent, p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Join(parent, p)
}

func menuName(m api.MenuVO) string {
	if name := strings.TrimSpace(m.ComponentName); name != "" {
		return name
	}
	return "Menu" + strconv.FormatInt(m.ID, 10)
}

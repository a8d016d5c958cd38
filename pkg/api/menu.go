package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

// Menu types as stored by the backend.
const (
	MenuTypeDirectory = 1
	MenuTypeMenu      = 2
	MenuTypeButton    = 3
)

// Menu status values.
const (
	StatusEnabled  = 0
	StatusDisabled = 1
)

// MenuVO is a menu, directory or button entry.
type MenuVO struct {
	ID            int64     `json:"id,omitempty" yaml:"id,omitempty"`
	Name          string    `json:"name" yaml:"name"`
	Permission    string    `json:"permission" yaml:"permission"`
	Type          int       `json:"type" yaml:"type"`
	Sort          int       `json:"sort" yaml:"sort"`
	ParentID      int64     `json:"parentId" yaml:"parentId"`
	Path          string    `json:"path" yaml:"path"`
	Icon          string    `json:"icon" yaml:"icon"`
	Component     string    `json:"component" yaml:"component"`
	ComponentName string    `json:"componentName,omitempty" yaml:"componentName,omitempty"`
	Status        int       `json:"status" yaml:"status"`
	Visible       bool      `json:"visible" yaml:"visible"`
	KeepAlive     bool      `json:"keepAlive" yaml:"keepAlive"`
	AlwaysShow    *bool     `json:"alwaysShow,omitempty" yaml:"alwaysShow,omitempty"`
	CreateTime    Timestamp `json:"createTime,omitzero" yaml:"-"`
}

// MenuListParams filters the full menu listing.
type MenuListParams struct {
	Name   string
	Status *int
}

// Params renders the filter as query parameters.
func (p MenuListParams) Params() httpclient.Params {
	params := httpclient.Params{}
	if p.Name != "" {
		params["name"] = p.Name
	}
	if p.Status != nil {
		params["status"] = *p.Status
	}
	return params
}

const (
	menuSimpleListPath = "/system/menu/simple-list"
	menuListPath       = "/system/menu/list"
	menuGetPath        = "/system/menu/get"
	menuCreatePath     = "/system/menu/create"
	menuUpdatePath     = "/system/menu/update"
	menuDeletePath     = "/system/menu/delete"
)

// MenuService wraps the /system/menu endpoints.
type MenuService struct {
	client *httpclient.Client
}

// NewMenuService binds the menu endpoints to client.
func NewMenuService(client *httpclient.Client) *MenuService {
	return &MenuService{client: client}
}

// SimpleList returns the reduced menu list used by pickers.
func (s *MenuService) SimpleList(ctx context.Context) ([]MenuVO, error) {
	var menus []MenuVO
	if err := s.client.Get(ctx, menuSimpleListPath, nil, &menus); err != nil {
		return nil, fmt.Errorf("list simple menus: %w", err)
	}
	return menus, nil
}

// List returns every menu matching params.
func (s *MenuService) List(ctx context.Context, params MenuListParams) ([]MenuVO, error) {
	var menus []MenuVO
	cfg := &httpclient.RequestConfig{Params: params.Params()}
	if err := s.client.Get(ctx, menuListPath, cfg, &menus); err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	return menus, nil
}

// Get fetches one menu. A missing menu yields (nil, nil).
func (s *MenuService) Get(ctx context.Context, id int64) (*MenuVO, error) {
	var menu *MenuVO
	if err := s.client.Get(ctx, withID(menuGetPath, id), nil, &menu); err != nil {
		return nil, fmt.Errorf("get menu %d: %w", id, err)
	}
	return menu, nil
}

// Create stores a new menu and returns its id.
func (s *MenuService) Create(ctx context.Context, menu MenuVO) (int64, error) {
	var id int64
	cfg := &httpclient.RequestConfig{Data: menu}
	if err := s.client.Post(ctx, menuCreatePath, cfg, &id); err != nil {
		return 0, fmt.Errorf("create menu %q: %w", menu.Name, err)
	}
	return id, nil
}

// Update replaces an existing menu.
func (s *MenuService) Update(ctx context.Context, menu MenuVO) error {
	if menu.ID == 0 {
		return fmt.Errorf("update menu: missing id")
	}
	cfg := &httpclient.RequestConfig{Data: menu}
	if err := s.client.Put(ctx, menuUpdatePath, cfg, nil); err != nil {
		return fmt.Errorf("update menu %d: %w", menu.ID, err)
	}
	return nil
}

// Delete removes a menu.
func (s *MenuService) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, withID(menuDeletePath, id), nil, nil); err != nil {
		return fmt.Errorf("delete menu %d: %w", id, err)
	}
	return nil
}

func withID(path string, id int64) string {
	return path + "?id=" + strconv.FormatInt(id, 10)
}

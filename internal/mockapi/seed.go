package mockapi

import "github.com/samvad-hq/admin-console/pkg/api"

// SeedMenus returns the system management menu tree the mock starts with.
func SeedMenus() []api.MenuVO {
	return []api.MenuVO{
		{ID: 1, Name: "System", Type: api.MenuTypeDirectory, Sort: 10, Path: "/system", Icon: "ep:tools", Visible: true, KeepAlive: true},
		{ID: 100, Name: "Users", Type: api.MenuTypeMenu, Sort: 1, ParentID: 1, Path: "user", Icon: "ep:avatar", Component: "system/user/index", ComponentName: "SystemUser", Permission: "system:user:list", Visible: true, KeepAlive: true},
		{ID: 101, Name: "Roles", Type: api.MenuTypeMenu, Sort: 2, ParentID: 1, Path: "role", Icon: "ep:user", Component: "system/role/index", ComponentName: "SystemRole", Permission: "system:role:list", Visible: true, KeepAlive: true},
		{ID: 102, Name: "Menus", Type: api.MenuTypeMenu, Sort: 3, ParentID: 1, Path: "menu", Icon: "ep:menu", Component: "system/menu/index", ComponentName: "SystemMenu", Permission: "system:menu:list", Visible: true, KeepAlive: true},
		{ID: 1001, Name: "Create user", Type: api.MenuTypeButton, Sort: 1, ParentID: 100, Permission: "system:user:create", Visible: true},
		{ID: 1002, Name: "Update user", Type: api.MenuTypeButton, Sort: 2, ParentID: 100, Permission: "system:user:update", Visible: true},
		{ID: 1003, Name: "Delete user", Type: api.MenuTypeButton, Sort: 3, ParentID: 100, Permission: "system:user:delete", Visible: true},
		{ID: 1010, Name: "Create menu", Type: api.MenuTypeButton, Sort: 1, ParentID: 102, Permission: "system:menu:create", Visible: true},
		{ID: 1011, Name: "Update menu", Type: api.MenuTypeButton, Sort: 2, ParentID: 102, Permission: "system:menu:update", Visible: true},
		{ID: 1012, Name: "Delete menu", Type: api.MenuTypeButton, Sort: 3, ParentID: 102, Permission: "system:menu:delete", Visible: true},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/admin-console/internal/app"
	"github.com/samvad-hq/admin-console/internal/config"
	"github.com/samvad-hq/admin-console/internal/logger"
	"github.com/samvad-hq/admin-console/internal/mockapi"
	"github.com/samvad-hq/admin-console/pkg/api"
	"github.com/samvad-hq/admin-console/pkg/router"
)

var cfg *config.Config

// withConsole builds the console runtime for one command and closes it afterwards.
func withConsole(cmd *cobra.Command, fn func(ctx context.Context, console *app.Console) error) error {
	ctx := cmd.Context()
	console, err := app.NewConsole(ctx, cfg, logger.Global{})
	if err != nil {
		logger.ErrorObj("failed to initialize console", "error", err.Error())
		return err
	}
	runErr := fn(ctx, console)
	if err := console.Close(); err != nil {
		logger.WarnObj("console close failed", "error", err.Error())
	}
	return runErr
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid menu id %q", raw)
	}
	return id, nil
}

func readMenuFile(cmd *cobra.Command) (api.MenuVO, error) {
	var menu api.MenuVO
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return menu, fmt.Errorf("failed to parse --file flag: %w", err)
	}
	if path == "" {
		_ = cmd.Help()
		return menu, errors.New("menu file must be provided with --file flag")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return menu, fmt.Errorf("read menu file: %w", err)
	}
	if err := yaml.Unmarshal(data, &menu); err != nil {
		return menu, fmt.Errorf("parse menu file: %w", err)
	}
	return menu, nil
}

var rootCmd = &cobra.Command{
	Use:          "consolectl",
	Short:        "Admin console client for the system management API",
	SilenceUsage: true,
}

var loginCmd = &cobra.Command{
	Use:          "login",
	Short:        "Log in and store the access token",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		tenant, _ := cmd.Flags().GetString("tenant-name")
		if username == "" || password == "" {
			_ = cmd.Help()
			return errors.New("username and password must be provided")
		}
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			tok, err := console.Auth.Login(ctx, api.LoginRequest{
				Username:   username,
				Password:   password,
				TenantName: tenant,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (token expires in %s)\n", username, api.ExpiresIn(tok, time.Now()).Round(time.Second))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:          "logout",
	Short:        "Log out and clear the stored token",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			if err := console.Auth.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		})
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Manage system menus",
}

var menuListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List menus",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		simple, _ := cmd.Flags().GetBool("simple")
		params := api.MenuListParams{Name: name}
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetInt("status")
			params.Status = &status
		}
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			var (
				menus []api.MenuVO
				err   error
			)
			if simple {
				menus, err = console.Menus.SimpleList(ctx)
			} else {
				menus, err = console.Menus.List(ctx, params)
			}
			if err != nil {
				return err
			}
			return printYAML(menus)
		})
	},
}

var menuGetCmd = &cobra.Command{
	Use:          "get <id>",
	Short:        "Show one menu",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			menu, err := console.Menus.Get(ctx, id)
			if err != nil {
				return err
			}
			if menu == nil {
				return fmt.Errorf("menu %d not found", id)
			}
			return printYAML(menu)
		})
	},
}

var menuCreateCmd = &cobra.Command{
	Use:          "create",
	Short:        "Create a menu from a YAML file",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		menu, err := readMenuFile(cmd)
		if err != nil {
			return err
		}
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			id, err := console.Menus.Create(ctx, menu)
			if err != nil {
				return err
			}
			fmt.Printf("Created menu %d\n", id)
			return nil
		})
	},
}

var menuUpdateCmd = &cobra.Command{
	Use:          "update",
	Short:        "Update a menu from a YAML file",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		menu, err := readMenuFile(cmd)
		if err != nil {
			return err
		}
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			if err := console.Menus.Update(ctx, menu); err != nil {
				return err
			}
			fmt.Printf("Updated menu %d\n", menu.ID)
			return nil
		})
	},
}

var menuDeleteCmd = &cobra.Command{
	Use:          "delete <id>",
	Short:        "Delete a menu",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			if err := console.Menus.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Deleted menu %d\n", id)
			return nil
		})
	},
}

var routesCmd = &cobra.Command{
	Use:          "routes",
	Short:        "Print the route tree",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromMenus, _ := cmd.Flags().GetBool("from-menus")
		flat, _ := cmd.Flags().GetBool("flat")
		return withConsole(cmd, func(ctx context.Context, console *app.Console) error {
			var (
				reg *router.Registry
				err error
			)
			if fromMenus {
				reg, err = console.MenuRoutes(ctx)
			} else {
				reg, err = console.Routes()
			}
			if err != nil {
				return err
			}
			if flat {
				for _, r := range reg.Flatten() {
					fmt.Printf("%s\t%s\t%s\n", r.Path, r.Name, r.Meta.Title)
				}
				return nil
			}
			return printYAML(map[string]any{"routes": reg.All()})
		})
	},
}

var mockServerCmd = &cobra.Command{
	Use:          "mock-server",
	Short:        "Run the in-memory system management backend",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		srv := mockapi.New(mockapi.Options{Logger: logger.Global{}})
		if err := srv.ListenAndServe(cmd.Context(), addr); err != nil {
			return fmt.Errorf("mock server: %w", err)
		}
		return nil
	},
}

func run() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("consolectl starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// flag wiring
	loginCmd.Flags().StringP("username", "u", "", "account username")
	loginCmd.Flags().StringP("password", "p", "", "account password")
	loginCmd.Flags().String("tenant-name", "", "tenant name")
	menuListCmd.Flags().String("name", "", "filter by menu name")
	menuListCmd.Flags().Int("status", api.StatusEnabled, "filter by status (0 enabled, 1 disabled)")
	menuListCmd.Flags().Bool("simple", false, "use the simplified listing")
	menuCreateCmd.Flags().StringP("file", "f", "", "menu definition (YAML)")
	menuUpdateCmd.Flags().StringP("file", "f", "", "menu definition (YAML)")
	routesCmd.Flags().Bool("from-menus", false, "build routes from the backend menu table")
	routesCmd.Flags().Bool("flat", false, "print one line per route")
	mockServerCmd.Flags().String("addr", ":48080", "listen address")

	// command wiring
	rootCmd.AddCommand(loginCmd, logoutCmd, menuCmd, routesCmd, mockServerCmd)
	menuCmd.AddCommand(menuListCmd, menuGetCmd, menuCreateCmd, menuUpdateCmd, menuDeleteCmd)

	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "consolectl: %v\n", err)
		os.Exit(1)
	}
}

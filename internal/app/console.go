package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/admin-console/internal/config"
	"github.com/samvad-hq/admin-console/internal/logger"
	"github.com/samvad-hq/admin-console/internal/progress"
	"github.com/samvad-hq/admin-console/internal/storage"
	"github.com/samvad-hq/admin-console/pkg/api"
	"github.com/samvad-hq/admin-console/pkg/httpclient"
	"github.com/samvad-hq/admin-console/pkg/publishers"
	"github.com/samvad-hq/admin-console/pkg/router"
)

// Console represents the admin console runtime. It owns the token store, the
// audit publishers and the request facade, and exposes the REST services
// built on top of them.
type Console struct {
	cfg      *config.Config
	log      logger.Logger
	store    storage.Store
	fanout   *publishers.Fanout
	audit    *publishers.Observer
	progress *progress.Tracker

	Client *httpclient.Client
	Auth   *api.AuthService
	Menus  *api.MenuService
}

// NewConsole builds a console runtime from config.
func NewConsole(ctx context.Context, cfg *config.Config, log logger.Logger) (*Console, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	storeOpts := storage.Options{
		TTL:             cfg.TokenTTL,
		RefreshTTL:      cfg.RefreshTokenTTL,
		CleanupInterval: cfg.TokenCleanupInterval,
		Profile:         cfg.BaseAPI + "#" + cfg.TenantID,
	}
	store, err := storage.NewStore(cfg.TokenStore, cfg.TokenStorePath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init token store: %w", err)
	}
	log.InfoObj("token store initialized", "storage_config", map[string]any{
		"type":                      cfg.TokenStore,
		"path":                      cfg.TokenStorePath,
		"profile":                   storeOpts.Profile,
		"token_ttl_seconds":         int(cfg.TokenTTL.Seconds()),
		"refresh_token_ttl_seconds": int(cfg.RefreshTokenTTL.Seconds()),
		"cleanup_interval_seconds":  int(cfg.TokenCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var (
		audit    *publishers.Observer
		observer httpclient.Observer
	)
	if fanout.Size() > 0 {
		audit = publishers.NewObserver(fanout, log)
		observer = audit
	}

	tracker := progress.New(log)
	client := httpclient.New(httpclient.Options{
		BaseURL:          cfg.BaseURL(),
		Timeout:          cfg.Timeout,
		TenantID:         cfg.TenantID,
		EnforceWhitelist: cfg.EnforceWhitelist,
		Hooks:            httpclient.Hooks{BeforeResponse: httpclient.CheckEnvelopeCode},
		Tokens:           store,
		Progress:         tracker,
		Observer:         observer,
		Logger:           log,
	})
	auth := api.NewAuthService(client, store)
	client.SetRefresher(auth)

	log.InfoObj("console client ready", "client_config", map[string]any{
		"base_url":          cfg.BaseURL(),
		"timeout":           cfg.Timeout.String(),
		"tenant_id":         cfg.TenantID,
		"enforce_whitelist": cfg.EnforceWhitelist,
		"publishers":        fanout.Size(),
	})

	return &Console{
		cfg:      cfg,
		log:      log,
		store:    store,
		fanout:   fanout,
		audit:    audit,
		progress: tracker,
		Client:   client,
		Auth:     auth,
		Menus:    api.NewMenuService(client),
	}, nil
}

// buildFanout loads the audit publishers. An empty path disables auditing.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Routes loads the static route table configured by routes_file.
func (c *Console) Routes() (*router.Registry, error) {
	reg, err := router.LoadRegistry(c.cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	return reg, nil
}

// MenuRoutes builds the dynamic route tree from the backend menu table.
// Menu entries that do not form a valid route are logged and left out.
func (c *Console) MenuRoutes(ctx context.Context) (*router.Registry, error) {
	menus, err := c.Menus.List(ctx, api.MenuListParams{})
	if err != nil {
		return nil, err
	}
	routes, skipped := router.FromMenus(menus)
	for _, err := range skipped {
		c.log.WarnObj("menu entry skipped", "menu_route", map[string]any{"error": err.Error()})
	}
	reg, err := router.NewRegistry(routes)
	if err != nil {
		return nil, fmt.Errorf("build menu routes: %w", err)
	}
	return reg, nil
}

// Token returns the stored token, or nil when logged out.
func (c *Console) Token() (*httpclient.Token, error) {
	return c.store.Token()
}

// Close drains pending audit events, flushes publishers and closes the token store.
func (c *Console) Close() error {
	if c == nil {
		return nil
	}
	if busy := c.progress.InFlight(); busy > 0 {
		c.log.WarnObj("closing with requests in flight", "progress", map[string]any{"in_flight": busy})
	}
	c.audit.Close()
	var errs []error
	if err := c.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close token store: %w", err))
	}
	return errors.Join(errs...)
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/admin-console/internal/config"
	"github.com/samvad-hq/admin-console/internal/mockapi"
	"github.com/samvad-hq/admin-console/pkg/api"
	"github.com/samvad-hq/admin-console/pkg/publishers"
)

type auditSink struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (a *auditSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var evt publishers.Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	a.events = append(a.events, evt)
	a.mu.Unlock()
}

func (a *auditSink) snapshot() []publishers.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]publishers.Event, len(a.events))
	copy(out, a.events)
	return out
}

func testConfig(t *testing.T, baseAPI, publishersFile string) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:              "admin-console",
		Env:                  "test",
		BaseAPI:              baseAPI,
		APIPrefix:            "/admin-api/",
		Timeout:              2 * time.Second,
		TenantID:             "1",
		TokenStore:           "bbolt",
		TokenStorePath:       filepath.Join(t.TempDir(), "token.db"),
		TokenTTL:             time.Minute,
		TokenCleanupInterval: time.Hour,
		RoutesFile:           filepath.Join("..", "..", "configs", "routes.yaml"),
		PublishersFile:       publishersFile,
	}
}

func TestConsoleEndToEnd(t *testing.T) {
	backend := httptest.NewServer(mockapi.New(mockapi.Options{}))
	defer backend.Close()

	sink := &auditSink{}
	audit := httptest.NewServer(sink)
	defer audit.Close()

	pubFile := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := "publishers:\n  - id: audit\n    type: http\n    http:\n      url: " + audit.URL + "\n"
	if err := os.WriteFile(pubFile, []byte(raw), 0o644); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}

	ctx := context.Background()
	console, err := NewConsole(ctx, testConfig(t, backend.URL, pubFile), nil)
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	defer console.Close()

	if _, err := console.Auth.Login(ctx, api.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok, err := console.Token(); err != nil || tok == nil {
		t.Fatalf("expected stored token, tok=%v err=%v", tok, err)
	}

	reg, err := console.MenuRoutes(ctx)
	if err != nil {
		t.Fatalf("MenuRoutes: %v", err)
	}
	menu, ok := reg.ByName("SystemMenu")
	if !ok || menu.Path != "/system/menu" || len(menu.Meta.Auths) != 3 {
		t.Fatalf("unexpected menu route %+v", menu)
	}

	static, err := console.Routes()
	if err != nil {
		t.Fatalf("Routes: %v", err)
	}
	if len(static.All()) == 0 {
		t.Fatalf("expected static routes")
	}

	console.audit.Wait()
	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	var login *publishers.Event
	for i := range events {
		if events[i].URL == "/system/auth/login" {
			login = &events[i]
		}
	}
	if login == nil || login.Outcome != publishers.OutcomeOK || login.TenantID != "1" {
		t.Fatalf("unexpected login event %+v", login)
	}
}

func TestNewConsoleRejectsBadStore(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1", "")
	cfg.TokenStore = "redis"
	if _, err := NewConsole(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unsupported token store")
	}
}

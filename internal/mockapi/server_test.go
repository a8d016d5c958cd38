package mockapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/admin-console/internal/storage"
	"github.com/samvad-hq/admin-console/pkg/api"
	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

type fixture struct {
	server *Server
	tokens storage.Store
	client *httpclient.Client
	auth   *api.AuthService
	menus  *api.MenuService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	server := New(Options{})
	srv := httptest.NewServer(server)
	t.Cleanup(srv.Close)

	tokens, err := storage.NewStore("memory", "", storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	client := httpclient.New(httpclient.Options{
		BaseURL: srv.URL + "/admin-api/",
		Tokens:  tokens,
		Hooks:   httpclient.Hooks{BeforeResponse: httpclient.CheckEnvelopeCode},
	})
	auth := api.NewAuthService(client, tokens)
	client.SetRefresher(auth)

	return &fixture{
		server: server,
		tokens: tokens,
		client: client,
		auth:   auth,
		menus:  api.NewMenuService(client),
	}
}

func (f *fixture) login(t *testing.T) httpclient.Token {
	t.Helper()
	tok, err := f.auth.Login(context.Background(), api.LoginRequest{Username: defaultUser, Password: defaultPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return tok
}

func TestMenuRequiresLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.menus.SimpleList(context.Background())
	if httpclient.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), api.LoginRequest{Username: defaultUser, Password: "wrong"})
	var codeErr *httpclient.CodeError
	if !errors.As(err, &codeErr) || codeErr.Code != CodeBadCredentials {
		t.Fatalf("expected bad credentials code, got %v", err)
	}
}

func TestMenuCRUD(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	id, err := f.menus.Create(ctx, api.MenuVO{Name: "Dept", Type: api.MenuTypeMenu, ParentID: 1, Path: "dept", Component: "system/dept/index", Sort: 4, Visible: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.menus.Get(ctx, id)
	if err != nil || got == nil || got.Name != "Dept" || got.CreateTime.IsZero() {
		t.Fatalf("Get: menu=%+v err=%v", got, err)
	}

	got.Name = "Departments"
	if err := f.menus.Update(ctx, *got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	list, err := f.menus.List(ctx, api.MenuListParams{Name: "Depart"})
	if err != nil || len(list) != 1 || list[0].ID != id {
		t.Fatalf("List: %+v err=%v", list, err)
	}

	if err := f.menus.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	missing, err := f.menus.Get(ctx, id)
	if err != nil || missing != nil {
		t.Fatalf("expected deleted menu to be gone, got %+v err=%v", missing, err)
	}

	_, err = f.menus.Create(ctx, api.MenuVO{Name: "Users", Type: api.MenuTypeMenu, ParentID: 1, Path: "users2"})
	var codeErr *httpclient.CodeError
	if !errors.As(err, &codeErr) || codeErr.Code != CodeMenuNameDuplicate {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestExpiredAccessTokenIsRefreshedTransparently(t *testing.T) {
	f := newFixture(t)
	first := f.login(t)
	f.server.ExpireAccessTokens()

	menus, err := f.menus.SimpleList(context.Background())
	if err != nil {
		t.Fatalf("SimpleList after expiry: %v", err)
	}
	if len(menus) == 0 {
		t.Fatalf("expected seeded menus")
	}

	stored, _ := f.tokens.Token()
	if stored == nil || stored.AccessToken == first.AccessToken {
		t.Fatalf("expected a rotated access token, got %+v", stored)
	}
	if stored.RefreshToken != first.RefreshToken {
		t.Fatalf("refresh token must be kept, got %q", stored.RefreshToken)
	}
}

func TestLapsedAccessTokenIsExchangedBeforeDispatch(t *testing.T) {
	f := newFixture(t)
	f.server.now = func() time.Time { return time.Now().Add(-time.Hour) }
	first := f.login(t)
	f.server.now = time.Now

	stored, _ := f.tokens.Token()
	if stored == nil || !stored.Expired(time.Now()) {
		t.Fatalf("expected the stored pair to outlive its access token, got %+v", stored)
	}

	if _, err := f.menus.SimpleList(context.Background()); err != nil {
		t.Fatalf("SimpleList with lapsed token: %v", err)
	}
	stored, _ = f.tokens.Token()
	if stored == nil || stored.AccessToken == first.AccessToken || stored.Expired(time.Now()) {
		t.Fatalf("expected a fresh access token, got %+v", stored)
	}
}

func TestRevokedRefreshTokenClearsStore(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.server.mu.Lock()
	f.server.refresh = make(map[string]string)
	f.server.mu.Unlock()
	f.server.ExpireAccessTokens()

	_, err := f.menus.SimpleList(context.Background())
	if httpclient.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 after failed refresh, got %v", err)
	}
	if tok, _ := f.tokens.Token(); tok != nil {
		t.Fatalf("failed refresh must clear the token store, got %+v", tok)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	if err := f.auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if tok, _ := f.tokens.Token(); tok != nil {
		t.Fatalf("logout must clear the token, got %+v", tok)
	}
	if _, err := f.menus.SimpleList(ctx); httpclient.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %v", err)
	}
}

func TestDeleteRejectsMenusWithChildren(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	err := f.menus.Delete(context.Background(), 1)
	var codeErr *httpclient.CodeError
	if !errors.As(err, &codeErr) || codeErr.Code != CodeBadRequest {
		t.Fatalf("expected children error, got %v", err)
	}
}

// Package mockapi is an in-memory stand-in for the admin backend: menu CRUD
// and password auth under /admin-api/system, answering with the usual
// {code, message, data} envelope.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/samvad-hq/admin-console/internal/logger"
	"github.com/samvad-hq/admin-console/pkg/api"
)

// Backend error codes carried in the envelope.
const (
	CodeUnauthorized      = 401
	CodeBadRequest        = 400
	CodeNotFound          = 404
	CodeBadCredentials    = 1002000000
	CodeMenuNameDuplicate = 1002001000
)

const (
	defaultAccessTTL = 30 * time.Minute
	defaultUser      = "admin"
	defaultPassword  = "admin123"
)

// Options configures a Server.
type Options struct {
	// Users maps usernames to passwords. Defaults to admin/admin123.
	Users     map[string]string
	AccessTTL time.Duration
	// Menus seeds the menu table. Defaults to SeedMenus().
	Menus  []api.MenuVO
	Logger logger.Logger
}

type session struct {
	user    string
	expires time.Time
}

// Server is the mock backend. It is safe for concurrent use.
type Server struct {
	mu        sync.Mutex
	menus     map[int64]api.MenuVO
	nextID    int64
	users     map[string]string
	access    map[string]session
	refresh   map[string]string
	accessTTL time.Duration
	now       func() time.Time
	log       logger.Logger
	router    *mux.Router
}

// New builds a Server with its routes registered.
func New(opts Options) *Server {
	s := &Server{
		menus:     make(map[int64]api.MenuVO),
		users:     opts.Users,
		access:    make(map[string]session),
		refresh:   make(map[string]string),
		accessTTL: opts.AccessTTL,
		now:       time.Now,
		log:       opts.Logger,
	}
	if len(s.users) == 0 {
		s.users = map[string]string{defaultUser: defaultPassword}
	}
	if s.accessTTL <= 0 {
		s.accessTTL = defaultAccessTTL
	}
	if s.log == nil {
		s.log = logger.NopLogger{}
	}

	seed := opts.Menus
	if seed == nil {
		seed = SeedMenus()
	}
	for _, m := range seed {
		if m.ID > s.nextID {
			s.nextID = m.ID
		}
		s.menus[m.ID] = m
	}

	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	system := r.PathPrefix("/admin-api/system").Subrouter()
	system.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	system.HandleFunc("/auth/refresh-token", s.handleRefreshToken).Methods(http.MethodPost)

	authed := system.NewRoute().Subrouter()
	authed.Use(s.requireToken)
	authed.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/menu/simple-list", s.handleMenuSimpleList).Methods(http.MethodGet)
	authed.HandleFunc("/menu/list", s.handleMenuList).Methods(http.MethodGet)
	authed.HandleFunc("/menu/get", s.handleMenuGet).Methods(http.MethodGet)
	authed.HandleFunc("/menu/create", s.handleMenuCreate).Methods(http.MethodPost)
	authed.HandleFunc("/menu/update", s.handleMenuUpdate).Methods(http.MethodPut)
	authed.HandleFunc("/menu/delete", s.handleMenuDelete).Methods(http.MethodDelete)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.InfoObj("mock api listening", "mock_api", map[string]any{"addr": addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ExpireAccessTokens invalidates every issued access token; refresh tokens
// stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = make(map[string]session)
	s.mu.Unlock()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.DebugObj("mock api request", "mock_api_request", map[string]any{
			"method":      r.Method,
			"uri":         r.URL.RequestURI(),
			"tenant_id":   r.Header.Get("Tenant-Id"),
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "not logged in")
			return
		}

		s.mu.Lock()
		sess, found := s.access[token]
		if found && !sess.expires.After(s.now()) {
			delete(s.access, token)
			found = false
		}
		s.mu.Unlock()

		if !found {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "access token expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusOK, CodeBadRequest, "invalid login payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[req.Username]; !ok || pw != req.Password {
		writeError(w, http.StatusOK, CodeBadCredentials, "bad username or password")
		return
	}

	refreshToken := uuid.NewString()
	s.refresh[refreshToken] = req.Username
	writeData(w, s.issueLocked(req.Username, refreshToken))
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.URL.Query().Get("refreshToken")

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.refresh[refreshToken]
	if !ok {
		writeError(w, http.StatusOK, CodeUnauthorized, "invalid refresh token")
		return
	}
	writeData(w, s.issueLocked(user, refreshToken))
}

func (s *Server) issueLocked(user, refreshToken string) api.AuthTokenVO {
	accessToken := strings.ReplaceAll(uuid.NewString(), "-", "")
	expires := s.now().Add(s.accessTTL)
	s.access[accessToken] = session{user: user, expires: expires}
	return api.AuthTokenVO{
		UserID:       1,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresTime:  api.MillisOf(expires),
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	if sess, ok := s.access[token]; ok {
		delete(s.access, token)
		for rt, user := range s.refresh {
			if user == sess.user {
				delete(s.refresh, rt)
			}
		}
	}
	s.mu.Unlock()
	writeData(w, true)
}

func (s *Server) handleMenuSimpleList(w http.ResponseWriter, _ *http.Request) {
	menus := s.sortedMenus(func(m api.MenuVO) bool { return m.Status == api.StatusEnabled })
	simple := make([]api.MenuVO, 0, len(menus))
	for _, m := range menus {
		simple = append(simple, api.MenuVO{ID: m.ID, Name: m.Name, ParentID: m.ParentID, Type: m.Type})
	}
	writeData(w, simple)
}

func (s *Server) handleMenuList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	status, hasStatus := -1, q.Has("status")
	if hasStatus {
		v, err := strconv.Atoi(q.Get("status"))
		if err != nil {
			writeError(w, http.StatusOK, CodeBadRequest, "invalid status")
			return
		}
		status = v
	}

	writeData(w, s.sortedMenus(func(m api.MenuVO) bool {
		if name != "" && !strings.Contains(m.Name, name) {
			return false
		}
		return !hasStatus || m.Status == status
	}))
}

func (s *Server) handleMenuGet(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	m, found := s.menus[id]
	s.mu.Unlock()
	if !found {
		writeData(w, nil)
		return
	}
	writeData(w, m)
}

func (s *Server) handleMenuCreate(w http.ResponseWriter, r *http.Request) {
	var m api.MenuVO
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusOK, CodeBadRequest, "invalid menu payload")
		return
	}
	if err := validateMenu(m); err != nil {
		writeError(w, http.StatusOK, CodeBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duplicateNameLocked(m) {
		writeError(w, http.StatusOK, CodeMenuNameDuplicate, "menu name already exists")
		return
	}
	s.nextID++
	m.ID = s.nextID
	m.CreateTime = api.MillisOf(s.now())
	s.menus[m.ID] = m
	writeData(w, m.ID)
}

func (s *Server) handleMenuUpdate(w http.ResponseWriter, r *http.Request) {
	var m api.MenuVO
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusOK, CodeBadRequest, "invalid menu payload")
		return
	}
	if err := validateMenu(m); err != nil {
		writeError(w, http.StatusOK, CodeBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.menus[m.ID]
	if !ok {
		writeError(w, http.StatusOK, CodeNotFound, "menu not found")
		return
	}
	if s.duplicateNameLocked(m) {
		writeError(w, http.StatusOK, CodeMenuNameDuplicate, "menu name already exists")
		return
	}
	m.CreateTime = prev.CreateTime
	s.menus[m.ID] = m
	writeData(w, true)
}

func (s *Server) handleMenuDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.menus[id]; !found {
		writeError(w, http.StatusOK, CodeNotFound, "menu not found")
		return
	}
	for _, m := range s.menus {
		if m.ParentID == id {
			writeError(w, http.StatusOK, CodeBadRequest, "menu has children")
			return
		}
	}
	delete(s.menus, id)
	writeData(w, true)
}

func (s *Server) sortedMenus(keep func(api.MenuVO) bool) []api.MenuVO {
	s.mu.Lock()
	out := make([]api.MenuVO, 0, len(s.menus))
	for _, m := range s.menus {
		if keep(m) {
			out = append(out, m)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Sort != out[j].Sort {
			return out[i].Sort < out[j].Sort
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) duplicateNameLocked(m api.MenuVO) bool {
	for _, other := range s.menus {
		if other.ID != m.ID && other.ParentID == m.ParentID && other.Name == m.Name {
			return true
		}
	}
	return false
}

func validateMenu(m api.MenuVO) error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("menu name is required")
	}
	switch m.Type {
	case api.MenuTypeDirectory, api.MenuTypeMenu, api.MenuTypeButton:
	default:
		return fmt.Errorf("unknown menu type %d", m.Type)
	}
	if m.Type != api.MenuTypeButton && strings.TrimSpace(m.Path) == "" {
		return errors.New("menu path is required")
	}
	return nil
}

func queryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusOK, CodeBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeData(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, api.CommonResult[any]{Code: 0, Message: "", Data: data})
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	writeEnvelope(w, status, api.CommonResult[any]{Code: code, Message: msg})
}

func writeEnvelope(w http.ResponseWriter, status int, body api.CommonResult[any]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

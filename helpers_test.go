package goAuthClient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// authServer fakes the auth API. Handlers can be swapped per test.
type authServer struct {
	*httptest.Server

	logins  atomic.Int32
	logouts atomic.Int32

	mu       sync.Mutex
	loginFn  http.HandlerFunc
	logoutFn http.HandlerFunc
	meFn     http.HandlerFunc
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()

	s := &authServer{}
	s.loginFn = respond(http.StatusOK, memberLoginBody("tok-1", "free"))
	s.logoutFn = respond(http.StatusOK, `{"message":"ok"}`)
	s.meFn = respond(http.StatusOK, `{"id":7,"username":"ana","membership_tier":"free"}`)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		login, logout, me := s.loginFn, s.logoutFn, s.meFn
		s.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/auth/login"):
			s.logins.Add(1)
			login(w, r)
		case strings.HasSuffix(r.URL.Path, "/auth/logout"):
			s.logouts.Add(1)
			logout(w, r)
		case strings.HasSuffix(r.URL.Path, "/auth/me"):
			me(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *authServer) setLogin(fn http.HandlerFunc) {
	s.mu.Lock()
	s.loginFn = fn
	s.mu.Unlock()
}

func (s *authServer) setLogout(fn http.HandlerFunc) {
	s.mu.Lock()
	s.logoutFn = fn
	s.mu.Unlock()
}

func (s *authServer) setMe(fn http.HandlerFunc) {
	s.mu.Lock()
	s.meFn = fn
	s.mu.Unlock()
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// gated blocks inside the handler until release is closed.
func gated(entered chan<- struct{}, release <-chan struct{}, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		next(w, r)
	}
}

func memberLoginBody(token, tier string) string {
	return `{"access_token":"` + token + `","token_type":"bearer","user":{"id":7,"username":"ana","email":"ana@example.com","full_name":"Ana Lopez","membership_tier":"` + tier + `"}}`
}

func adminLoginBody(token string, super bool) string {
	flag := "false"
	if super {
		flag = "true"
	}
	return `{"access_token":"` + token + `","token_type":"bearer","admin":{"id":"a-1","username":"root","email":"root@example.com","full_name":"Root Admin","is_super_admin":` + flag + `}}`
}

// routeRecorder collects navigation intents.
type routeRecorder struct {
	mu     sync.Mutex
	routes []Route
}

func (r *routeRecorder) Navigate(route Route) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
}

func (r *routeRecorder) all() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig(profile Profile, srv *authServer) Config {
	cfg := DefaultConfig(profile)
	cfg.API.BaseURL = srv.URL + "/api/v1"
	cfg.API.Timeout = 2 * time.Second
	cfg.Login.RatePerMinute = 0
	return cfg
}

// newTestClient builds and initializes a client against srv. configure may
// adjust the builder before Build.
func newTestClient(t *testing.T, cfg Config, configure func(*Builder)) *Client {
	t.Helper()

	b := New().WithConfig(cfg)
	if configure != nil {
		configure(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)

	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return c
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func preload(t *testing.T, storage *session.MemoryStorage, keys session.Keys, token string, user UserRecord) {
	t.Helper()

	encoded, err := session.EncodeUser(user)
	if err != nil {
		t.Fatalf("EncodeUser failed: %v", err)
	}
	ctx := context.Background()
	if err := storage.Set(ctx, keys.Token, token); err != nil {
		t.Fatalf("Set token failed: %v", err)
	}
	if err := storage.Set(ctx, keys.User, encoded); err != nil {
		t.Fatalf("Set user failed: %v", err)
	}
}

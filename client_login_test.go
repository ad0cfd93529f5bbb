package goAuthClient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
)

func TestLoginSuperAdminGetsFullPermissions(t *testing.T) {
	srv := newAuthServer(t)
	srv.setLogin(respond(http.StatusOK, adminLoginBody("tok-admin", true)))

	storage := session.NewMemoryStorage()
	nav := &routeRecorder{}
	c := newTestClient(t, testConfig(ProfileAdmin, srv), func(b *Builder) {
		b.WithStorage(storage).WithNavigator(nav)
	})

	user, err := c.Login(context.Background(), "root", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !user.IsAdmin || user.AdminLevel != permission.LevelSuperAdmin {
		t.Fatalf("unexpected admin fields: %+v", user)
	}
	if len(user.Permissions) != len(permission.FullAdminPermissions) {
		t.Fatalf("expected %d permissions, got %v", len(permission.FullAdminPermissions), user.Permissions)
	}
	for _, p := range permission.FullAdminPermissions {
		if !c.HasPermission(p) {
			t.Fatalf("expected permission %q", p)
		}
	}

	snap := c.State()
	if snap.Phase != PhaseAuthenticated || !snap.IsAuthenticated || snap.Token != "tok-admin" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if routes := nav.all(); len(routes) != 1 || routes[0] != RouteHome {
		t.Fatalf("expected one RouteHome, got %v", routes)
	}

	ctx := context.Background()
	if tok, ok, _ := storage.Get(ctx, session.AdminKeys.Token); !ok || tok != "tok-admin" {
		t.Fatalf("expected admin_token persisted, got %q %v", tok, ok)
	}
	if _, ok, _ := storage.Get(ctx, session.AdminKeys.User); !ok {
		t.Fatal("expected admin_user persisted")
	}
	if _, ok, _ := storage.Get(ctx, session.MemberKeys.Token); ok {
		t.Fatal("member keys must not be written by the admin profile")
	}
}

func TestLoginPlainAdminGetsReducedPermissions(t *testing.T) {
	srv := newAuthServer(t)
	srv.setLogin(respond(http.StatusOK, adminLoginBody("tok-admin", false)))
	c := newTestClient(t, testConfig(ProfileAdmin, srv), nil)

	user, err := c.Login(context.Background(), "root", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.AdminLevel != permission.LevelAdmin {
		t.Fatalf("expected admin level, got %q", user.AdminLevel)
	}
	if !c.HasPermission("users.manage") || !c.HasPermission("orders.view") {
		t.Fatal("expected reduced admin permissions")
	}
	if c.HasPermission("admins.manage") || c.HasPermission("system.settings") {
		t.Fatal("plain admin must not hold super admin permissions")
	}
	if !c.HasAnyPermission("logs.view", "companies.view") {
		t.Fatal("expected HasAnyPermission to match companies.view")
	}
	if c.HasAnyPermission() {
		t.Fatal("HasAnyPermission with no arguments must be false")
	}
}

func TestLoginMemberTierPermissions(t *testing.T) {
	tests := []struct {
		tier     string
		wantTier string
		has      []string
		lacks    []string
	}{
		{"free", permission.TierFree, []string{"wps.view", "pqr.view"}, []string{"wps.create", "team.manage"}},
		{"pro", permission.TierPro, []string{"wps.create", "documents.export"}, []string{"team.manage"}},
		{"enterprise", permission.TierEnterprise, []string{"team.manage", "welders.manage", "wps.view"}, nil},
		{"platinum", permission.TierFree, []string{"wps.view"}, []string{"wps.edit"}},
	}

	for _, tc := range tests {
		t.Run(tc.tier, func(t *testing.T) {
			srv := newAuthServer(t)
			srv.setLogin(respond(http.StatusOK, memberLoginBody("tok-m", tc.tier)))
			c := newTestClient(t, testConfig(ProfileMember, srv), nil)

			user, err := c.Login(context.Background(), "ana", "pw")
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			if user.IsAdmin || user.MembershipTier != tc.wantTier {
				t.Fatalf("unexpected member fields: %+v", user)
			}
			if user.ID != "7" {
				t.Fatalf("expected numeric id normalized to \"7\", got %q", user.ID)
			}
			for _, p := range tc.has {
				if !c.HasPermission(p) {
					t.Fatalf("expected %q", p)
				}
			}
			for _, p := range tc.lacks {
				if c.HasPermission(p) {
					t.Fatalf("unexpected %q", p)
				}
			}
		})
	}
}

func TestLoginFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
		message string
	}{
		{"rejected", respond(http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`), ErrInvalidCredentials, MessageInvalidCredentials},
		{"validation", respond(http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`), ErrInvalidCredentials, MessageInvalidCredentials},
		{"server error", respond(http.StatusBadGateway, `bad gateway`), ErrNetwork, MessageNetwork},
		{"wrong login path", respond(http.StatusNotFound, `{"detail":"Not Found"}`), ErrNetwork, MessageNetwork},
		{"server throttle", respond(http.StatusTooManyRequests, `{"detail":"slow down"}`), ErrLoginRateLimited, MessageRateLimited},
		{"missing token", respond(http.StatusOK, `{"user":{"id":7,"username":"ana"}}`), ErrMalformedResponse, MessageInvalidCredentials},
		{"missing identity", respond(http.StatusOK, `{"access_token":"tok"}`), ErrMalformedResponse, MessageInvalidCredentials},
		{"not json", respond(http.StatusOK, `<html>`), ErrMalformedResponse, MessageInvalidCredentials},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newAuthServer(t)
			srv.setLogin(tc.handler)

			storage := session.NewMemoryStorage()
			nav := &routeRecorder{}
			c := newTestClient(t, testConfig(ProfileMember, srv), func(b *Builder) {
				b.WithStorage(storage).WithNavigator(nav)
			})

			_, err := c.Login(context.Background(), "ana", "bad")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := UserMessage(err); got != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, got)
			}
			if storage.Len() != 0 {
				t.Fatalf("expected empty storage, got %d keys", storage.Len())
			}
			snap := c.State()
			if snap.Phase != PhaseUnauthenticated || snap.Loading || snap.User != nil {
				t.Fatalf("unexpected snapshot: %+v", snap)
			}
			if routes := nav.all(); len(routes) != 0 {
				t.Fatalf("failed login must not navigate, got %v", routes)
			}
		})
	}
}

func TestLoginUnreachableServerIsNetworkError(t *testing.T) {
	srv := newAuthServer(t)
	cfg := testConfig(ProfileMember, srv)
	srv.Close()

	c := newTestClient(t, cfg, nil)
	_, err := c.Login(context.Background(), "ana", "pw")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestLoginBlankCredentialsSkipNetwork(t *testing.T) {
	srv := newAuthServer(t)
	c := newTestClient(t, testConfig(ProfileMember, srv), nil)

	for _, pair := range [][2]string{{"", "pw"}, {"   ", "pw"}, {"ana", ""}} {
		if _, err := c.Login(context.Background(), pair[0], pair[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %q, got %v", pair, err)
		}
	}
	if n := srv.logins.Load(); n != 0 {
		t.Fatalf("expected no login requests, got %d", n)
	}
}

func TestLoginBeforeInit(t *testing.T) {
	srv := newAuthServer(t)
	c, err := New().WithConfig(testConfig(ProfileMember, srv)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if _, err := c.Login(context.Background(), "ana", "pw"); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady, got %v", err)
	}
}

func TestLoginInFlightLatch(t *testing.T) {
	srv := newAuthServer(t)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv.setLogin(gated(entered, release, respond(http.StatusOK, memberLoginBody("tok-1", "pro"))))

	c := newTestClient(t, testConfig(ProfileMember, srv), nil)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Login(context.Background(), "ana", "pw")
	}()
	<-entered

	if snap := c.State(); !snap.Loading || snap.Phase != PhaseLoading {
		t.Fatalf("expected loading while login is in flight, got %+v", snap)
	}
	if _, err := c.Login(context.Background(), "ana", "pw"); !errors.Is(err, ErrLoginInFlight) {
		t.Fatalf("expected ErrLoginInFlight, got %v", err)
	}
	if UserMessage(ErrLoginInFlight) != "" {
		t.Fatal("in-flight rejection must not be user visible")
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first login failed: %v", firstErr)
	}
	if n := srv.logins.Load(); n != 1 {
		t.Fatalf("expected exactly one login request, got %d", n)
	}
	if !c.State().IsAuthenticated {
		t.Fatal("expected authenticated after first login")
	}
}

func TestLogoutDuringLoginSupersedesResult(t *testing.T) {
	srv := newAuthServer(t)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv.setLogin(gated(entered, release, respond(http.StatusOK, memberLoginBody("tok-late", "pro"))))

	storage := session.NewMemoryStorage()
	nav := &routeRecorder{}
	c := newTestClient(t, testConfig(ProfileMember, srv), func(b *Builder) {
		b.WithStorage(storage).WithNavigator(nav)
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), "ana", "pw")
		done <- err
	}()
	<-entered

	c.Logout(context.Background())
	close(release)

	if err := <-done; !errors.Is(err, ErrLoginSuperseded) {
		t.Fatalf("expected ErrLoginSuperseded, got %v", err)
	}
	if storage.Len() != 0 {
		t.Fatal("superseded login must not persist its credential")
	}
	snap := c.State()
	if snap.IsAuthenticated || snap.Phase != PhaseUnauthenticated {
		t.Fatalf("expected unauthenticated, got %+v", snap)
	}
	if routes := nav.all(); len(routes) != 1 || routes[0] != RouteLogin {
		t.Fatalf("expected only RouteLogin, got %v", routes)
	}
}

func TestLoginRateLimited(t *testing.T) {
	srv := newAuthServer(t)
	srv.setLogin(respond(http.StatusUnauthorized, `{"detail":"nope"}`))

	cfg := testConfig(ProfileMember, srv)
	cfg.Login.RatePerMinute = 1
	cfg.Login.Burst = 1
	c := newTestClient(t, cfg, nil)

	if _, err := c.Login(context.Background(), "ana", "bad"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	_, err := c.Login(context.Background(), "ana", "bad")
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if UserMessage(err) != MessageRateLimited {
		t.Fatalf("unexpected message %q", UserMessage(err))
	}
	if n := srv.logins.Load(); n != 1 {
		t.Fatalf("expected one request, got %d", n)
	}
}

func TestReloginReplacesSession(t *testing.T) {
	srv := newAuthServer(t)
	storage := session.NewMemoryStorage()
	c := newTestClient(t, testConfig(ProfileMember, srv), func(b *Builder) { b.WithStorage(storage) })
	ctx := context.Background()

	if _, err := c.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("first Login failed: %v", err)
	}
	gen := c.State().Generation

	srv.setLogin(respond(http.StatusOK, memberLoginBody("tok-2", "enterprise")))
	if _, err := c.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("second Login failed: %v", err)
	}

	snap := c.State()
	if snap.Token != "tok-2" || snap.Generation <= gen {
		t.Fatalf("expected newer session, got %+v", snap)
	}
	if tok, _, _ := storage.Get(ctx, session.MemberKeys.Token); tok != "tok-2" {
		t.Fatalf("expected stored tok-2, got %q", tok)
	}
	if !c.HasPermission("team.manage") {
		t.Fatal("expected enterprise permissions after relogin")
	}
}

var errDiskFull = errors.New("disk full")

// failingPairStorage fails pair writes while fail is set.
type failingPairStorage struct {
	*session.MemoryStorage
	fail atomic.Bool
}

func (s *failingPairStorage) SetPair(ctx context.Context, k1, v1, k2, v2 string) error {
	if s.fail.Load() {
		return errDiskFull
	}
	return s.MemoryStorage.SetPair(ctx, k1, v1, k2, v2)
}

func TestReloginStoreFailureClearsPreviousCredential(t *testing.T) {
	srv := newAuthServer(t)
	storage := &failingPairStorage{MemoryStorage: session.NewMemoryStorage()}
	c := newTestClient(t, testConfig(ProfileMember, srv), func(b *Builder) { b.WithStorage(storage) })
	ctx := context.Background()

	if _, err := c.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("first Login failed: %v", err)
	}

	storage.fail.Store(true)
	srv.setLogin(respond(http.StatusOK, memberLoginBody("tok-2", "pro")))
	if _, err := c.Login(ctx, "ana", "pw"); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected store failure, got %v", err)
	}

	snap := c.State()
	if snap.IsAuthenticated || snap.Phase != PhaseUnauthenticated {
		t.Fatalf("expected unauthenticated, got %+v", snap)
	}
	if c.IsAuthenticated(ctx) {
		t.Fatal("store still holds the replaced credential")
	}
	if storage.Len() != 0 {
		t.Fatalf("expected empty storage, got %d keys", storage.Len())
	}
	if v := c.View(ctx); v != ViewPublic {
		t.Fatalf("expected public view, got %v", v)
	}
}

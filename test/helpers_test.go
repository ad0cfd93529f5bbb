//go:build integration
// +build integration

package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// stubAPI issues a fresh token per login so concurrent sessions are
// distinguishable.
func stubAPI(t *testing.T) *httptest.Server {
	t.Helper()

	var seq atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/auth/login"):
			if r.FormValue("password") != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
				return
			}
			n := seq.Add(1)
			_, _ = w.Write([]byte(`{"access_token":"tok-` + strconv.FormatInt(n, 10) + `","user":{"id":` + strconv.FormatInt(n, 10) + `,"username":"` + r.FormValue("username") + `","membership_tier":"pro"}}`))
		case strings.HasSuffix(r.URL.Path, "/auth/logout"):
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newIntegrationRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newIntegrationClient(t *testing.T, apiURL string, rdb *redis.Client) *goAuthClient.Client {
	t.Helper()

	cfg := goAuthClient.DefaultConfig(goAuthClient.ProfileMember)
	cfg.API.BaseURL = apiURL + "/api/v1"
	cfg.API.Timeout = 2 * time.Second
	cfg.Login.RatePerMinute = 0

	c, err := goAuthClient.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return c
}

//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

func TestStoreConsistencyUnderLoginLogoutRace(t *testing.T) {
	srv := stubAPI(t)
	mr, rdb := newIntegrationRedis(t)
	c := newIntegrationClient(t, srv.URL, rdb)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if worker%2 == 0 {
					_, err := c.Login(ctx, "ana", "pw")
					if err != nil &&
						!errors.Is(err, goAuthClient.ErrLoginInFlight) &&
						!errors.Is(err, goAuthClient.ErrLoginSuperseded) {
						t.Errorf("unexpected login error: %v", err)
						return
					}
				} else {
					c.Logout(ctx)
				}
			}
		}(w)
	}
	wg.Wait()

	snap := c.State()
	hasToken := mr.Exists("wps:token")
	hasUser := mr.Exists("wps:user")
	if hasToken != hasUser {
		t.Fatalf("half-written pair left in redis: token=%v user=%v", hasToken, hasUser)
	}
	if snap.IsAuthenticated != hasToken {
		t.Fatalf("state and store disagree: authenticated=%v stored=%v", snap.IsAuthenticated, hasToken)
	}
	if snap.IsAuthenticated {
		stored, _ := mr.Get("wps:token")
		if stored != snap.Token {
			t.Fatalf("stored token %q differs from state token %q", stored, snap.Token)
		}
	}
}

func TestStoreConsistencyLogoutIsIdempotent(t *testing.T) {
	srv := stubAPI(t)
	mr, rdb := newIntegrationRedis(t)
	c := newIntegrationClient(t, srv.URL, rdb)
	ctx := context.Background()

	if _, err := c.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	c.Logout(ctx)
	c.Logout(ctx)

	if mr.Exists("wps:token") || mr.Exists("wps:user") {
		t.Fatal("expected both keys removed")
	}
	if c.State().Phase != goAuthClient.PhaseUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", c.State().Phase)
	}
}

func TestStoreConsistencyOrphanKeyHealedOnRead(t *testing.T) {
	srv := stubAPI(t)
	mr, rdb := newIntegrationRedis(t)
	if err := mr.Set("wps:user", `{"id":"1","username":"ana","permissions":[]}`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	c := newIntegrationClient(t, srv.URL, rdb)
	if c.IsAuthenticated(context.Background()) {
		t.Fatal("orphan user key must not authenticate")
	}
	if mr.Exists("wps:user") {
		t.Fatal("expected orphan key healed")
	}
}

package permission

import (
	"fmt"
	"testing"
)

func TestRegistryAssignsStableBits(t *testing.T) {
	r := NewRegistry()
	a, err := r.Register("a")
	if err != nil || a != 0 {
		t.Fatalf("expected bit 0, got %d err=%v", a, err)
	}
	again, err := r.Register("a")
	if err != nil || again != a {
		t.Fatalf("expected idempotent register, got %d err=%v", again, err)
	}
	if _, err := r.Register(""); err == nil {
		t.Fatalf("expected empty name error")
	}
	if name, ok := r.Name(0); !ok || name != "a" {
		t.Fatalf("expected reverse lookup of bit 0")
	}
}

func TestRegistryFreezeAndLimit(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < maxBits; i++ {
		if _, err := r.Register(fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow"); err == nil {
		t.Fatalf("expected limit error")
	}

	f := NewRegistry()
	f.Freeze()
	if _, err := f.Register("late"); err == nil {
		t.Fatalf("expected frozen registry to reject")
	}
}

func TestRoleManagerRejectsUnknownPermission(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Register("a")
	rm := NewRoleManager(r)
	if err := rm.RegisterRole("x", []string{"a", "b"}); err == nil {
		t.Fatalf("expected unregistered permission error")
	}
	if err := rm.RegisterRole("x", []string{"a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := rm.RegisterRole("x", nil); err == nil {
		t.Fatalf("expected duplicate role error")
	}
	rm.Freeze()
	if err := rm.RegisterRole("y", nil); err == nil {
		t.Fatalf("expected frozen error")
	}
	if set, ok := rm.Resolve("x"); !ok || !set.Has("a") {
		t.Fatalf("expected role x to resolve with a")
	}
	if _, ok := rm.Resolve("missing"); ok {
		t.Fatalf("expected missing role to be unresolved")
	}
}

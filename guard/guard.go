package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/state"
)

// ErrTransientInconsistency reports that session state lags the token store.
// It is never user visible.
var ErrTransientInconsistency = errors.New("session state lags token store")

// DefaultInconsistencyTimeout bounds how long rule 3 may show a loading view.
const DefaultInconsistencyTimeout = 3 * time.Second

// View is one of the three trees a host can render.
type View int

const (
	ViewLoading View = iota
	ViewPublic
	ViewProtected
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewPublic:
		return "public"
	case ViewProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// Source exposes the current session snapshot.
type Source interface {
	Snapshot() state.Snapshot
}

// CredentialProbe reports whether the token store holds any part of a
// credential.
type CredentialProbe interface {
	HasCredential(ctx context.Context) bool
}

// Config controls the guard.
type Config struct {
	InconsistencyTimeout time.Duration
	// OnStale runs once when an inconsistency outlives the timeout. The host
	// is expected to clear the store and invalidate the session.
	OnStale func(ctx context.Context)
	// OnDecision observes every decision.
	OnDecision func(View, error)
	Now        func() time.Time
}

// Guard evaluates the decision table. It is safe for concurrent use.
type Guard struct {
	src   Source
	probe CredentialProbe
	cfg   Config

	mu         sync.Mutex
	since      time.Time
	sinceGen   uint64
	tracking   bool
	staleFired bool
}

// New builds a guard over src and probe.
func New(src Source, probe CredentialProbe, cfg Config) *Guard {
	if cfg.InconsistencyTimeout <= 0 {
		cfg.InconsistencyTimeout = DefaultInconsistencyTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Guard{src: src, probe: probe, cfg: cfg}
}

// Decide returns the view to render.
func (g *Guard) Decide(ctx context.Context) View {
	v, _ := g.DecideWithReason(ctx)
	return v
}

// DecideWithReason returns the view and, for rule 3, ErrTransientInconsistency.
func (g *Guard) DecideWithReason(ctx context.Context) (View, error) {
	v, err, stale := g.evaluate(ctx)
	if stale && g.cfg.OnStale != nil {
		g.cfg.OnStale(ctx)
	}
	if g.cfg.OnDecision != nil {
		g.cfg.OnDecision(v, err)
	}
	return v, err
}

func (g *Guard) evaluate(ctx context.Context) (View, error, bool) {
	snap := g.src.Snapshot()

	if snap.Loading || snap.Phase == state.PhaseUninitialized {
		return ViewLoading, nil, false
	}
	if snap.IsAuthenticated {
		g.reset()
		return ViewProtected, nil, false
	}
	if !g.probe.HasCredential(ctx) {
		g.reset()
		return ViewPublic, nil, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.cfg.Now()
	if !g.tracking || g.sinceGen != snap.Generation {
		g.tracking = true
		g.since = now
		g.sinceGen = snap.Generation
		g.staleFired = false
	}
	if now.Sub(g.since) < g.cfg.InconsistencyTimeout {
		return ViewLoading, ErrTransientInconsistency, false
	}

	fire := !g.staleFired
	g.staleFired = true
	return ViewPublic, ErrTransientInconsistency, fire
}

func (g *Guard) reset() {
	g.mu.Lock()
	g.tracking = false
	g.staleFired = false
	g.mu.Unlock()
}

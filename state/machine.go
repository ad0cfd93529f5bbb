package state

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInvalidTransition is returned when an event does not apply to the
	// current phase.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStale is returned by DispatchIf when the generation has moved on.
	ErrStale = errors.New("stale generation")
)

// Reduce applies e to s and returns the next snapshot and navigation intent.
// It is pure: s is never mutated.
func Reduce(s Snapshot, e Event, now time.Time) (Snapshot, Route, error) {
	next := s.Clone()

	switch e.Kind {
	case KindInitStart:
		if s.Phase != PhaseUninitialized {
			return s, RouteNone, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.Kind, s.Phase)
		}
		next.Phase = PhaseLoading
		next.Loading = true
		return next, RouteNone, nil

	case KindInitComplete:
		if s.Phase != PhaseLoading {
			return s, RouteNone, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.Kind, s.Phase)
		}
		next.Loading = false
		if e.User != nil && e.User.Valid() && e.Token != "" {
			authenticate(&next, e, now)
		} else {
			unauthenticate(&next)
		}
		return next, RouteNone, nil

	case KindLoginStart:
		if s.Phase == PhaseUninitialized {
			return s, RouteNone, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.Kind, s.Phase)
		}
		unauthenticate(&next)
		next.Phase = PhaseLoading
		next.Loading = true
		next.Generation++
		return next, RouteNone, nil

	case KindLoginSuccess:
		if s.Phase != PhaseLoading {
			return s, RouteNone, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.Kind, s.Phase)
		}
		if e.User == nil || !e.User.Valid() || e.Token == "" {
			return s, RouteNone, fmt.Errorf("%w: %s without credential", ErrInvalidTransition, e.Kind)
		}
		next.Loading = false
		authenticate(&next, e, now)
		return next, RouteHome, nil

	case KindLoginFailure:
		if s.Phase != PhaseLoading {
			return s, RouteNone, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.Kind, s.Phase)
		}
		next.Loading = false
		unauthenticate(&next)
		return next, RouteNone, nil

	case KindLogout, KindSessionInvalidated:
		if s.Phase == PhaseUninitialized {
			return s, RouteNone, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.Kind, s.Phase)
		}
		next.Loading = false
		unauthenticate(&next)
		next.Generation++
		return next, RouteLogin, nil

	case KindUserRefreshed:
		if s.Phase != PhaseAuthenticated {
			return s, RouteNone, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.Kind, s.Phase)
		}
		if e.User == nil || !e.User.Valid() {
			return s, RouteNone, fmt.Errorf("%w: %s without user", ErrInvalidTransition, e.Kind)
		}
		u := e.User.Clone()
		next.User = &u
		next.RefreshedAt = now
		return next, RouteNone, nil
	}

	return s, RouteNone, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, e.Kind)
}

func authenticate(s *Snapshot, e Event, now time.Time) {
	u := e.User.Clone()
	s.Phase = PhaseAuthenticated
	s.IsAuthenticated = true
	s.User = &u
	s.Token = e.Token
	s.RefreshedAt = now
}

func unauthenticate(s *Snapshot) {
	s.Phase = PhaseUnauthenticated
	s.IsAuthenticated = false
	s.User = nil
	s.Token = ""
	s.RefreshedAt = time.Time{}
}

// Option configures a Machine.
type Option func(*Machine)

// WithNavigator sets the receiver of navigation intents.
func WithNavigator(n Navigator) Option {
	return func(m *Machine) { m.nav = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// Machine owns the current session snapshot.
//
// Subscribers and the navigator run after the update commits, outside the
// state lock, in commit order. They must not dispatch synchronously.
type Machine struct {
	// notifyMu serializes commit+notify so subscribers see transitions in order.
	notifyMu sync.Mutex

	mu     sync.Mutex
	snap   Snapshot
	subs   []subscriber
	nextID uint64

	nav Navigator
	now func() time.Time
}

// New returns a machine in PhaseUninitialized.
func New(opts ...Option) *Machine {
	m := &Machine{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}

// Generation returns the current generation.
func (m *Machine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Generation
}

// Dispatch applies e unconditionally.
func (m *Machine) Dispatch(e Event) (Snapshot, error) {
	return m.dispatch(e, nil)
}

// DispatchIf applies e only if the generation still equals gen.
func (m *Machine) DispatchIf(gen uint64, e Event) (Snapshot, error) {
	return m.dispatch(e, &gen)
}

func (m *Machine) dispatch(e Event, gen *uint64) (Snapshot, error) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if gen != nil && m.snap.Generation != *gen {
		cur := m.snap.Clone()
		m.mu.Unlock()
		return cur, fmt.Errorf("%w: have %d, want %d", ErrStale, cur.Generation, *gen)
	}
	next, route, err := Reduce(m.snap, e, m.now())
	if err != nil {
		cur := m.snap.Clone()
		m.mu.Unlock()
		return cur, err
	}
	m.snap = next
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	nav := m.nav
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(next.Clone())
	}
	if nav != nil && route != RouteNone {
		nav.Navigate(route)
	}
	return next.Clone(), nil
}

// Subscribe registers fn for every committed transition. The returned cancel
// func is idempotent.
func (m *Machine) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

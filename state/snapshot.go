package state

import (
	"time"

	"github.com/MrEthical07/goAuthClient/session"
)

// Phase is the coarse lifecycle position of a session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseAuthenticated
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of the machine state.
// IsAuthenticated implies Token != "" and User != nil.
type Snapshot struct {
	Phase           Phase
	Loading         bool
	IsAuthenticated bool
	User            *session.UserRecord
	Token           string
	Generation      uint64
	// RefreshedAt is when the user record was last derived from the server.
	RefreshedAt time.Time
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	return s
}

// Route is a navigation intent emitted by a transition.
type Route string

const (
	RouteNone  Route = ""
	RouteHome  Route = "home"
	RouteLogin Route = "login"
)

// Navigator receives navigation intents after a transition commits.
type Navigator interface {
	Navigate(Route)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(r Route) { f(r) }

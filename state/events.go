package state

import "github.com/MrEthical07/goAuthClient/session"

// Kind names a state machine event.
type Kind string

const (
	KindInitStart          Kind = "INIT_START"
	KindInitComplete       Kind = "INIT_COMPLETE"
	KindLoginStart         Kind = "LOGIN_START"
	KindLoginSuccess       Kind = "LOGIN_SUCCESS"
	KindLoginFailure       Kind = "LOGIN_FAILURE"
	KindLogout             Kind = "LOGOUT"
	KindSessionInvalidated Kind = "SESSION_INVALIDATED"
	KindUserRefreshed      Kind = "USER_REFRESHED"
)

// Event is one input to the machine. User and Token are only read by the
// kinds that carry a credential.
type Event struct {
	Kind   Kind
	User   *session.UserRecord
	Token  string
	Reason error
}

func InitStart() Event { return Event{Kind: KindInitStart} }

// InitComplete carries the credential found at startup, or nil.
func InitComplete(cred *session.Credential) Event {
	if cred == nil || cred.Empty() {
		return Event{Kind: KindInitComplete}
	}
	u := cred.User.Clone()
	return Event{Kind: KindInitComplete, User: &u, Token: cred.Token}
}

func LoginStart() Event { return Event{Kind: KindLoginStart} }

func LoginSuccess(token string, user session.UserRecord) Event {
	u := user.Clone()
	return Event{Kind: KindLoginSuccess, User: &u, Token: token}
}

func LoginFailure(reason error) Event {
	return Event{Kind: KindLoginFailure, Reason: reason}
}

func Logout() Event { return Event{Kind: KindLogout} }

// SessionInvalidated ends the session for a reason other than an explicit
// logout: storage corruption, expiry, a 401, or a guard timeout.
func SessionInvalidated(reason error) Event {
	return Event{Kind: KindSessionInvalidated, Reason: reason}
}

// UserRefreshed replaces the cached user of an authenticated session.
func UserRefreshed(user session.UserRecord) Event {
	u := user.Clone()
	return Event{Kind: KindUserRefreshed, User: &u}
}

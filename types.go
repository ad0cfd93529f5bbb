package goAuthClient

import (
	"io"

	"github.com/MrEthical07/goAuthClient/guard"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/state"
	"go.uber.org/zap"
)

// UserRecord is the cached identity of the logged-in user.
type UserRecord = session.UserRecord

// Credential is the persisted token and user pair.
type Credential = session.Credential

// Snapshot is an immutable copy of the session state.
type Snapshot = state.Snapshot

// Phase is the coarse lifecycle position of a session.
type Phase = state.Phase

const (
	PhaseUninitialized   = state.PhaseUninitialized
	PhaseLoading         = state.PhaseLoading
	PhaseAuthenticated   = state.PhaseAuthenticated
	PhaseUnauthenticated = state.PhaseUnauthenticated
)

// Route is a navigation intent emitted by a session transition.
type Route = state.Route

const (
	RouteHome  = state.RouteHome
	RouteLogin = state.RouteLogin
)

// Navigator receives navigation intents.
type Navigator = state.Navigator

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc = state.NavigatorFunc

// View is one of the three trees a host renders.
type View = guard.View

const (
	ViewLoading   = guard.ViewLoading
	ViewPublic    = guard.ViewPublic
	ViewProtected = guard.ViewProtected
)

// AuditEvent is one auth lifecycle record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events.
type AuditSink = internalaudit.Sink

// Audit event types.
const (
	AuditLoginSuccess       = internalaudit.EventLoginSuccess
	AuditLoginFailure       = internalaudit.EventLoginFailure
	AuditLoginMalformed     = internalaudit.EventLoginMalformed
	AuditLoginRateLimited   = internalaudit.EventLoginRateLimited
	AuditLoginSuperseded    = internalaudit.EventLoginSuperseded
	AuditLogout             = internalaudit.EventLogout
	AuditLogoutRemoteFailed = internalaudit.EventLogoutRemoteFailed
	AuditStorageSelfHeal    = internalaudit.EventStorageSelfHeal
	AuditSessionRestored    = internalaudit.EventSessionRestored
	AuditSessionExpired     = internalaudit.EventSessionExpired
	AuditSessionInvalidated = internalaudit.EventSessionInvalidated
	AuditProfileRefreshed   = internalaudit.EventProfileRefreshed
)

// NewJSONWriterSink writes one JSON audit event per line to w.
func NewJSONWriterSink(w io.Writer) AuditSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink logs audit events through logger.
func NewZapSink(logger *zap.Logger) AuditSink {
	return internalaudit.NewZapSink(logger)
}

// NewChannelSink buffers audit events in a channel, mostly for tests.
func NewChannelSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

package flows

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goAuthClient/internal/transport"
	"go.uber.org/zap"
)

// Logout results reported to ObserveLogout.
const (
	LogoutResultClean        = "clean"
	LogoutResultRemoteFailed = "remote_failed"
	LogoutResultLocalOnly    = "local_only"
)

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	RemoteFailed string
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Revoke        func(ctx context.Context, token string) error
	ObserveLogout func(result string)
	EmitAudit     AuditFunc
	Logger        *zap.Logger

	Events LogoutEvents
}

// RunLogout makes the best-effort server call for token. Failures are logged
// and swallowed; the returned result only feeds metrics.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) string {
	defaults(&deps.Logger, &deps.EmitAudit, nil)
	if deps.ObserveLogout == nil {
		deps.ObserveLogout = func(string) {}
	}

	if token == "" || deps.Revoke == nil {
		deps.ObserveLogout(LogoutResultLocalOnly)
		return LogoutResultLocalOnly
	}

	if err := deps.Revoke(ctx, token); err != nil {
		deps.Logger.Warn("logout request failed, clearing local session anyway", zap.Error(err))
		deps.EmitAudit(ctx, deps.Events.RemoteFailed, false, "", "", err, func() map[string]string {
			var apiErr *transport.APIError
			if errors.As(err, &apiErr) {
				return map[string]string{"status": strconv.Itoa(apiErr.Status)}
			}
			return nil
		})
		deps.ObserveLogout(LogoutResultRemoteFailed)
		return LogoutResultRemoteFailed
	}

	deps.ObserveLogout(LogoutResultClean)
	return LogoutResultClean
}

package goAuthClient

import (
	"time"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/transport"
	"github.com/MrEthical07/goAuthClient/session"
)

func (c *Client) flowDeps() flows.Deps {
	admin := c.config.Profile == ProfileAdmin
	normalize := func(ident transport.Identity) session.UserRecord {
		return flows.NormalizeIdentity(ident, admin, c.table)
	}
	audit := flows.AuditFunc(c.emitAudit)

	var allow func() bool
	if c.limiter != nil {
		allow = c.limiter.Allow
	}

	return flows.Deps{
		Login: flows.LoginDeps{
			Now:          c.now,
			AllowAttempt: allow,
			Authenticate: c.api.Login,
			Normalize:    normalize,
			ObserveLogin: func(result string, elapsed time.Duration) {
				c.metrics.observeLogin(result, elapsed)
			},
			EmitAudit: audit,
			Logger:    c.logger,
			Events: flows.LoginEvents{
				Success:     internalaudit.EventLoginSuccess,
				Failure:     internalaudit.EventLoginFailure,
				Malformed:   internalaudit.EventLoginMalformed,
				RateLimited: internalaudit.EventLoginRateLimited,
			},
			Errors: flows.LoginErrors{
				NotReady:           ErrClientNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				Network:            ErrNetwork,
				MalformedResponse:  ErrMalformedResponse,
				RateLimited:        ErrLoginRateLimited,
			},
		},
		Logout: flows.LogoutDeps{
			Revoke:        c.api.Logout,
			ObserveLogout: c.metrics.observeLogout,
			EmitAudit:     audit,
			Logger:        c.logger,
			Events: flows.LogoutEvents{
				RemoteFailed: internalaudit.EventLogoutRemoteFailed,
			},
		},
		Bootstrap: flows.BootstrapDeps{
			Load:         c.store.Load,
			Clear:        c.store.Clear,
			TokenExpired: c.inspector.Expired,
			EmitAudit:    audit,
			Logger:       c.logger,
			Events: flows.BootstrapEvents{
				Restored: internalaudit.EventSessionRestored,
				Expired:  internalaudit.EventSessionExpired,
			},
			Errors: flows.BootstrapErrors{
				StorageUnavailable: ErrStorageUnavailable,
			},
		},
		Refresh: flows.RefreshDeps{
			FetchProfile: c.api.Profile,
			Normalize:    normalize,
			EmitAudit:    audit,
			Logger:       c.logger,
			Events: flows.RefreshEvents{
				Refreshed: internalaudit.EventProfileRefreshed,
			},
			Errors: flows.RefreshErrors{
				NotReady:          ErrClientNotReady,
				NotAuthenticated:  ErrNotAuthenticated,
				Network:           ErrNetwork,
				MalformedResponse: ErrMalformedResponse,
			},
		},
	}
}

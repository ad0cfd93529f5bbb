package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthClient/internal/transport"
	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	Refreshed string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	NotReady          error
	NotAuthenticated  error
	Network           error
	MalformedResponse error
}

// RefreshDeps captures profile refresh dependencies.
type RefreshDeps struct {
	FetchProfile func(ctx context.Context, token string) (transport.Identity, error)
	Normalize    func(transport.Identity) session.UserRecord
	EmitAudit    AuditFunc
	Logger       *zap.Logger

	Events RefreshEvents
	Errors RefreshErrors
}

// RunRefresh re-derives the user record for token from the profile endpoint.
// A 401 maps to Errors.NotAuthenticated so the caller can end the session.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) (session.UserRecord, error) {
	defaults(&deps.Logger, &deps.EmitAudit, nil)
	if deps.FetchProfile == nil || deps.Normalize == nil {
		return session.UserRecord{}, deps.Errors.NotReady
	}
	if token == "" {
		return session.UserRecord{}, deps.Errors.NotAuthenticated
	}

	ident, err := deps.FetchProfile(ctx, token)
	if err != nil {
		switch {
		case transport.IsUnauthorized(err):
			deps.Logger.Info("profile refresh rejected token", zap.Error(err))
			return session.UserRecord{}, fmt.Errorf("%w: %w", deps.Errors.NotAuthenticated, err)
		case errors.Is(err, transport.ErrMalformed):
			deps.Logger.Error("profile response broke the auth api contract", zap.Error(err))
			return session.UserRecord{}, fmt.Errorf("%w: %w", deps.Errors.MalformedResponse, err)
		default:
			deps.Logger.Warn("profile refresh failed", zap.Error(err))
			return session.UserRecord{}, fmt.Errorf("%w: %w", deps.Errors.Network, err)
		}
	}

	user := deps.Normalize(ident)
	deps.EmitAudit(ctx, deps.Events.Refreshed, true, user.ID, user.Username, nil, nil)
	return user, nil
}

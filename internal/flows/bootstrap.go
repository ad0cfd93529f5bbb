package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

// BootstrapEvents carries audit event names used by the bootstrap flow.
type BootstrapEvents struct {
	Restored string
	Expired  string
}

// BootstrapErrors carries host-level sentinel errors used by the bootstrap flow.
type BootstrapErrors struct {
	StorageUnavailable error
}

// BootstrapDeps captures startup dependencies.
type BootstrapDeps struct {
	Load         func(ctx context.Context) (session.Credential, bool, error)
	Clear        func(ctx context.Context) error
	TokenExpired func(token string) bool
	EmitAudit    AuditFunc
	Logger       *zap.Logger

	Events BootstrapEvents
	Errors BootstrapErrors
}

// RunBootstrap reads the persisted credential once at startup. It returns nil
// when the session must start unauthenticated. A storage error is returned
// alongside a nil credential so the caller can still finish initialization.
func RunBootstrap(ctx context.Context, deps BootstrapDeps) (*session.Credential, error) {
	defaults(&deps.Logger, &deps.EmitAudit, nil)
	if deps.Load == nil {
		return nil, nil
	}

	cred, ok, err := deps.Load(ctx)
	if err != nil {
		deps.Logger.Error("token store unreadable at startup", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", deps.Errors.StorageUnavailable, err)
	}
	if !ok {
		return nil, nil
	}

	if deps.TokenExpired != nil && deps.TokenExpired(cred.Token) {
		deps.Logger.Info("stored access token expired, clearing", zap.String("user_id", cred.User.ID))
		deps.EmitAudit(ctx, deps.Events.Expired, true, cred.User.ID, cred.User.Username, nil, nil)
		if deps.Clear != nil {
			if err := deps.Clear(ctx); err != nil {
				deps.Logger.Warn("clearing expired credential failed", zap.Error(err))
			}
		}
		return nil, nil
	}

	deps.EmitAudit(ctx, deps.Events.Restored, true, cred.User.ID, cred.User.Username, nil, nil)
	return &cred, nil
}

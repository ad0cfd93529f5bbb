package flows

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Deps groups flow dependency sets. The root client builds this once and
// delegates operations to the matching flow.
type Deps struct {
	Login     LoginDeps
	Logout    LogoutDeps
	Bootstrap BootstrapDeps
	Refresh   RefreshDeps
}

// AuditFunc emits one audit event. meta is only evaluated when the sink is
// enabled.
type AuditFunc func(ctx context.Context, event string, success bool, userID, username string, err error, meta func() map[string]string)

func noopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func defaults(logger **zap.Logger, audit *AuditFunc, now *func() time.Time) {
	if *logger == nil {
		*logger = zap.NewNop()
	}
	if *audit == nil {
		*audit = noopAudit
	}
	if now != nil && *now == nil {
		*now = time.Now
	}
}

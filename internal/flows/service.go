package flows

import (
	"context"

	"github.com/MrEthical07/goAuthClient/session"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

func (s Service) Login(ctx context.Context, username, password string) (session.Credential, error) {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) Logout(ctx context.Context, token string) string {
	return RunLogout(ctx, token, s.deps.Logout)
}

func (s Service) Bootstrap(ctx context.Context) (*session.Credential, error) {
	return RunBootstrap(ctx, s.deps.Bootstrap)
}

func (s Service) Refresh(ctx context.Context, token string) (session.UserRecord, error) {
	return RunRefresh(ctx, token, s.deps.Refresh)
}

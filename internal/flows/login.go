package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/transport"
	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

// Login results reported to ObserveLogin.
const (
	LoginResultSuccess     = "success"
	LoginResultInvalid     = "invalid_credentials"
	LoginResultNetwork     = "network_error"
	LoginResultMalformed   = "malformed_response"
	LoginResultRateLimited = "rate_limited"
)

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success     string
	Failure     string
	Malformed   string
	RateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	NotReady           error
	InvalidCredentials error
	Network            error
	MalformedResponse  error
	RateLimited        error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Now          func() time.Time
	AllowAttempt func() bool
	Authenticate func(ctx context.Context, username, password string) (transport.LoginResponse, error)
	Normalize    func(transport.Identity) session.UserRecord
	ObserveLogin func(result string, elapsed time.Duration)
	EmitAudit    AuditFunc
	Logger       *zap.Logger

	Events LoginEvents
	Errors LoginErrors
}

// RunLogin authenticates against the server and returns the credential to
// commit. It never writes the token store.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (session.Credential, error) {
	defaults(&deps.Logger, &deps.EmitAudit, &deps.Now)
	if deps.ObserveLogin == nil {
		deps.ObserveLogin = func(string, time.Duration) {}
	}
	if deps.Authenticate == nil || deps.Normalize == nil {
		return session.Credential{}, deps.Errors.NotReady
	}

	username = strings.TrimSpace(username)
	start := deps.Now()

	if deps.AllowAttempt != nil && !deps.AllowAttempt() {
		deps.ObserveLogin(LoginResultRateLimited, 0)
		deps.EmitAudit(ctx, deps.Events.RateLimited, false, "", username, deps.Errors.RateLimited, nil)
		return session.Credential{}, deps.Errors.RateLimited
	}

	if username == "" || password == "" {
		deps.ObserveLogin(LoginResultInvalid, 0)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", username, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_credentials"}
		})
		return session.Credential{}, deps.Errors.InvalidCredentials
	}

	resp, err := deps.Authenticate(ctx, username, password)
	password = ""
	elapsed := deps.Now().Sub(start)
	if err != nil {
		return session.Credential{}, classifyLoginError(ctx, username, err, elapsed, deps)
	}

	user := deps.Normalize(resp.Identity)
	if !user.Valid() {
		deps.ObserveLogin(LoginResultMalformed, elapsed)
		deps.Logger.Error("login response identity normalized to empty user", zap.String("username", username))
		deps.EmitAudit(ctx, deps.Events.Malformed, false, "", username, deps.Errors.MalformedResponse, nil)
		return session.Credential{}, deps.Errors.MalformedResponse
	}

	deps.ObserveLogin(LoginResultSuccess, elapsed)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.ID, user.Username, nil, func() map[string]string {
		meta := map[string]string{"permissions": strconv.Itoa(len(user.Permissions))}
		if user.AdminLevel != "" {
			meta["admin_level"] = user.AdminLevel
		}
		if user.MembershipTier != "" {
			meta["membership_tier"] = user.MembershipTier
		}
		return meta
	})
	return session.Credential{Token: resp.AccessToken, User: user}, nil
}

func classifyLoginError(ctx context.Context, username string, err error, elapsed time.Duration, deps LoginDeps) error {
	var apiErr *transport.APIError
	hasAPIErr := errors.As(err, &apiErr)
	meta := func() map[string]string {
		if !hasAPIErr {
			return nil
		}
		return map[string]string{"status": strconv.Itoa(apiErr.Status)}
	}

	switch {
	case errors.Is(err, transport.ErrRejected):
		deps.ObserveLogin(LoginResultInvalid, elapsed)
		deps.Logger.Info("login rejected", zap.String("username", username), zap.Error(err))
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", username, err, meta)
		return fmt.Errorf("%w: %w", deps.Errors.InvalidCredentials, err)

	case errors.Is(err, transport.ErrThrottled):
		deps.ObserveLogin(LoginResultRateLimited, elapsed)
		deps.Logger.Warn("login throttled by auth api", zap.String("username", username), zap.Error(err))
		deps.EmitAudit(ctx, deps.Events.RateLimited, false, "", username, err, meta)
		return fmt.Errorf("%w: %w", deps.Errors.RateLimited, err)

	case errors.Is(err, transport.ErrMalformed):
		deps.ObserveLogin(LoginResultMalformed, elapsed)
		deps.Logger.Error("login response broke the auth api contract", zap.String("username", username), zap.Error(err))
		deps.EmitAudit(ctx, deps.Events.Malformed, false, "", username, err, meta)
		return fmt.Errorf("%w: %w", deps.Errors.MalformedResponse, err)

	default:
		deps.ObserveLogin(LoginResultNetwork, elapsed)
		deps.Logger.Warn("login request failed", zap.String("username", username), zap.Error(err))
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", username, err, func() map[string]string {
			m := meta()
			if m == nil {
				m = map[string]string{}
			}
			m["reason"] = "network"
			return m
		})
		return fmt.Errorf("%w: %w", deps.Errors.Network, err)
	}
}

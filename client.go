package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/guard"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/transport"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/middleware"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/state"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the owned session container. It is safe for concurrent use after
// Build.
//
// Subscribers and the navigator run synchronously inside Login, Logout and the
// other committing methods. They may read State but must not call back into
// committing methods on the same goroutine.
type Client struct {
	id     string
	config Config
	now    func() time.Time

	logger    *zap.Logger
	store     *session.Store
	machine   *state.Machine
	guard     *guard.Guard
	api       *transport.Client
	inspector *jwt.Inspector
	table     *permission.Table
	limiter   *rate.Limiter
	flows     flows.Service
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	tracer    trace.Tracer

	// commitMu serializes token store writes with the state transition that
	// reflects them.
	commitMu sync.Mutex

	loginInFlight atomic.Bool
	initOnce      sync.Once
	initDone      atomic.Bool
	initErr       error
	closeOnce     sync.Once
}

// ID returns the client instance id used in logs and audit events.
func (c *Client) ID() string {
	return c.id
}

// Config returns a copy of the active configuration.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// Init restores a persisted session. It runs once per Client; later calls
// return the first result. A storage error still completes initialization
// as unauthenticated.
func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.runInit(ctx)
		c.initDone.Store(true)
	})
	return c.initErr
}

func (c *Client) runInit(ctx context.Context) error {
	c.commitMu.Lock()
	snap, err := c.machine.Dispatch(state.InitStart())
	c.commitMu.Unlock()
	if err != nil {
		return err
	}

	cred, loadErr := c.flows.Bootstrap(ctx)

	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	if _, err := c.machine.DispatchIf(snap.Generation, state.InitComplete(cred)); err != nil {
		if errors.Is(err, state.ErrStale) {
			// A logout or invalidation settled the session during the read.
			c.logger.Debug("init result discarded", zap.Error(err))
			return nil
		}
		return err
	}
	if cred != nil {
		c.logger.Info("session restored", zap.String("user_id", cred.User.ID))
	}
	return loadErr
}

// Login authenticates username and commits the session. On success the
// session is Authenticated, the credential is persisted and the navigator
// receives RouteHome in one update. On failure nothing is written.
func (c *Client) Login(ctx context.Context, username, password string) (UserRecord, error) {
	if !c.initDone.Load() {
		return UserRecord{}, ErrClientNotReady
	}
	if !c.loginInFlight.CompareAndSwap(false, true) {
		return UserRecord{}, ErrLoginInFlight
	}
	defer c.loginInFlight.Store(false)

	ctx, span := c.startSpan(ctx, "login", attribute.String("auth.username", username))
	var err error
	defer func() { endSpan(span, err) }()

	c.commitMu.Lock()
	wasAuthenticated := c.machine.Snapshot().IsAuthenticated
	snap, err := c.machine.Dispatch(state.LoginStart())
	c.commitMu.Unlock()
	if err != nil {
		return UserRecord{}, err
	}
	gen := snap.Generation

	var cred session.Credential
	cred, err = c.flows.Login(ctx, username, password)

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if err != nil {
		c.failLoginLocked(ctx, gen, wasAuthenticated, err)
		return UserRecord{}, err
	}

	if c.machine.Generation() != gen {
		err = ErrLoginSuperseded
		c.logger.Info("discarding superseded login", zap.String("user_id", cred.User.ID))
		c.emitAudit(ctx, internalaudit.EventLoginSuperseded, false, cred.User.ID, cred.User.Username, err, nil)
		return UserRecord{}, err
	}

	if err = c.store.Save(ctx, cred.Token, cred.User); err != nil {
		c.logger.Error("persisting credential failed", zap.Error(err))
		c.failLoginLocked(ctx, gen, wasAuthenticated, err)
		return UserRecord{}, err
	}

	if _, err = c.machine.DispatchIf(gen, state.LoginSuccess(cred.Token, cred.User)); err != nil {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Error("rolling back credential failed", zap.Error(clearErr))
		}
		return UserRecord{}, err
	}

	span.SetAttributes(attribute.String("auth.user_id", cred.User.ID))
	c.logger.Info("login succeeded",
		zap.String("user_id", cred.User.ID),
		zap.Int("permissions", len(cred.User.Permissions)),
	)
	return cred.User.Clone(), nil
}

// failLoginLocked ends a login attempt that started at gen. A session that
// was authenticated before LoginStart is already gone from memory, so its
// credential is cleared too. Callers hold commitMu.
func (c *Client) failLoginLocked(ctx context.Context, gen uint64, wasAuthenticated bool, cause error) {
	_, err := c.machine.DispatchIf(gen, state.LoginFailure(cause))
	switch {
	case errors.Is(err, state.ErrStale):
		c.logger.Debug("login failure arrived after session moved on", zap.Error(cause))
	case err == nil && wasAuthenticated:
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Error("clearing replaced credential failed", zap.Error(clearErr))
		}
	}
}

// Logout ends the session. The server call is best effort; the local
// credential is always cleared and the navigator receives RouteLogin.
func (c *Client) Logout(ctx context.Context) {
	ctx, span := c.startSpan(ctx, "logout")
	defer span.End()

	c.commitMu.Lock()
	snap := c.machine.Snapshot()
	token := c.logoutToken(ctx, snap)
	c.commitMu.Unlock()

	result := c.flows.Logout(ctx, token)

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	// A login that committed while the revoke was in flight owns a newer
	// server session; revoke it before clearing.
	if cur := c.machine.Snapshot(); cur.Generation != snap.Generation && cur.Token != "" && cur.Token != token {
		result = c.flows.Logout(ctx, cur.Token)
		snap = cur
	}
	span.SetAttributes(attribute.String("auth.logout_result", result))

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("clearing credential on logout failed", zap.Error(err))
	}
	if _, err := c.machine.Dispatch(state.Logout()); err != nil {
		c.logger.Debug("logout before init", zap.Error(err))
	}

	var userID, username string
	if snap.User != nil {
		userID, username = snap.User.ID, snap.User.Username
	}
	c.emitAudit(ctx, internalaudit.EventLogout, true, userID, username, nil, func() map[string]string {
		return map[string]string{"remote": result}
	})
	c.logger.Info("logged out", zap.String("user_id", userID), zap.String("remote", result))
}

func (c *Client) logoutToken(ctx context.Context, snap Snapshot) string {
	if snap.Token != "" {
		return snap.Token
	}
	token, _ := c.store.Token(ctx)
	return token
}

// CurrentUser reads the persisted user without a network call.
func (c *Client) CurrentUser(ctx context.Context) (UserRecord, bool) {
	cred, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("reading current user failed", zap.Error(err))
		return UserRecord{}, false
	}
	if !ok {
		return UserRecord{}, false
	}
	return cred.User, true
}

// IsAuthenticated reports whether both halves of the credential are persisted.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, ok, err := c.store.Load(ctx)
	return err == nil && ok
}

// HasPermission reports whether the session's cached permissions include p.
func (c *Client) HasPermission(p string) bool {
	return c.permissions().Has(p)
}

// HasAnyPermission reports whether the session's cached permissions include
// at least one of ps.
func (c *Client) HasAnyPermission(ps ...string) bool {
	return c.permissions().HasAny(ps...)
}

func (c *Client) permissions() permission.Set {
	snap := c.machine.Snapshot()
	if !snap.IsAuthenticated || snap.User == nil {
		return permission.Set{}
	}
	return c.table.FromNames(snap.User.Permissions)
}

// State returns a copy of the current session state.
func (c *Client) State() Snapshot {
	return c.machine.Snapshot()
}

// Subscribe registers fn for every committed session transition.
func (c *Client) Subscribe(fn func(Snapshot)) (cancel func()) {
	return c.machine.Subscribe(fn)
}

// View returns the tree the host should render now.
func (c *Client) View(ctx context.Context) View {
	return c.guard.Decide(ctx)
}

// Guard exposes the route guard for HTTP adapters.
func (c *Client) Guard() *guard.Guard {
	return c.guard
}

// PermissionsStale reports whether the cached permissions are older than
// Config.Session.PermissionTTL.
func (c *Client) PermissionsStale() bool {
	ttl := c.config.Session.PermissionTTL
	if ttl <= 0 {
		return false
	}
	snap := c.machine.Snapshot()
	if !snap.IsAuthenticated {
		return false
	}
	return c.now().Sub(snap.RefreshedAt) >= ttl
}

// Refresh re-derives the user and permissions from the profile endpoint. A
// 401 ends the session.
func (c *Client) Refresh(ctx context.Context) (UserRecord, error) {
	snap := c.machine.Snapshot()
	if !snap.IsAuthenticated {
		return UserRecord{}, ErrNotAuthenticated
	}

	ctx, span := c.startSpan(ctx, "refresh")
	var err error
	defer func() { endSpan(span, err) }()

	var user session.UserRecord
	user, err = c.flows.Refresh(ctx, snap.Token)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			c.invalidate(ctx, snap.Generation, "unauthorized", err)
		}
		return UserRecord{}, err
	}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if c.machine.Generation() != snap.Generation {
		err = fmt.Errorf("%w: session changed during refresh", ErrNotAuthenticated)
		return UserRecord{}, err
	}
	if err = c.store.Save(ctx, snap.Token, user); err != nil {
		return UserRecord{}, err
	}
	if _, err = c.machine.DispatchIf(snap.Generation, state.UserRefreshed(user)); err != nil {
		return UserRecord{}, err
	}
	return user.Clone(), nil
}

// Reconcile re-reads the token store and ends the session if the credential
// was removed or replaced outside this client, or if its token has expired.
func (c *Client) Reconcile(ctx context.Context) error {
	snap := c.machine.Snapshot()
	if !snap.IsAuthenticated {
		return nil
	}

	cred, ok, err := c.store.Load(ctx)
	if err != nil {
		return err
	}

	switch {
	case !ok:
		c.invalidate(ctx, snap.Generation, "storage_cleared", ErrNotAuthenticated)
	case cred.Token != snap.Token:
		c.invalidate(ctx, snap.Generation, "storage_replaced", ErrNotAuthenticated)
	case c.inspector.Expired(cred.Token):
		c.invalidate(ctx, snap.Generation, "token_expired", ErrNotAuthenticated)
	}
	return nil
}

// invalidate clears the store and ends the session if gen is still current.
func (c *Client) invalidate(ctx context.Context, gen uint64, reason string, cause error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if c.machine.Generation() != gen {
		return
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("clearing credential on invalidation failed", zap.Error(err))
	}
	snap, err := c.machine.DispatchIf(gen, state.SessionInvalidated(cause))
	if err != nil {
		return
	}

	c.metrics.incInvalidated(reason)
	c.logger.Info("session invalidated", zap.String("reason", reason), zap.Uint64("generation", snap.Generation))
	c.emitAudit(ctx, internalaudit.EventSessionInvalidated, true, "", "", cause, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

// Transport wraps base so every request carries the session's bearer token.
// A 401 response ends the session.
func (c *Client) Transport(base http.RoundTripper) http.RoundTripper {
	return &middleware.BearerTransport{
		Base: base,
		Token: func(*http.Request) string {
			return c.machine.Snapshot().Token
		},
		OnUnauthorized: func(req *http.Request, token string) {
			snap := c.machine.Snapshot()
			if snap.Token != token {
				return
			}
			c.invalidate(req.Context(), snap.Generation, "unauthorized", ErrNotAuthenticated)
		},
	}
}

// Close stops the audit dispatcher after draining queued events.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.audit.Close()
		_ = c.logger.Sync()
	})
}

func (c *Client) onSelfHeal(ctx context.Context, reason error) {
	c.metrics.incSelfHeal()
	c.logger.Info("token store self-healed", zap.Error(reason))
	c.emitAudit(ctx, internalaudit.EventStorageSelfHeal, true, "", "", reason, nil)
}

func (c *Client) onGuardStale(ctx context.Context) {
	c.metrics.incGuardStale()
	c.logger.Warn("session state never caught up with token store, forcing unauthenticated")
	c.invalidate(ctx, c.machine.Generation(), "guard_timeout", ErrTransientInconsistency)
}

func (c *Client) onGuardDecision(v View, _ error) {
	c.metrics.observeGuard(v.String())
}

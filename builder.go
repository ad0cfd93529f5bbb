package goAuthClient

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthClient/guard"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/transport"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/state"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Builder assembles a Client. A Builder can be used once.
type Builder struct {
	config Config

	storage    session.Storage
	redis      redis.UniversalClient
	httpClient *http.Client

	logger         *zap.Logger
	auditSink      AuditSink
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	navigator      Navigator
	now            func() time.Time

	built bool
}

// New returns a Builder seeded with the member profile defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the token store backend. It takes precedence over WithRedis.
func (b *Builder) WithStorage(s session.Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis backs the token store with Redis under Config.Session.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client used for auth API calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink enables audit dispatch to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRegisterer enables Prometheus collectors registered with reg.
func (b *Builder) WithRegisterer(reg prometheus.Registerer) *Builder {
	b.registerer = reg
	return b
}

// WithTracerProvider enables spans around login, logout and refresh.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithNavigator sets the receiver of navigation intents.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithClock overrides time.Now, mostly for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires a Client. Init must be called
// before the Client accepts logins.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.auditSink != nil {
		cfg.Audit.Enabled = true
	}
	if b.registerer != nil {
		cfg.Metrics.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		id:      uuid.NewString(),
		config:  cfg,
		now:     now,
		table:   permission.Default(),
		metrics: NewMetrics(cfg.Metrics, b.registerer),
		tracer:  newTracer(b.tracerProvider),
	}
	c.logger = logger.With(
		zap.String("client_id", c.id),
		zap.String("profile", string(cfg.Profile)),
	)

	// -------- TOKEN STORE --------
	backend := b.storage
	if backend == nil && b.redis != nil {
		backend = session.NewRedisStorage(b.redis, cfg.Session.RedisPrefix, cfg.Session.RedisTTL)
	}
	if backend == nil {
		backend = session.NewMemoryStorage()
	}
	c.store = session.NewStore(backend, cfg.Profile.Keys(), session.WithSelfHealHook(c.onSelfHeal))

	// -------- TOKEN INSPECTION --------
	inspector, err := jwt.NewInspector(jwt.Config{
		Leeway:    cfg.Session.TokenLeeway,
		VerifyKey: cloneBytes(cfg.Session.TokenVerifyKey),
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	c.inspector = inspector

	// -------- TRANSPORT --------
	api, err := transport.New(transport.Config{
		BaseURL:       cfg.API.BaseURL,
		LoginPath:     cfg.API.LoginPath,
		LogoutPath:    cfg.API.LogoutPath,
		ProfilePath:   cfg.API.ProfilePath,
		IdentityField: cfg.Profile.IdentityField(),
		Timeout:       cfg.API.Timeout,
		UserAgent:     cfg.API.UserAgent,
	}, b.httpClient)
	if err != nil {
		return nil, err
	}
	c.api = api

	// -------- AUDIT --------
	sink := b.auditSink
	if cfg.Audit.Enabled && sink == nil {
		sink = internalaudit.NewZapSink(c.logger)
	}
	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(_ internalaudit.Event, reason internalaudit.DropReason) {
			c.metrics.incAuditDropped(string(reason))
		},
	}, sink)

	// -------- STATE + GUARD --------
	machineOpts := []state.Option{state.WithClock(now)}
	if b.navigator != nil {
		machineOpts = append(machineOpts, state.WithNavigator(b.navigator))
	}
	c.machine = state.New(machineOpts...)
	c.guard = guard.New(c.machine, c.store, guard.Config{
		InconsistencyTimeout: cfg.Guard.InconsistencyTimeout,
		OnStale:              c.onGuardStale,
		OnDecision:           c.onGuardDecision,
		Now:                  now,
	})

	if cfg.Login.RatePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Login.RatePerMinute)), cfg.Login.Burst)
	}

	c.flows = flows.New(c.flowDeps())

	b.built = true
	return c, nil
}

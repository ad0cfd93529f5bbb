package goAuthClient

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
)

// Profile selects which portal the client authenticates against.
type Profile string

const (
	// ProfileAdmin is the internal admin portal. Identity arrives under
	// "admin" and permissions follow the super-admin flag.
	ProfileAdmin Profile = "admin"
	// ProfileMember is the customer product. Identity arrives under "user" and
	// permissions follow the membership tier.
	ProfileMember Profile = "member"
)

// Keys returns the token store key layout of p.
func (p Profile) Keys() session.Keys {
	if p == ProfileAdmin {
		return session.AdminKeys
	}
	return session.MemberKeys
}

// IdentityField returns the login response field holding the user object.
func (p Profile) IdentityField() string {
	if p == ProfileAdmin {
		return "admin"
	}
	return "user"
}

// Config is the complete client configuration. Start from DefaultConfig and
// override what the host needs.
type Config struct {
	Profile Profile
	API     APIConfig
	Session SessionConfig
	Login   LoginConfig
	Guard   GuardConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the auth endpoints. Paths are joined to BaseURL.
type APIConfig struct {
	BaseURL     string
	LoginPath   string
	LogoutPath  string
	ProfilePath string
	Timeout     time.Duration
	UserAgent   string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the persisted credential.
type SessionConfig struct {
	// PermissionTTL bounds how long derived permissions are trusted before
	// PermissionsStale reports true. Zero disables the check.
	PermissionTTL time.Duration
	// TokenLeeway delays the client-side expiry check of JWT access tokens.
	TokenLeeway time.Duration
	// TokenVerifyKey enables HS256 verification of access tokens when set.
	TokenVerifyKey []byte
	// RedisPrefix namespaces keys when the store is backed by Redis.
	RedisPrefix string
	// RedisTTL expires both Redis keys together. Zero keeps them.
	RedisTTL time.Duration
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig throttles local login attempts. RatePerMinute <= 0 disables it.
type LoginConfig struct {
	RatePerMinute int
	Burst         int
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig bounds the guard's transient inconsistency window.
type GuardConfig struct {
	InconsistencyTimeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls async audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the defaults for profile.
func DefaultConfig(profile Profile) Config {
	cfg := defaultConfig()
	cfg.Profile = profile
	if profile == ProfileAdmin {
		cfg.API.LoginPath = "/admin/auth/login"
		cfg.API.LogoutPath = "/admin/auth/logout"
		cfg.API.ProfilePath = "/admin/auth/me"
	}
	return cfg
}

func defaultConfig() Config {
	return Config{
		Profile: ProfileMember,
		API: APIConfig{
			BaseURL:     "http://localhost:8000/api/v1",
			LoginPath:   "/auth/login",
			LogoutPath:  "/auth/logout",
			ProfilePath: "/auth/me",
			Timeout:     10 * time.Second,
			UserAgent:   "goAuthClient",
		},
		Session: SessionConfig{
			PermissionTTL: 15 * time.Minute,
			TokenLeeway:   30 * time.Second,
			RedisPrefix:   "wps",
		},
		Login: LoginConfig{
			RatePerMinute: 10,
			Burst:         3,
		},
		Guard: GuardConfig{
			InconsistencyTimeout: 3 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "goauthclient",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.TokenVerifyKey = cloneBytes(cfg.Session.TokenVerifyKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	switch c.Profile {
	case ProfileAdmin, ProfileMember:
	default:
		return errors.New("Profile must be admin or member")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if strings.TrimSpace(c.API.LoginPath) == "" || strings.TrimSpace(c.API.LogoutPath) == "" {
		return errors.New("API LoginPath and LogoutPath are required")
	}
	if c.API.Timeout <= 0 || c.API.Timeout > 2*time.Minute {
		return errors.New("API Timeout must be in (0, 2m]")
	}

	if c.Session.PermissionTTL < 0 {
		return errors.New("Session PermissionTTL must be >= 0")
	}
	if c.Session.TokenLeeway < 0 || c.Session.TokenLeeway > 5*time.Minute {
		return errors.New("Session TokenLeeway must be in [0, 5m]")
	}
	if c.Session.RedisTTL < 0 {
		return errors.New("Session RedisTTL must be >= 0")
	}

	if c.Login.RatePerMinute > 0 && c.Login.Burst <= 0 {
		return errors.New("Login Burst must be > 0 when RatePerMinute is set")
	}

	if c.Guard.InconsistencyTimeout <= 0 || c.Guard.InconsistencyTimeout > time.Minute {
		return errors.New("Guard InconsistencyTimeout must be in (0, 1m]")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		return errors.New("Metrics Namespace is required")
	}
	return nil
}

// Package config loads wpsctl settings from WPSCTL_* environment variables and
// an optional env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/spf13/viper"
)

// DefaultEnvFile is read when present in the working directory.
const DefaultEnvFile = ".env"

// Settings is the complete wpsctl configuration.
type Settings struct {
	Client goAuthClient.Config

	// SessionFile holds the credential when Redis is not configured.
	SessionFile string
	// RedisAddr switches the token store to Redis when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel       string
	LogDevelopment bool

	// ServeAddr is the listen address of "wpsctl serve".
	ServeAddr string
}

// Load reads DefaultEnvFile if it exists, then the environment.
func Load() (*Settings, error) {
	return load(DefaultEnvFile, false)
}

// LoadWithPath reads the env file at path, which must exist, then the
// environment.
func LoadWithPath(path string) (*Settings, error) {
	return load(path, true)
}

func load(path string, required bool) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if required || !missing {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	s, err := bind(v)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	base := goAuthClient.DefaultConfig(goAuthClient.ProfileMember)

	v.SetDefault("WPSCTL_PROFILE", string(goAuthClient.ProfileMember))

	v.SetDefault("WPSCTL_API_BASE_URL", base.API.BaseURL)
	v.SetDefault("WPSCTL_API_TIMEOUT", base.API.Timeout.String())
	v.SetDefault("WPSCTL_API_USER_AGENT", "wpsctl")

	v.SetDefault("WPSCTL_SESSION_FILE", ".wpsctl-session.json")
	v.SetDefault("WPSCTL_PERMISSION_TTL", base.Session.PermissionTTL.String())
	v.SetDefault("WPSCTL_TOKEN_LEEWAY", base.Session.TokenLeeway.String())
	v.SetDefault("WPSCTL_TOKEN_VERIFY_KEY", "")

	v.SetDefault("WPSCTL_REDIS_ADDR", "")
	v.SetDefault("WPSCTL_REDIS_PASSWORD", "")
	v.SetDefault("WPSCTL_REDIS_DB", 0)
	v.SetDefault("WPSCTL_REDIS_PREFIX", base.Session.RedisPrefix)
	v.SetDefault("WPSCTL_REDIS_TTL", "0s")

	v.SetDefault("WPSCTL_LOGIN_RATE_PER_MINUTE", base.Login.RatePerMinute)
	v.SetDefault("WPSCTL_LOGIN_BURST", base.Login.Burst)
	v.SetDefault("WPSCTL_GUARD_TIMEOUT", base.Guard.InconsistencyTimeout.String())

	v.SetDefault("WPSCTL_AUDIT_ENABLED", false)
	v.SetDefault("WPSCTL_AUDIT_BUFFER_SIZE", base.Audit.BufferSize)
	v.SetDefault("WPSCTL_METRICS_ENABLED", false)
	v.SetDefault("WPSCTL_METRICS_NAMESPACE", base.Metrics.Namespace)

	v.SetDefault("WPSCTL_LOG_LEVEL", "info")
	v.SetDefault("WPSCTL_LOG_DEVELOPMENT", false)
	v.SetDefault("WPSCTL_SERVE_ADDR", "127.0.0.1:8089")
}

func bind(v *viper.Viper) (*Settings, error) {
	profile := goAuthClient.Profile(strings.ToLower(v.GetString("WPSCTL_PROFILE")))
	if profile != goAuthClient.ProfileAdmin && profile != goAuthClient.ProfileMember {
		return nil, fmt.Errorf("WPSCTL_PROFILE must be admin or member, got %q", profile)
	}

	cfg := goAuthClient.DefaultConfig(profile)

	cfg.API.BaseURL = v.GetString("WPSCTL_API_BASE_URL")
	cfg.API.Timeout = v.GetDuration("WPSCTL_API_TIMEOUT")
	cfg.API.UserAgent = v.GetString("WPSCTL_API_USER_AGENT")
	if p := v.GetString("WPSCTL_API_LOGIN_PATH"); p != "" {
		cfg.API.LoginPath = p
	}
	if p := v.GetString("WPSCTL_API_LOGOUT_PATH"); p != "" {
		cfg.API.LogoutPath = p
	}
	if p := v.GetString("WPSCTL_API_PROFILE_PATH"); p != "" {
		cfg.API.ProfilePath = p
	}

	cfg.Session.PermissionTTL = v.GetDuration("WPSCTL_PERMISSION_TTL")
	cfg.Session.TokenLeeway = v.GetDuration("WPSCTL_TOKEN_LEEWAY")
	if key := v.GetString("WPSCTL_TOKEN_VERIFY_KEY"); key != "" {
		cfg.Session.TokenVerifyKey = []byte(key)
	}
	cfg.Session.RedisPrefix = v.GetString("WPSCTL_REDIS_PREFIX")
	cfg.Session.RedisTTL = v.GetDuration("WPSCTL_REDIS_TTL")

	cfg.Login.RatePerMinute = v.GetInt("WPSCTL_LOGIN_RATE_PER_MINUTE")
	cfg.Login.Burst = v.GetInt("WPSCTL_LOGIN_BURST")
	cfg.Guard.InconsistencyTimeout = v.GetDuration("WPSCTL_GUARD_TIMEOUT")

	cfg.Audit.Enabled = v.GetBool("WPSCTL_AUDIT_ENABLED")
	cfg.Audit.BufferSize = v.GetInt("WPSCTL_AUDIT_BUFFER_SIZE")
	cfg.Metrics.Enabled = v.GetBool("WPSCTL_METRICS_ENABLED")
	cfg.Metrics.Namespace = v.GetString("WPSCTL_METRICS_NAMESPACE")

	return &Settings{
		Client:         cfg,
		SessionFile:    v.GetString("WPSCTL_SESSION_FILE"),
		RedisAddr:      v.GetString("WPSCTL_REDIS_ADDR"),
		RedisPassword:  v.GetString("WPSCTL_REDIS_PASSWORD"),
		RedisDB:        v.GetInt("WPSCTL_REDIS_DB"),
		LogLevel:       v.GetString("WPSCTL_LOG_LEVEL"),
		LogDevelopment: v.GetBool("WPSCTL_LOG_DEVELOPMENT"),
		ServeAddr:      v.GetString("WPSCTL_SERVE_ADDR"),
	}, nil
}

// Validate checks the client configuration and the wpsctl specific fields.
func (s *Settings) Validate() error {
	if err := s.Client.Validate(); err != nil {
		return err
	}
	if s.RedisAddr == "" && strings.TrimSpace(s.SessionFile) == "" {
		return errors.New("WPSCTL_SESSION_FILE is required when WPSCTL_REDIS_ADDR is empty")
	}
	if s.RedisDB < 0 {
		return errors.New("WPSCTL_REDIS_DB must be >= 0")
	}
	if strings.TrimSpace(s.ServeAddr) == "" {
		return errors.New("WPSCTL_SERVE_ADDR is required")
	}
	return nil
}

// UsesRedis reports whether the token store should live in Redis.
func (s *Settings) UsesRedis() bool {
	return s.RedisAddr != ""
}

// RedisTimeout bounds Redis dial and IO.
func (s *Settings) RedisTimeout() time.Duration {
	return s.Client.API.Timeout
}

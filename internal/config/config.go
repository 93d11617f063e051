package config

import (
	"context"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/sethvargo/go-envconfig"

	"easyproject-mcp/server/internal/cache"
)

type Config struct {
	Server      ServerConfig
	EasyProject EasyProjectConfig
	HTTP        HTTPConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
	Tools       ToolsConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Name          string `env:"EASYPROJECT_SERVER_NAME, default=EasyProject MCP Server"`
	Version       string `env:"EASYPROJECT_SERVER_VERSION, default=1.0.0"`
	Transport     string `env:"EASYPROJECT_TRANSPORT, default=stdio"`
	WebSocketPort int    `env:"EASYPROJECT_WEBSOCKET_PORT"`
}

// EasyProjectConfig describes the upstream REST API.
type EasyProjectConfig struct {
	BaseURL string `env:"EASYPROJECT_BASE_URL, required"`

	// AuthType is one of "api_key", "oauth2" or "session". Only api_key is
	// implemented by the executor.
	AuthType     string `env:"EASYPROJECT_AUTH_TYPE, default=api_key"`
	APIKey       string `env:"EASYPROJECT_API_KEY"`
	APIKeyHeader string `env:"EASYPROJECT_API_KEY_HEADER, default=X-Redmine-API-Key"`

	OAuth2ClientID     string `env:"EASYPROJECT_OAUTH2_CLIENT_ID"`
	OAuth2ClientSecret string `env:"EASYPROJECT_OAUTH2_CLIENT_SECRET"`
}

type HTTPConfig struct {
	TimeoutSeconds int `env:"EASYPROJECT_HTTP_TIMEOUT_SECS, default=30"`

	// MaxRetries is accepted for compatibility with existing deployments.
	// Upstream failures are never retried.
	MaxRetries int    `env:"EASYPROJECT_HTTP_MAX_RETRIES, default=3"`
	UserAgent  string `env:"EASYPROJECT_HTTP_USER_AGENT, default=EasyProject-MCP-Server/1.0.0"`
}

type RateLimitConfig struct {
	Enabled           bool `env:"EASYPROJECT_RATE_LIMIT_ENABLED, default=true"`
	RequestsPerMinute int  `env:"EASYPROJECT_RATE_LIMIT_PER_MINUTE, default=60"`
	Burst             int  `env:"EASYPROJECT_RATE_LIMIT_BURST, default=10"`
}

// CacheConfig specifies the response cache. Entity TTLs override TTLSeconds
// for reads of that entity type.
type CacheConfig struct {
	Enabled    bool `env:"EASYPROJECT_CACHE_ENABLED, default=true"`
	TTLSeconds int  `env:"EASYPROJECT_CACHE_TTL_SECS, default=300"`
	MaxEntries int  `env:"EASYPROJECT_CACHE_MAX_ENTRIES, default=1000"`

	ProjectTTLSeconds   int `env:"EASYPROJECT_CACHE_PROJECT_TTL_SECS, default=600"`
	UserTTLSeconds      int `env:"EASYPROJECT_CACHE_USER_TTL_SECS, default=1800"`
	IssueTTLSeconds     int `env:"EASYPROJECT_CACHE_ISSUE_TTL_SECS, default=60"`
	TimeEntryTTLSeconds int `env:"EASYPROJECT_CACHE_TIME_ENTRY_TTL_SECS, default=30"`
}

type ToolsConfig struct {
	Projects    bool `env:"EASYPROJECT_TOOLS_PROJECTS_ENABLED, default=true"`
	Issues      bool `env:"EASYPROJECT_TOOLS_ISSUES_ENABLED, default=true"`
	Users       bool `env:"EASYPROJECT_TOOLS_USERS_ENABLED, default=true"`
	TimeEntries bool `env:"EASYPROJECT_TOOLS_TIME_ENTRIES_ENABLED, default=true"`
	Milestones  bool `env:"EASYPROJECT_TOOLS_MILESTONES_ENABLED, default=true"`
	Reports     bool `env:"EASYPROJECT_TOOLS_REPORTS_ENABLED, default=true"`

	DefaultLimit       int `env:"EASYPROJECT_TOOLS_DEFAULT_LIMIT, default=25"`
	CallTimeoutSeconds int `env:"EASYPROJECT_TOOL_TIMEOUT_SECS, default=60"`
}

type LoggingConfig struct {
	Level  string `env:"EASYPROJECT_LOG_LEVEL, default=info"`
	Format string `env:"EASYPROJECT_LOG_FORMAT, default=json"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return errors.Wrap(err, "invalid server configuration")
	}
	if err := c.EasyProject.Validate(); err != nil {
		return errors.Wrap(err, "invalid easyproject configuration")
	}
	if err := c.HTTP.Validate(); err != nil {
		return errors.Wrap(err, "invalid http configuration")
	}
	if err := c.RateLimit.Validate(); err != nil {
		return errors.Wrap(err, "invalid rate limit configuration")
	}
	if err := c.Cache.Validate(); err != nil {
		return errors.Wrap(err, "invalid cache configuration")
	}
	if err := c.Tools.Validate(); err != nil {
		return errors.Wrap(err, "invalid tools configuration")
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	switch c.Transport {
	case "stdio":
	case "websocket":
		if c.WebSocketPort <= 0 {
			return errors.New("EASYPROJECT_WEBSOCKET_PORT required when EASYPROJECT_TRANSPORT=websocket")
		}
	default:
		return errors.Errorf("unknown transport %q (expected stdio or websocket)", c.Transport)
	}
	return nil
}

func (c *EasyProjectConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "EASYPROJECT_BASE_URL is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("EASYPROJECT_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}

	switch c.AuthType {
	case "api_key":
		if c.APIKey == "" {
			return errors.New("EASYPROJECT_API_KEY required when EASYPROJECT_AUTH_TYPE=api_key")
		}
		if c.APIKeyHeader == "" {
			return errors.New("EASYPROJECT_API_KEY_HEADER must not be empty")
		}
	case "oauth2":
		if c.OAuth2ClientID == "" || c.OAuth2ClientSecret == "" {
			return errors.New("EASYPROJECT_OAUTH2_CLIENT_ID and EASYPROJECT_OAUTH2_CLIENT_SECRET required when EASYPROJECT_AUTH_TYPE=oauth2")
		}
		return errors.New("oauth2 authentication is not supported yet, use api_key")
	case "session":
		return errors.New("session authentication is not supported, use api_key")
	default:
		return errors.Errorf("unknown auth type %q", c.AuthType)
	}
	return nil
}

func (c *HTTPConfig) Validate() error {
	if c.TimeoutSeconds <= 0 {
		return errors.New("EASYPROJECT_HTTP_TIMEOUT_SECS must be greater than zero")
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return errors.Errorf("EASYPROJECT_HTTP_MAX_RETRIES must be between 0 and 10, got %d", c.MaxRetries)
	}
	return nil
}

// Timeout returns the per-request timeout.
func (c *HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerMinute < 1 {
		return errors.Errorf("EASYPROJECT_RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.RequestsPerMinute)
	}
	if c.Burst < 1 {
		return errors.Errorf("EASYPROJECT_RATE_LIMIT_BURST must be at least 1, got %d", c.Burst)
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TTLSeconds <= 0 {
		return errors.New("EASYPROJECT_CACHE_TTL_SECS must be greater than zero")
	}
	if c.MaxEntries <= 0 {
		return errors.New("EASYPROJECT_CACHE_MAX_ENTRIES must be greater than zero")
	}
	return nil
}

// TTL returns the default time-to-live.
func (c *CacheConfig) TTL() time.Duration {
	return seconds(c.TTLSeconds)
}

// TierTTLs builds the per-tier TTL table. Tiers with a non-positive override
// are left out so the cache falls back to the default TTL.
func (c *CacheConfig) TierTTLs() map[cache.Tier]time.Duration {
	overrides := map[cache.Tier]int{
		cache.TierProject:   c.ProjectTTLSeconds,
		cache.TierUser:      c.UserTTLSeconds,
		cache.TierIssue:     c.IssueTTLSeconds,
		cache.TierTimeEntry: c.TimeEntryTTLSeconds,
	}

	ttls := make(map[cache.Tier]time.Duration, len(overrides)+1)
	ttls[cache.TierDefault] = c.TTL()
	for tier, secs := range overrides {
		if secs > 0 {
			ttls[tier] = seconds(secs)
		}
	}
	return ttls
}

func (c *ToolsConfig) Validate() error {
	if c.DefaultLimit < 1 || c.DefaultLimit > 100 {
		return errors.Errorf("EASYPROJECT_TOOLS_DEFAULT_LIMIT must be between 1 and 100, got %d", c.DefaultLimit)
	}
	if c.CallTimeoutSeconds <= 0 {
		return errors.New("EASYPROJECT_TOOL_TIMEOUT_SECS must be greater than zero")
	}
	return nil
}

// CallTimeout bounds a single tool execution.
func (c *ToolsConfig) CallTimeout() time.Duration {
	return seconds(c.CallTimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

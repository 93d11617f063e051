package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyproject-mcp/server/internal/cache"
)

func baseEnv() map[string]string {
	return map[string]string{
		"EASYPROJECT_BASE_URL": "https://example.easyproject.com",
		"EASYPROJECT_API_KEY":  "secret",
	}
}

func loadMap(t *testing.T, env map[string]string) (Config, error) {
	t.Helper()
	return load(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, baseEnv())
	require.NoError(t, err)

	assert.Equal(t, "EasyProject MCP Server", cfg.Server.Name)
	assert.Equal(t, "1.0.0", cfg.Server.Version)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "api_key", cfg.EasyProject.AuthType)
	assert.Equal(t, "X-Redmine-API-Key", cfg.EasyProject.APIKeyHeader)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout())
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 300*time.Second, cfg.Cache.TTL())
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 25, cfg.Tools.DefaultLimit)
	assert.True(t, cfg.Tools.Projects)
	assert.True(t, cfg.Tools.Reports)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromOSEnvironment(t *testing.T) {
	t.Setenv("EASYPROJECT_BASE_URL", "http://localhost:3000")
	t.Setenv("EASYPROJECT_API_KEY", "abc")
	t.Setenv("EASYPROJECT_TOOLS_REPORTS_ENABLED", "false")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.EasyProject.BaseURL)
	assert.False(t, cfg.Tools.Reports)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	env := baseEnv()
	delete(env, "EASYPROJECT_BASE_URL")

	_, err := loadMap(t, env)
	assert.Error(t, err)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "relative base url",
			env:     map[string]string{"EASYPROJECT_BASE_URL": "example.com/api"},
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "missing api key",
			env:     map[string]string{"EASYPROJECT_API_KEY": ""},
			wantErr: "EASYPROJECT_API_KEY required",
		},
		{
			name: "oauth2 without secret",
			env: map[string]string{
				"EASYPROJECT_AUTH_TYPE":        "oauth2",
				"EASYPROJECT_OAUTH2_CLIENT_ID": "id",
			},
			wantErr: "EASYPROJECT_OAUTH2_CLIENT_SECRET required",
		},
		{
			name: "oauth2 with credentials is still unsupported",
			env: map[string]string{
				"EASYPROJECT_AUTH_TYPE":            "oauth2",
				"EASYPROJECT_OAUTH2_CLIENT_ID":     "id",
				"EASYPROJECT_OAUTH2_CLIENT_SECRET": "secret",
			},
			wantErr: "oauth2 authentication is not supported",
		},
		{
			name:    "session auth",
			env:     map[string]string{"EASYPROJECT_AUTH_TYPE": "session"},
			wantErr: "session authentication is not supported",
		},
		{
			name:    "zero timeout",
			env:     map[string]string{"EASYPROJECT_HTTP_TIMEOUT_SECS": "0"},
			wantErr: "EASYPROJECT_HTTP_TIMEOUT_SECS",
		},
		{
			name:    "too many retries",
			env:     map[string]string{"EASYPROJECT_HTTP_MAX_RETRIES": "11"},
			wantErr: "EASYPROJECT_HTTP_MAX_RETRIES",
		},
		{
			name:    "zero burst",
			env:     map[string]string{"EASYPROJECT_RATE_LIMIT_BURST": "0"},
			wantErr: "EASYPROJECT_RATE_LIMIT_BURST",
		},
		{
			name:    "zero rate",
			env:     map[string]string{"EASYPROJECT_RATE_LIMIT_PER_MINUTE": "0"},
			wantErr: "EASYPROJECT_RATE_LIMIT_PER_MINUTE",
		},
		{
			name:    "websocket without port",
			env:     map[string]string{"EASYPROJECT_TRANSPORT": "websocket"},
			wantErr: "EASYPROJECT_WEBSOCKET_PORT required",
		},
		{
			name:    "unknown transport",
			env:     map[string]string{"EASYPROJECT_TRANSPORT": "carrier-pigeon"},
			wantErr: "unknown transport",
		},
		{
			name:    "default limit too large",
			env:     map[string]string{"EASYPROJECT_TOOLS_DEFAULT_LIMIT": "500"},
			wantErr: "EASYPROJECT_TOOLS_DEFAULT_LIMIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range tt.env {
				if v == "" {
					delete(env, k)
					continue
				}
				env[k] = v
			}

			_, err := loadMap(t, env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_DisabledSectionsSkipValidation(t *testing.T) {
	env := baseEnv()
	env["EASYPROJECT_RATE_LIMIT_ENABLED"] = "false"
	env["EASYPROJECT_RATE_LIMIT_BURST"] = "0"
	env["EASYPROJECT_CACHE_ENABLED"] = "false"
	env["EASYPROJECT_CACHE_TTL_SECS"] = "0"

	cfg, err := loadMap(t, env)
	require.NoError(t, err)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Cache.Enabled)
}

func TestCacheConfig_TierTTLs(t *testing.T) {
	c := CacheConfig{
		TTLSeconds:          300,
		ProjectTTLSeconds:   600,
		UserTTLSeconds:      1800,
		IssueTTLSeconds:     60,
		TimeEntryTTLSeconds: 0,
	}

	ttls := c.TierTTLs()

	assert.Equal(t, 300*time.Second, ttls[cache.TierDefault])
	assert.Equal(t, 600*time.Second, ttls[cache.TierProject])
	assert.Equal(t, 30*time.Minute, ttls[cache.TierUser])
	assert.Equal(t, time.Minute, ttls[cache.TierIssue])

	_, ok := ttls[cache.TierTimeEntry]
	assert.False(t, ok, "non-positive override falls back to the default")
}

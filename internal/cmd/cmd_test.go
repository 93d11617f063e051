package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyproject-mcp/server/internal/config"
	"easyproject-mcp/server/internal/mcp"
)

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EASYPROJECT_BASE_URL", "https://example.easyproject.com")
	t.Setenv("EASYPROJECT_API_KEY", "0123456789abcdef")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute()
	return out.String(), err
}

func TestToolsCommand(t *testing.T) {
	setEnv(t)
	t.Setenv("EASYPROJECT_TOOLS_REPORTS_ENABLED", "false")

	out, err := execute(t, "tools")
	require.NoError(t, err)

	var tools []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tools))
	require.NotEmpty(t, tools)
	assert.Equal(t, "list_projects", tools[0].Name)
	for _, tool := range tools {
		assert.NotEqual(t, "generate_project_report", tool.Name)
		assert.NotEqual(t, "get_dashboard_data", tool.Name)
	}
}

func TestCheckConfigCommand(t *testing.T) {
	setEnv(t)
	t.Setenv("EASYPROJECT_CACHE_ENABLED", "false")

	out, err := execute(t, "check-config")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration OK")
	assert.Contains(t, out, "************cdef")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "cache:      off")
}

func TestCheckConfigCommand_Invalid(t *testing.T) {
	t.Setenv("EASYPROJECT_BASE_URL", "not a url")
	t.Setenv("EASYPROJECT_API_KEY", "x")

	_, err := execute(t, "check-config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is invalid")
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "easyproject-mcp 1.2.3 (commit abc123, built 2026-01-01)\n", out)
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"secret-key", "******-key"},
	}
	for _, tt := range tests {
		if got := mask(tt.in); got != tt.want {
			t.Errorf("mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnabledCategories(t *testing.T) {
	assert.Equal(t, []string{"none"}, enabledCategories(config.ToolsConfig{}))
	assert.Equal(t, "issues, reports",
		strings.Join(enabledCategories(config.ToolsConfig{Issues: true, Reports: true}), ", "))
}

func TestOpenTransport(t *testing.T) {
	tr, err := openTransport(config.ServerConfig{Transport: "stdio"}, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	_, err = openTransport(config.ServerConfig{Transport: "websocket", WebSocketPort: 8080}, nil, nil)
	assert.ErrorIs(t, err, mcp.ErrTransportNotImplemented)
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"easyproject-mcp/server/internal/config"
)

var checkPing bool

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the environment configuration",
	Long: `Load and validate the EASYPROJECT_* configuration and print a summary
with secrets masked. With --ping the API key is verified by fetching the
current user.`,
	RunE: runCheckConfig,
}

func init() {
	checkConfigCmd.Flags().BoolVar(&checkPing, "ping", false, "verify credentials against the EasyProject API")
	rootCmd.AddCommand(checkConfigCmd)
}

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "configuration is invalid")
	}

	out := cmd.OutOrStdout()
	printConfig(out, cfg)

	if !checkPing {
		return nil
	}
	api, err := newAPIClient(cfg, zerolog.Nop(), nil)
	if err != nil {
		return err
	}
	user, err := api.GetCurrentUser(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "ping EasyProject")
	}
	fmt.Fprintf(out, "\nAuthenticated as %s (#%d)\n", user.FullName(), user.ID)
	return nil
}

func printConfig(w io.Writer, cfg config.Config) {
	fmt.Fprintln(w, "Configuration OK")
	fmt.Fprintf(w, "  server:     %s %s (%s)\n", cfg.Server.Name, cfg.Server.Version, cfg.Server.Transport)
	fmt.Fprintf(w, "  base url:   %s\n", cfg.EasyProject.BaseURL)
	fmt.Fprintf(w, "  auth:       %s, %s: %s\n", cfg.EasyProject.AuthType, cfg.EasyProject.APIKeyHeader, mask(cfg.EasyProject.APIKey))
	fmt.Fprintf(w, "  http:       timeout %s\n", cfg.HTTP.Timeout())
	if cfg.RateLimit.Enabled {
		fmt.Fprintf(w, "  rate limit: %d/min, burst %d\n", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	} else {
		fmt.Fprintln(w, "  rate limit: off")
	}
	if cfg.Cache.Enabled {
		fmt.Fprintf(w, "  cache:      ttl %s, max %d entries\n", cfg.Cache.TTL(), cfg.Cache.MaxEntries)
	} else {
		fmt.Fprintln(w, "  cache:      off")
	}
	fmt.Fprintf(w, "  tools:      %s\n", strings.Join(enabledCategories(cfg.Tools), ", "))
	fmt.Fprintf(w, "  logging:    %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
}

func enabledCategories(t config.ToolsConfig) []string {
	categories := []struct {
		name string
		on   bool
	}{
		{"projects", t.Projects},
		{"issues", t.Issues},
		{"users", t.Users},
		{"time_entries", t.TimeEntries},
		{"milestones", t.Milestones},
		{"reports", t.Reports},
	}
	var out []string
	for _, c := range categories {
		if c.on {
			out = append(out, c.name)
		}
	}
	if len(out) == 0 {
		return []string{"none"}
	}
	return out
}

// mask keeps the last four characters of a secret.
func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

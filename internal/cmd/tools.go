package cmd

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"easyproject-mcp/server/internal/config"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the enabled tool catalog as JSON",
	Long: `Print the tools the server would advertise in tools/list, in the same
order, as a JSON array. No request is sent to EasyProject.`,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	api, err := newAPIClient(cfg, zerolog.Nop(), nil)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg, api, nil)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(registry.Tools())
}

// Package cmd holds the command line of the EasyProject MCP server.
package cmd

import (
	"github.com/spf13/cobra"
)

var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by main with the values set at link time.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "easyproject-mcp",
	Short: "MCP server for the EasyProject REST API",
	Long: `easyproject-mcp speaks the Model Context Protocol over stdio and exposes
EasyProject projects, issues, users, time entries and milestones as tools.

Configuration is read from EASYPROJECT_* environment variables. Without a
subcommand the server is started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

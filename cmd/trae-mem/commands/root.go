// Package commands implements the trae-mem CLI with cobra.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/HendryAvila/trae-mem/internal/server"
)

// NewRootCmd builds the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	server.Version = version

	rootCmd := &cobra.Command{
		Use:   "trae-mem",
		Short: "Durable memory for your coding assistant",
		Long: `trae-mem records what happens in assistant sessions into a local SQLite
database, summarizes each session when it ends, and injects relevant past
context into new ones.

Examples:
  trae-mem install
  trae-mem search --query 预加载
  trae-mem inject --query "preload strategy" --project /path/to/repo
  echo '{"session_id":"abc","cwd":"/repo"}' | trae-mem hook --event SessionStart`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newMCPCmd(),
		newStartSessionCmd(),
		newLogCmd(),
		newEndSessionCmd(),
		newSearchCmd(),
		newTimelineCmd(),
		newGetObservationsCmd(),
		newInjectCmd(),
		newHookCmd(),
		newInstallCmd(),
		newUpdateCmd(),
		newKeyCmd(),
		newVersionCmd(version),
	)

	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides TRAE_MEM_DB)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

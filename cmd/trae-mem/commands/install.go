package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/trae-mem/internal/config"
	"github.com/HendryAvila/trae-mem/internal/installer"
)

func newInstallCmd() *cobra.Command {
	var opts installer.Options
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register trae-mem as an MCP server in the Trae IDE",
		Long: `Add a "trae-mem" entry to the Trae user mcp.json, keeping every other server
and setting. An existing file is backed up to mcp.json.bak first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.DataDir == "" {
				opts.DataDir = defaultDataDir()
			}
			res, err := installer.Install(opts)
			if errors.Is(err, installer.ErrNoConfigDir) {
				return fmt.Errorf("%w; run the Trae IDE once first", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.DryRun {
				fmt.Fprintf(out, "# %s (dry run, not written)\n", res.ConfigPath)
				_, err := out.Write(res.Content)
				return err
			}
			if res.Replaced {
				fmt.Fprintln(out, "existing mcp.json was not valid JSON; started a new one")
			}
			if res.BackupPath != "" {
				fmt.Fprintf(out, "backup:  %s\n", res.BackupPath)
			}
			fmt.Fprintf(out, "written: %s\n", res.ConfigPath)
			fmt.Fprintln(out, "Restart the Trae IDE, then check that trae_mem_search is listed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the resulting mcp.json without writing it")
	cmd.Flags().StringVar(&opts.ConfigPath, "mcp-config", "", "mcp.json path (default: the Trae user directory)")
	cmd.Flags().StringVar(&opts.Command, "command", "", "executable to register (default: this binary)")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory exported as TRAE_MEM_HOME (default: ~/.trae-mem)")
	return cmd
}

func defaultDataDir() string {
	if home := os.Getenv(config.EnvHome); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, config.DirName)
}

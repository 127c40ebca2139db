package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/trae-mem/internal/server"
	"github.com/HendryAvila/trae-mem/internal/updater"
)

func newUpdateCmd() *cobra.Command {
	var checkOnly bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update trae-mem to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			u := updater.New(newLogger(cmd))

			res := u.Check(cmd.Context(), server.Version)
			if !res.UpdateAvailable {
				fmt.Fprintf(out, "Already at the latest version (%s)\n", server.Version)
				return nil
			}
			fmt.Fprintf(out, "New version available: %s -> %s\n%s\n", res.CurrentVersion, res.LatestVersion, res.ReleaseURL)
			if checkOnly {
				return nil
			}

			version, err := u.SelfUpdate(cmd.Context(), server.Version)
			if errors.Is(err, updater.ErrUpToDate) {
				fmt.Fprintln(out, "Already at the latest version")
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w\ndownload manually from %s", err, res.ReleaseURL)
			}
			fmt.Fprintf(out, "Updated to %s. Restart the IDE to load it.\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update exists")
	return cmd
}

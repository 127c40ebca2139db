package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/trae-mem/internal/app"
	"github.com/HendryAvila/trae-mem/internal/lifecycle"
)

func newHookCmd() *cobra.Command {
	var event string
	var echo bool
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Record an IDE lifecycle hook event read from stdin",
		Long: `Record a lifecycle hook event. The JSON payload is read from stdin; an empty
or malformed payload is treated as {} so the host is never blocked.

Events: ` + strings.Join(lifecycle.Events(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(lifecycle.Events(), event) {
				return fmt.Errorf("%w: %q (want one of %s)", lifecycle.ErrUnknownEvent, event, strings.Join(lifecycle.Events(), ", "))
			}
			payload, err := readPiped(cmd)
			if err != nil {
				payload = ""
			}
			return withApp(cmd, func(a *app.App) error {
				res, err := a.Service.HandleHookEvent(cmd.Context(), event, []byte(payload))
				if err != nil {
					return err
				}
				a.Logger.Debug("hook recorded", "event", res.Event, "session", res.SessionID, "observation", res.ObservationID)
				if echo {
					return printJSON(cmd.OutOrStdout(), res)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "hook event name")
	cmd.Flags().BoolVar(&echo, "json", false, "print what the event recorded")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

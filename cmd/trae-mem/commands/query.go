package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/trae-mem/internal/app"
	"github.com/HendryAvila/trae-mem/internal/inject"
	"github.com/HendryAvila/trae-mem/internal/memory"
)

func newSearchCmd() *cobra.Command {
	var query string
	var limit int
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Full-text search over stored observations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				hits, err := a.Store.Search(query, limit)
				if err != nil {
					return err
				}
				if hits == nil {
					hits = []memory.SearchHit{}
				}
				return printJSON(cmd.OutOrStdout(), hits)
			})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "search text")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newTimelineCmd() *cobra.Command {
	var id string
	var window int
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Observations of the same session around an anchor observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				items, err := a.Store.Timeline(id, window)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), orEmpty(items))
			})
		},
	}
	cmd.Flags().StringVar(&id, "observation-id", "", "anchor observation id")
	cmd.Flags().IntVar(&window, "window", 10, "window in minutes on each side")
	_ = cmd.MarkFlagRequired("observation-id")
	return cmd
}

func newGetObservationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-observations <id>...",
		Short: "Fetch full observations by id, in chronological order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				items, err := a.Store.GetObservations(args)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), orEmpty(items))
			})
		},
	}
}

func newInjectCmd() *cobra.Command {
	var query, project string
	var limit int
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Print the context block for a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				text, err := a.Injector.Build(query, limit, project)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "search text for relevant observations")
	cmd.Flags().IntVar(&limit, "limit", inject.DefaultLimit, "maximum observations")
	cmd.Flags().StringVar(&project, "project", "", "restrict recent sessions to this project")
	return cmd
}

func orEmpty(items []memory.Observation) []memory.Observation {
	if items == nil {
		return []memory.Observation{}
	}
	return items
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/trae-mem/internal/app"
	"github.com/HendryAvila/trae-mem/internal/lifecycle"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and print where data lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, a.Store.Path())
				fmt.Fprintf(out, "session_map: %s\n", a.Sessions.Path())
				fmt.Fprintf(out, "tokenizer:   %s\n", a.Store.Tokenizer())
				fmt.Fprintf(out, "summarizer:  %s\n", a.Summarizer.Strategy())
				if a.Config.ConfigFile != "" {
					fmt.Fprintf(out, "config:      %s\n", a.Config.ConfigFile)
				}
				return nil
			})
		},
	}
}

func newStartSessionCmd() *cobra.Command {
	var project, metaJSON string
	cmd := &cobra.Command{
		Use:   "start-session",
		Short: "Start a session and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			meta, err := parseObject("meta-json", metaJSON)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				id, err := a.Service.StartSession(project, meta)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project path the session belongs to")
	cmd.Flags().StringVar(&metaJSON, "meta-json", "", "session metadata as a JSON object")
	return cmd
}

func newLogCmd() *cobra.Command {
	var p lifecycle.LogParams
	var tagsJSON string
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record an observation and print its id",
		Long: `Record an observation in a session. The text comes from --text, or from
stdin when --text is omitted and stdin is piped. Empty text records nothing.

Text inside <private>...</private> is removed before storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !lifecycle.ValidKind(p.Kind) {
				return fmt.Errorf("%w: %q (want one of %s)", lifecycle.ErrInvalidKind, p.Kind, strings.Join(lifecycle.Kinds(), ", "))
			}
			tags, err := parseObject("tags-json", tagsJSON)
			if err != nil {
				return err
			}
			p.Tags = tags
			if !cmd.Flags().Changed("text") {
				if p.Text, err = readPiped(cmd); err != nil {
					return err
				}
			}
			p.Text = strings.TrimSpace(p.Text)
			if p.Text == "" {
				return nil
			}
			return withApp(cmd, func(a *app.App) error {
				id, err := a.Service.Log(p)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&p.Session, "session", "", "session id")
	cmd.Flags().StringVar(&p.Kind, "kind", "", "observation kind: "+strings.Join(lifecycle.Kinds(), ", "))
	cmd.Flags().StringVar(&p.ToolName, "tool-name", "", "tool that produced the observation")
	cmd.Flags().StringVar(&p.Text, "text", "", "observation text (default: stdin)")
	cmd.Flags().StringVar(&tagsJSON, "tags-json", "", "tags as a JSON object")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newEndSessionCmd() *cobra.Command {
	var session string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "end-session",
		Short: "End a session and store its brief and detailed summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				res, err := a.Service.EndSession(cmd.Context(), session)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.SessionID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summaries as JSON")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/HendryAvila/trae-mem/internal/config"
	"github.com/HendryAvila/trae-mem/internal/summarize"
)

// newKeyCmd groups the OS keyring operations for summarizer API keys.
func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage summarizer API keys in the OS keyring",
		Long: `Store provider API keys in the OS keyring (service "trae-mem"). A key in the
environment or the config file always wins over the keyring.`,
	}
	cmd.AddCommand(newKeySetCmd(), newKeyDeleteCmd())
	return cmd
}

func newKeySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <anthropic|openai>",
		Short:     "Store an API key (read without echo, or from stdin)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{summarize.ProviderAnthropic, summarize.ProviderOpenAI},
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := keyProvider(args[0])
			if err != nil {
				return err
			}
			key, err := readSecret(cmd, provider+" API key: ")
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("empty key")
			}
			if err := config.StoreKey(provider, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s key stored in keyring\n", provider)
			return nil
		},
	}
}

func newKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <anthropic|openai>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := keyProvider(args[0])
			if err != nil {
				return err
			}
			if err := config.DeleteKey(provider); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s key removed\n", provider)
			return nil
		},
	}
}

func keyProvider(arg string) (string, error) {
	p := strings.ToLower(arg)
	if p != summarize.ProviderAnthropic && p != summarize.ProviderOpenAI {
		return "", fmt.Errorf("unknown provider %q (want %s or %s)", arg, summarize.ProviderAnthropic, summarize.ProviderOpenAI)
	}
	return p, nil
}

// readSecret prompts without echo on a terminal and reads stdin otherwise.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading key: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

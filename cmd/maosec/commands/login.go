package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/credstore"
	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/secure"
)

// NewLoginCommand stores source credentials in the OS keyring so they do not
// have to live in shell profiles or .env files.
func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var (
		tokenStdin  bool
		clear       bool
		listSources bool
	)

	cmd := &cobra.Command{
		Use:   "login [source]",
		Short: "Store source credentials in the OS keyring",
		Long: `Store the API token for a credential source in the operating system
keyring (Keychain, Secret Service, or Credential Manager). Once stored, the
token no longer needs to be exported in the environment.

Examples:
  maosec login notion                  # Prompt for the token
  maosec login notion --token-stdin    # Read the token from stdin (CI)
  maosec login notion --clear          # Remove the stored token`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listSources || len(args) == 0 {
				fmt.Println("Sources that can store credentials in the keyring:")
				fmt.Println("  notion    Notion database source (integration token)")
				return nil
			}

			account := strings.ToLower(args[0])
			if account != "notion" {
				return maoserrors.UserError{
					Message:    fmt.Sprintf("Unknown source: %s", account),
					Suggestion: "Only 'notion' credentials can be stored at the moment",
				}
			}

			var keyring credstore.Keyring

			if clear {
				if err := keyring.Delete(account); err != nil {
					return err
				}
				cfg.Logger.Info("removed stored %s token", account)
				return nil
			}

			token, err := readToken(cfg, cmd.InOrStdin(), tokenStdin)
			if err != nil {
				return err
			}
			defer token.Destroy()

			value, err := token.String()
			if err != nil {
				return fmt.Errorf("failed to read token value: %w", err)
			}
			if err := keyring.Set(account, value); err != nil {
				return err
			}

			cfg.Logger.Info("stored %s token in the OS keyring", account)
			cfg.Logger.Info("run 'maosec doctor' to confirm the source answers")
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the token from standard input instead of prompting")
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the stored token")
	cmd.Flags().BoolVarP(&listSources, "list", "l", false, "List sources that support stored credentials")

	return cmd
}

// readToken obtains the token either from stdin or an interactive prompt and
// moves it into protected memory immediately.
func readToken(cfg *config.Config, in io.Reader, fromStdin bool) (*secure.Buffer, error) {
	if fromStdin {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read token from stdin: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return nil, maoserrors.UserError{
				Message:    "No token received on stdin",
				Suggestion: "Pipe the token in: echo \"$NOTION_TOKEN\" | maosec login notion --token-stdin",
			}
		}
		return secure.NewBufferFromString(token), nil
	}

	if cfg.NonInteractive {
		return nil, maoserrors.UserError{
			Message:    "Cannot prompt for a token in non-interactive mode",
			Suggestion: "Use --token-stdin to pipe the token in",
		}
	}

	fmt.Fprint(os.Stderr, "Paste the integration token: ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return nil, maoserrors.UserError{
			Message:    "Empty token",
			Suggestion: "Create an internal integration at https://www.notion.so/my-integrations and paste its token",
		}
	}

	if !strings.HasPrefix(token, "secret_") && !strings.HasPrefix(token, "ntn_") {
		cfg.Logger.Warn("token does not look like a Notion integration token, storing it anyway")
	}
	return secure.NewBufferFromString(token), nil
}

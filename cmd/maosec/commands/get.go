package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/hierarchy"
)

// NewGetCommand fetches a single secret value.
func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName string
		env       string
		tenant    string
		system    string
		version   string
	)

	cmd := &cobra.Command{
		Use:   "get <secret-id | name>",
		Short: "Fetch one secret value",
		Long: `Get prints a secret value to stdout for piping. Pass either a full
hierarchical ID (maos/prod/activ8ai/codex_portal/jwt_secret) or a base name
together with --env, --tenant and --system.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			id, err := resolveSecretID(cfg, args[0], env, tenant, system)
			if err != nil {
				return err
			}

			st, err := buildStore(cfg, storeName)
			if err != nil {
				return err
			}

			value, err := st.Get(context.Background(), id, version)
			if err != nil {
				return err
			}

			cfg.Logger.Debug("fetched %s (version %s) from %s", id, value.Version, st.Name())
			fmt.Fprintf(os.Stdout, "%s", value.Data)
			return nil
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "", "Store to read from (default from config)")
	cmd.Flags().StringVar(&env, "env", "", "Environment (when passing a base name)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant (when passing a base name)")
	cmd.Flags().StringVar(&system, "system", "", "System (when passing a base name)")
	cmd.Flags().StringVar(&version, "version", "", "Version to fetch (default latest)")

	return cmd
}

// resolveSecretID accepts a full hierarchical ID or builds one from a base
// name plus the env/tenant/system flags.
func resolveSecretID(cfg *config.Config, arg, env, tenant, system string) (string, error) {
	if hierarchy.IsHierarchical(arg, cfg.Prefix()) {
		return arg, nil
	}
	if env == "" || tenant == "" || system == "" {
		return "", maoserrors.UserError{
			Message:    fmt.Sprintf("%q is not a hierarchical secret ID", arg),
			Suggestion: "Pass a full ID like maos/prod/activ8ai/codex_portal/jwt_secret, or add --env, --tenant and --system",
		}
	}
	return hierarchy.New(cfg.Prefix(), env, tenant, system, arg).ID(), nil
}

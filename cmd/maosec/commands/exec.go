package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/execenv"
)

// NewExecCommand runs a child command with secrets injected as env vars.
func NewExecCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName  string
		host       string
		tenant     string
		system     string
		env        string
		keepParent bool
		printVars  bool
		workingDir string
		timeout    int
	)

	cmd := &cobra.Command{
		Use:   "exec [flags] -- command [args...]",
		Short: "Run a command with secrets injected as environment variables",
		Long: `Exec resolves the secrets for a surface or system and launches the given
command with them in its environment. Nothing is written to disk and the
variables vanish with the process.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			vars, err := resolveVars(cfg, storeName, host, tenant, system, env)
			if err != nil {
				return err
			}

			executor := execenv.New(cfg.Logger)
			return executor.Exec(context.Background(), execenv.Options{
				Command:     args,
				Environment: vars,
				KeepParent:  keepParent,
				PrintVars:   printVars,
				WorkingDir:  workingDir,
				Timeout:     timeout,
			})
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "", "Store to read from (default from config)")
	cmd.Flags().StringVar(&host, "host", "", "Surface host to resolve (e.g. activ8ai.app)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant (with --system, instead of --host)")
	cmd.Flags().StringVar(&system, "system", "", "System (with --tenant, instead of --host)")
	cmd.Flags().StringVar(&env, "env", "", "Environment to resolve (required)")
	cmd.Flags().BoolVar(&keepParent, "keep-parent", false, "Let pre-existing variables win over injected ones")
	cmd.Flags().BoolVar(&printVars, "print-vars", false, "Print injected variable names with masked values")
	cmd.Flags().StringVar(&workingDir, "dir", "", "Working directory for the command")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Timeout in seconds (0 for none)")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

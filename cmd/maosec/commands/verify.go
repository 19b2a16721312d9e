package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/loader"
	"github.com/Activ8-AI/maosec/internal/verify"
)

// NewVerifyCommand runs the configured post-sync checks.
func NewVerifyCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName string
		env       string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Prove synced credentials actually work",
		Long: `Verify runs the checks configured under 'checks:': opening a database
connection with a synced DSN, or calling an HTTP endpoint with a synced
token. A failing check exits non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			if len(cfg.Definition.Checks) == 0 {
				cfg.Logger.Warn("no checks configured")
				return nil
			}

			r, err := loadRoster(cfg)
			if err != nil {
				return err
			}
			st, err := buildStore(cfg, storeName)
			if err != nil {
				return err
			}

			l := loader.New(cfg.Logger, st, r, cfg.Prefix())
			v := verify.New(cfg.Logger, l)

			results := v.Run(context.Background(), cfg.Definition.Checks, env)
			failed := 0
			for _, result := range results {
				if !result.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			cfg.Logger.Info("all %d checks passed", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "", "Store to read from (default from config)")
	cmd.Flags().StringVar(&env, "env", "", "Environment to verify (required)")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

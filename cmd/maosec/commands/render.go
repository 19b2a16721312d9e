package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/loader"
)

// NewRenderCommand writes a surface's secrets to a .env file.
func NewRenderCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName string
		host      string
		tenant    string
		system    string
		env       string
		outFile   string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render secrets for a surface or system into a .env file",
		Long: `Render resolves the secrets a surface (by host) or a single tenant system
needs and writes them as KEY=VALUE lines. The file is created with 0600
permissions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			vars, err := resolveVars(cfg, storeName, host, tenant, system, env)
			if err != nil {
				return err
			}
			if len(vars) == 0 {
				cfg.Logger.Warn("no secrets found to render")
			}

			if err := writeEnvFile(outFile, vars, format); err != nil {
				return err
			}
			cfg.Logger.Info("rendered %d variables to %s", len(vars), outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "", "Store to read from (default from config)")
	cmd.Flags().StringVar(&host, "host", "", "Surface host to render (e.g. activ8ai.app)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant (with --system, instead of --host)")
	cmd.Flags().StringVar(&system, "system", "", "System (with --tenant, instead of --host)")
	cmd.Flags().StringVar(&env, "env", "", "Environment to render (required)")
	cmd.Flags().StringVar(&outFile, "out", ".env", "Output file path")
	cmd.Flags().StringVar(&format, "format", "env", "Output format: env, export, or json")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

// resolveVars loads secrets for either a host or a tenant/system pair.
func resolveVars(cfg *config.Config, storeName, host, tenant, system, env string) (map[string]string, error) {
	r, err := loadRoster(cfg)
	if err != nil {
		return nil, err
	}
	st, err := buildStore(cfg, storeName)
	if err != nil {
		return nil, err
	}
	l := loader.New(cfg.Logger, st, r, cfg.Prefix())

	ctx := context.Background()
	switch {
	case host != "":
		return l.ForHost(ctx, host, env)
	case tenant != "" && system != "":
		return l.ForSystem(ctx, tenant, system, env)
	default:
		return nil, maoserrors.UserError{
			Message:    "Nothing to resolve",
			Suggestion: "Pass --host, or --tenant together with --system",
		}
	}
}

func writeEnvFile(path string, vars map[string]string, format string) error {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	switch format {
	case "env":
		for _, key := range keys {
			fmt.Fprintf(&b, "%s=%s\n", key, vars[key])
		}
	case "export":
		for _, key := range keys {
			fmt.Fprintf(&b, "export %s=%q\n", key, vars[key])
		}
	case "json":
		data, err := json.MarshalIndent(vars, "", "  ")
		if err != nil {
			return err
		}
		b.Write(data)
		b.WriteByte('\n')
	default:
		return maoserrors.UserError{
			Message:    fmt.Sprintf("unknown render format %q", format),
			Suggestion: "Use --format env, export, or json",
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return maoserrors.UserError{
			Message:    "Failed to write env file",
			Details:    err.Error(),
			Suggestion: "Check the output path and directory permissions",
			Err:        err,
		}
	}
	return nil
}

package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
)

// NewRosterCommand groups roster inspection subcommands.
func NewRosterCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect and validate the tenant roster",
	}
	cmd.AddCommand(
		newRosterValidateCommand(cfg),
		newRosterShowCommand(cfg),
		newRosterResolveCommand(cfg),
	)
	return cmd
}

func newRosterValidateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the roster file against its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			r, err := loadRoster(cfg)
			if err != nil {
				return err
			}
			cfg.Logger.Info("roster valid: %d environments, %d tenants",
				len(r.KnownEnvs()), len(r.KnownTenants()))
			return nil
		},
	}
}

func newRosterShowCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"list"},
		Short:   "Print the tenants, systems, and surfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			r, err := loadRoster(cfg)
			if err != nil {
				return err
			}

			fmt.Printf("Environments: %s\n\n", strings.Join(r.KnownEnvs(), ", "))
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TENANT\tSYSTEMS")
			for _, tenant := range r.KnownTenants() {
				fmt.Fprintf(w, "%s\t%s\n", tenant, strings.Join(r.SystemsFor(tenant), ", "))
			}
			return w.Flush()
		},
	}
}

func newRosterResolveCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <host>",
		Short: "Resolve a request host to its tenant and surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			r, err := loadRoster(cfg)
			if err != nil {
				return err
			}

			ts, err := r.LookupHost(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("tenant:  %s\nsurface: %s\nsystems: %s\n",
				ts.Tenant, ts.Surface, strings.Join(r.SurfaceSystems(ts), ", "))
			return nil
		},
	}
}

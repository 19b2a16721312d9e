package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/migrate"
)

// NewMigrateCommand moves legacy flat secret names onto the hierarchy.
func NewMigrateCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName  string
		apply      bool
		prune      bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate legacy flat secret names to hierarchical IDs",
		Long: `Migrate scans the store for legacy flat names (PROD_TENANT_SYSTEM_NAME),
resolves them through the roster, and copies each value to its hierarchical
ID. The default run only prints the plan; --apply performs the copies and
--prune additionally deletes legacy names once their copy is verified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prune && !apply {
				return maoserrors.UserError{
					Message:    "--prune only takes effect during an apply",
					Suggestion: "Re-run with --apply --prune",
				}
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			r, err := loadRoster(cfg)
			if err != nil {
				return err
			}
			st, err := buildStore(cfg, storeName)
			if err != nil {
				return err
			}

			m := migrate.New(cfg.Logger, st, r, cfg.Prefix())
			ctx := context.Background()

			plan, err := m.Plan(ctx)
			if err != nil {
				return err
			}
			if outputJSON {
				if err := outputMigrateJSON(plan); err != nil {
					return err
				}
			} else {
				outputMigratePlan(plan)
			}

			if !apply {
				if !outputJSON && plan.Count(migrate.ActionCopy) > 0 {
					fmt.Println("\nRe-run with --apply to perform the migration.")
				}
				return nil
			}

			result, err := m.Apply(ctx, plan, prune)
			if err != nil {
				return err
			}
			cfg.Logger.Info("migration complete: %d copied, %d pruned, %d skipped",
				result.Copied, result.Pruned, result.Skipped)
			for _, itemErr := range result.Errors {
				cfg.Logger.Error("  %s: %v", itemErr.LegacyID, itemErr.Err)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d secrets failed to migrate", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "", "Store to migrate (default from config)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Perform the migration instead of printing the plan")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete legacy names after verifying their copies (requires --apply)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output the plan in JSON format")

	return cmd
}

func outputMigratePlan(plan *migrate.Plan) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tLEGACY NAME\tTARGET ID\tREASON")
	for _, item := range plan.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.Action, item.LegacyID, item.TargetID, item.Reason)
	}
	w.Flush()

	fmt.Printf("\nScan of %s: %d to copy, %d already migrated, %d unparseable, %d already hierarchical\n",
		plan.Store,
		plan.Count(migrate.ActionCopy),
		plan.Count(migrate.ActionMigrated),
		plan.Count(migrate.ActionUnparseable),
		plan.Hierarchical)
}

type migrateItemJSON struct {
	Action   string `json:"action"`
	LegacyID string `json:"legacy_id"`
	TargetID string `json:"target_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func outputMigrateJSON(plan *migrate.Plan) error {
	out := struct {
		Store        string            `json:"store"`
		Hierarchical int               `json:"hierarchical"`
		Items        []migrateItemJSON `json:"items"`
	}{Store: plan.Store, Hierarchical: plan.Hierarchical}
	for _, item := range plan.Items {
		out.Items = append(out.Items, migrateItemJSON{
			Action:   string(item.Action),
			LegacyID: item.LegacyID,
			TargetID: item.TargetID,
			Reason:   item.Reason,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

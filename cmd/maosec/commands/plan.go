package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/syncer"
)

// NewPlanCommand shows the sync diff without writing anything.
func NewPlanCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName  string
		env        string
		tenant     string
		system     string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what sync would change (no values shown)",
		Long: `Plan reads the credential source, resolves every row to its hierarchical
secret ID, and diffs it against the store. Nothing is written and no secret
values are printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			s, err := buildSyncer(cfg, storeName, nil)
			if err != nil {
				return err
			}

			plan, err := s.Plan(context.Background(), syncer.Filter{
				Env:    env,
				Tenant: tenant,
				System: system,
			})
			if err != nil {
				return err
			}

			if outputJSON {
				return outputPlanJSON(plan)
			}
			outputPlanTable(plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "", "Store to diff against (default from config)")
	cmd.Flags().StringVar(&env, "env", "", "Only plan this environment")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Only plan this tenant")
	cmd.Flags().StringVar(&system, "system", "", "Only plan this system")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	return cmd
}

// buildSyncer assembles the sync pipeline shared by plan and sync.
func buildSyncer(cfg *config.Config, storeName string, metrics *syncer.Metrics) (*syncer.Syncer, error) {
	r, err := loadRoster(cfg)
	if err != nil {
		return nil, err
	}
	st, err := buildStore(cfg, storeName)
	if err != nil {
		return nil, err
	}
	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}

	var opts []syncer.Option
	if metrics != nil {
		opts = append(opts, syncer.WithMetrics(metrics))
	}
	return syncer.New(cfg.Logger, src, st, r, cfg.Prefix(), opts...), nil
}

func outputPlanTable(plan *syncer.Plan) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tSECRET ID\tENV VAR\tREASON")
	for _, item := range plan.Items {
		id := item.ID
		if id == "" {
			id = item.Record.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.Action, id, item.EnvVar, item.Reason)
	}
	w.Flush()

	fmt.Printf("\nPlan against %s: %d to create, %d to update, %d unchanged, %d invalid\n",
		plan.Store,
		plan.Count(syncer.ActionCreate),
		plan.Count(syncer.ActionUpdate),
		plan.Count(syncer.ActionSkip),
		plan.Count(syncer.ActionInvalid))
}

type planItemJSON struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	EnvVar string `json:"env_var,omitempty"`
	Record string `json:"record"`
	Reason string `json:"reason,omitempty"`
}

func outputPlanJSON(plan *syncer.Plan) error {
	out := struct {
		Store string         `json:"store"`
		Items []planItemJSON `json:"items"`
	}{Store: plan.Store}
	for _, item := range plan.Items {
		out.Items = append(out.Items, planItemJSON{
			Action: string(item.Action),
			ID:     item.ID,
			EnvVar: item.EnvVar,
			Record: item.Record.Name,
			Reason: item.Reason,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/syncer"
)

// NewSyncCommand pushes source credentials into the store.
func NewSyncCommand(cfg *config.Config) *cobra.Command {
	var (
		storeName   string
		env         string
		tenant      string
		system      string
		dryRun      bool
		watch       bool
		interval    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync credentials from the source into the store",
		Long: `Sync reads every credential row from the source of record and upserts it
under its hierarchical ID. Writes are idempotent: unchanged values are
skipped, changed values get a new version. With --watch the sync repeats on
an interval and exposes Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			var metrics *syncer.Metrics
			if watch {
				registry := prometheus.NewRegistry()
				registry.MustRegister(collectors.NewGoCollector())
				metrics = syncer.NewMetrics(registry)
				go serveMetrics(cfg, metricsAddr, registry)
			}

			s, err := buildSyncer(cfg, storeName, metrics)
			if err != nil {
				return err
			}
			filter := syncer.Filter{Env: env, Tenant: tenant, System: system}

			if dryRun {
				plan, err := s.Plan(context.Background(), filter)
				if err != nil {
					return err
				}
				outputPlanTable(plan)
				return nil
			}

			if watch {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				cfg.Logger.Info("watching source, syncing every %s", interval)
				err := s.Watch(ctx, filter, interval)
				if err == context.Canceled {
					return nil
				}
				return err
			}

			result, err := s.Run(context.Background(), filter)
			if err != nil {
				return err
			}
			printSyncResult(cfg, result)
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d secrets failed to sync", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&storeName, "store", "", "Store to sync into (default from config)")
	cmd.Flags().StringVar(&env, "env", "", "Only sync this environment")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Only sync this tenant")
	cmd.Flags().StringVar(&system, "system", "", "Only sync this system")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only, write nothing")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep syncing on an interval")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Sync interval in watch mode")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9469", "Prometheus metrics listen address in watch mode")

	return cmd
}

func serveMetrics(cfg *config.Config, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	cfg.Logger.Info("serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		cfg.Logger.Error("metrics server stopped: %v", err)
	}
}

func printSyncResult(cfg *config.Config, result *syncer.Result) {
	cfg.Logger.Info("sync complete: %d created, %d updated, %d unchanged, %d invalid",
		result.Created, result.Updated, result.Skipped, result.Invalid)
	for _, itemErr := range result.Errors {
		cfg.Logger.Error("  %s: %v", itemErr.ID, itemErr.Err)
	}
}

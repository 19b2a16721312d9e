package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/cmd/maosec/commands"
	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/logging"
	"github.com/Activ8-AI/maosec/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer secure.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "maosec",
		Short: "Tenant-scoped secret sync for multi-agent deployments",
		Long: `maosec keeps cloud secret stores in sync with the credential inventory,
under hierarchical maos/<env>/<tenant>/<system>/<name> identifiers, and loads
the right subset of variables for whichever surface or system needs them.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "maosec.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	// Add commands
	rootCmd.AddCommand(
		commands.NewPlanCommand(cfg),
		commands.NewSyncCommand(cfg),
		commands.NewMigrateCommand(cfg),
		commands.NewRenderCommand(cfg),
		commands.NewExecCommand(cfg),
		commands.NewGetCommand(cfg),
		commands.NewVerifyCommand(cfg),
		commands.NewRosterCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewLoginCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"github.com/Activ8-AI/maosec/internal/config"
)

// NewDoctorCommand diagnoses the local setup end to end.
func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, roster, source, and store connectivity",
		Long: `Doctor checks each piece of the setup in order: the config file parses,
the roster validates, the credential source answers, and every configured
store accepts our credentials. AWS-backed stores also report the caller
identity so you can spot a wrong profile before it writes anywhere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			failures := 0
			ctx := context.Background()

			if err := cfg.Load(); err != nil {
				cfg.Logger.Error("config: %v", err)
				return fmt.Errorf("configuration is unusable, fix it before the other checks can run")
			}
			cfg.Logger.Info("config ok: %s", cfg.Path)

			if r, err := loadRoster(cfg); err != nil {
				cfg.Logger.Error("roster: %v", err)
				failures++
			} else {
				cfg.Logger.Info("roster ok: %d tenants, %d environments",
					len(r.KnownTenants()), len(r.KnownEnvs()))
			}

			if src, err := buildSource(cfg); err != nil {
				cfg.Logger.Error("source: %v", err)
				failures++
			} else if err := src.Validate(ctx); err != nil {
				cfg.Logger.Error("source %s: %v", src.Name(), err)
				failures++
			} else {
				cfg.Logger.Info("source ok: %s", src.Name())
			}

			for _, name := range cfg.StoreNames() {
				storeConfig, _ := cfg.GetStore(name)

				st, err := buildStore(cfg, name)
				if err != nil {
					cfg.Logger.Error("store %s: %v", name, err)
					failures++
					continue
				}

				checkCtx, cancel := context.WithTimeout(ctx,
					time.Duration(storeConfig.GetStoreTimeout())*time.Millisecond)
				err = st.Validate(checkCtx)
				cancel()
				if err != nil {
					cfg.Logger.Error("store %s (%s): %v", name, st.Type(), err)
					failures++
					continue
				}
				cfg.Logger.Info("store ok: %s (%s)", name, st.Type())

				if strings.HasPrefix(storeConfig.Type, "aws.") {
					reportAWSIdentity(ctx, cfg, name, storeConfig)
				}
			}

			if failures > 0 {
				return fmt.Errorf("%d checks failed", failures)
			}
			cfg.Logger.Info("everything looks healthy")
			return nil
		},
	}
	return cmd
}

// reportAWSIdentity prints which AWS principal the store's credentials
// resolve to. Informational only; a failure here does not fail doctor since
// Validate already proved store access.
func reportAWSIdentity(ctx context.Context, cfg *config.Config, name string, storeConfig config.StoreConfig) {
	region, _ := storeConfig.Config["region"].(string)
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		cfg.Logger.Debug("store %s: could not load AWS config: %v", name, err)
		return
	}

	identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		cfg.Logger.Debug("store %s: could not resolve caller identity: %v", name, err)
		return
	}
	cfg.Logger.Info("  caller identity: %s (account %s)",
		aws.ToString(identity.Arn), aws.ToString(identity.Account))
}

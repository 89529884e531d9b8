// Package cli wires configuration, deployments and the HTTP server into the
// insurecast command.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"insurecast/config"
	"insurecast/ml"
)

type rootOptions struct {
	configFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "insurecast",
		Short: "Medical insurance charge estimates from a trained model",
		Long: `insurecast turns a person's age, sex, body measurements, children, smoking
status and region into the feature vector a trained model expects, and
reports the model's estimated yearly charge.

Deployments (model artifact, column manifest and encoding scheme) are
declared in the config file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is fine
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		fmt.Sprintf("config file (default $%s or ./config.yaml)", config.EnvConfigPath))

	cmd.AddCommand(
		newServeCmd(opts),
		newPredictCmd(opts),
		newModelsCmd(opts),
		newSchemaCmd(),
	)
	return cmd
}

// Execute runs the command line. Called by main.main.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(config.Path(o.configFile))
}

func (o *rootOptions) loadRegistry(ctx context.Context) (*config.Config, *ml.Registry, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	registry, err := ml.LoadRegistry(ctx, cfg.Deployments, cfg.DefaultDeployment)
	if err != nil {
		return nil, nil, fmt.Errorf("load deployments: %w", err)
	}
	return cfg, registry, nil
}

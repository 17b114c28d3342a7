package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"propsheet-service/internal/config"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

// newRootCmd loads the config once before any subcommand runs and installs the logger it
// describes. Subcommands read the loaded config through the shared pointer.
func newRootCmd() *cobra.Command {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}

	var (
		configPath string
		cfg        config.Config
	)
	cmd := &cobra.Command{
		Use:          "propsheet",
		Short:        "Prop sheet service: phone sign-in and sheet rankings",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			slog.SetDefault(newLogger(cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to YAML config")
	cmd.AddCommand(
		NewStartCmd(&cfg),
		NewMigrateCmd(&cfg),
		NewPlacementCmd(&cfg),
	)
	return cmd
}

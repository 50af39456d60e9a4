// Package cli provides the sheetflow command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetflow/internal/config"
	"github.com/JonMunkholm/sheetflow/internal/logging"
)

// Version is set at build time.
var Version = "0.1.0"

// configKey stores the loaded config in the command context.
type configKey struct{}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "sheetflow",
		Short: "Extract, validate and deliver the tables in a spreadsheet",
		Long: `sheetflow finds every table in an Excel workbook, cleans and types it,
and can write the result to a workbook, a warehouse, or chart images.

Configuration is read from the environment (and an optional .env file),
the same variables the web server uses.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			} else {
				_ = godotenv.Load()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default: ./.env if present)")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewInspectCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads only the sections the CLI uses, so server-only settings
// such as SESSION_SECRET are not required.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	sections := []any{&cfg.Upload, &cfg.Pipeline, &cfg.Warehouse, &cfg.Mail, &cfg.Logging}
	for _, s := range sections {
		if err := config.LoadSection(s); err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	}
	return cfg, nil
}

func getConfig(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	cfg, err := loadConfig()
	if err != nil {
		return &config.Config{}
	}
	return cfg
}

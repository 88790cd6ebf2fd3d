// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger"
)

var (
	configPath string // directory holding main.toml
	envFile    string // optional .env file

	rootCmd = &cobra.Command{
		Use:   "sk-portal",
		Short: "SK Federation portal",
		Long: `sk-portal runs the web portal of a Sangguniang Kabataan city federation:
announcements with polls, events, news, barangay profiles, legislative
documents and notifications, with role based access control.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Directory of main.toml (default ./etc/)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Env file loaded before the configuration (default ./.env if present)")
}

// loadConfig reads the env file and the configuration.
func loadConfig() (config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.Config{}, err
	}

	return config.ReadConfig(configPath)
}

// loadConfigAndLogger also initializes the global logger.
func loadConfigAndLogger() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}

	return cfg, logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfigAndLogger()
		if err != nil {
			return err
		}

		if _, err = daemon.OpenDB(&cfg); err != nil {
			return err
		}

		log.Info().Str("engine", cfg.DB.GormEngine).Str("name", cfg.DB.Name).Msg("database schema is up to date")

		return nil
	},
}

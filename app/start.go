package app

import (
	"github.com/spf13/cobra"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/daemon"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	startCmd.Flags().BoolVar(
		&browseStatic,
		"browse",
		false,
		"Enable static file browsing (for development purposes only)",
	)

	rootCmd.AddCommand(startCmd)
}

var (
	devMode      bool
	browseStatic bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the portal web service",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfigAndLogger()
			if err != nil {
				return err
			}

			defer func() {
				_ = logger.Close()
			}()

			if devMode {
				cfg.DevMode = true
			}

			if browseStatic {
				cfg.Webserver.BrowseStatic = true
			}

			d, err := daemon.New(&cfg)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)

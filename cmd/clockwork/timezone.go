package main

import (
	"github.com/spf13/cobra"

	"github.com/abatilo/clockwork/internal/config"
	"github.com/abatilo/clockwork/internal/recurrence"
)

// timezoneCmd implements 'clockwork timezone'.
func timezoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timezone [zone]",
		Short: "Show or set the timezone that decides when a day starts",
		Args:  cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			cfg, _, err := loadConfig()
			if err != nil {
				printError(err)
			}

			if len(args) == 0 {
				settings, err := config.LoadSettings(cfg.DataDir)
				if err != nil {
					printError(err)
				}
				loc, err := cfg.Location(settings)
				if err != nil {
					printError(err)
				}
				printMessagef("%s", loc)
				return
			}

			loc, err := recurrence.LoadLocation(args[0])
			if err != nil {
				printError(err)
			}
			if _, err := config.UpdateSettings(cfg.DataDir, func(s *config.Settings) {
				s.Timezone = loc.String()
			}); err != nil {
				printError(err)
			}
			if cfg.Timezone != "" && cfg.Timezone != loc.String() {
				printMessagef("Timezone saved as %s, but the config file's timezone (%s) takes precedence", loc, cfg.Timezone)
				return
			}
			printMessagef("Timezone set to %s", loc)
		},
	}
}

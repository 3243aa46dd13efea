// cmd/bridge/run.go
package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tamzrod/fieldbus-bridge/internal/bridge"
	"github.com/tamzrod/fieldbus-bridge/internal/config"
)

func newRunCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve every device described in a YAML config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			config.Normalize(cfg)

			log.Info().
				Str("config", path).
				Int("buses", len(cfg.Bridge.Buses)).
				Int("devices", len(cfg.Bridge.Devices)).
				Msg("config loaded")

			b, err := bridge.Build(cfg, bridge.Options{})
			if err != nil {
				return err
			}
			return b.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "bridge.yaml", "config file")
	return cmd
}

// cmd/bridge/serve.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamzrod/fieldbus-bridge/internal/bridge"
	"github.com/tamzrod/fieldbus-bridge/internal/config"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/rawserial"
)

func newServeCmd() *cobra.Command {
	f := config.DeviceFlags{}
	var setup bool

	cmd := &cobra.Command{
		Use:   "serve <device-type>",
		Short: "Serve one device over HTTP",
		Long: "Serve one device over HTTP.\n\nDevice types: " +
			strings.Join(devices.Types(), ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Type = args[0]
			if setup {
				return runSetup(cmd, f)
			}

			cfg, err := config.ForDevice(f)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			config.Normalize(cfg)

			b, err := bridge.Build(cfg, bridge.Options{})
			if err != nil {
				return err
			}
			return b.Run(cmd.Context())
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.SerialPort, "serial-port", "s", rawserial.AutoPort, "serial port, or auto")
	fl.IntVarP(&f.Address, "device-address", "d", 0, "Modbus address (default: device type's)")
	fl.IntVarP(&f.Baud, "baud", "b", 0, "baud rate (default: device type's, 19200 with --do-setup)")
	fl.StringVarP(&f.Host, "host", "H", config.DefaultHost, "HTTP listen host")
	fl.IntVarP(&f.Port, "port", "p", config.DefaultPort, "HTTP listen port")
	fl.StringVarP(&f.Page, "page", "P", "", "HTML file served on /")
	fl.StringArrayVarP(&f.Files, "path-file", "f", nil, "extra static file as path:file (repeatable)")
	fl.BoolVarP(&setup, "do-setup", "i", false, "run the device's setup procedure and exit")
	fl.IntVar(&f.IntervalMs, "interval", config.DefaultIntervalMs, "poll interval in milliseconds")
	fl.StringVar(&f.TCP, "tcp", "", "Modbus TCP endpoint host:port instead of a serial line")
	fl.BoolVar(&f.Dev, "dev", false, "use a simulated bus")
	fl.StringVar(&f.History, "history", "", "SQLite file for snapshot history")
	return cmd
}

func runSetup(cmd *cobra.Command, f config.DeviceFlags) error {
	desc, ok := devices.Lookup(f.Type)
	if !ok {
		return fmt.Errorf("unknown device type %q", f.Type)
	}
	if desc.Provision == nil {
		return fmt.Errorf("device type %s has no setup procedure", f.Type)
	}
	if f.Baud == 0 {
		f.Baud = desc.Provision.BaudRate
	}

	cfg, err := config.ForDevice(f)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	config.Normalize(cfg)

	out := cmd.OutOrStdout()
	return bridge.Setup(cmd.Context(), cfg, nil, func(line string) {
		fmt.Fprintln(out, line)
	})
}

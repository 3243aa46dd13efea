// cmd/bridge/ports.go
package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tamzrod/fieldbus-bridge/internal/transport/rawserial"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := rawserial.List()
			if err != nil {
				return err
			}
			t := newTable(cmd)
			t.AppendHeader(table.Row{"Port", "USB", "VID", "PID", "Serial", "Product"})
			for _, p := range ports {
				t.AppendRow(table.Row{p.Name, p.IsUSB, p.VID, p.PID, p.SerialNumber, p.Product})
			}
			t.Render()
			return nil
		},
	}
}

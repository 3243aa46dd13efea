// cmd/bridge/catalog.go
package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/registers"
)

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List supported device types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable(cmd)
			t.AppendHeader(table.Row{"Type", "Path", "Kind", "Address", "Baud", "Setup", "Summary"})
			for _, d := range devices.All() {
				addr := "-"
				if d.Kind == device.KindRegisters {
					addr = fmt.Sprintf("%#02x", d.Address)
				}
				t.AppendRow(table.Row{d.Type, d.Path, d.Kind, addr, d.BaudRate, d.Provision != nil, d.Summary})
			}
			t.Render()
			return nil
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <device-type>",
		Short: "Show a device type's fields, commands and settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := devices.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown device type %q (known: %s)", args[0], strings.Join(devices.Types(), ", "))
			}

			t := newTable(cmd)
			t.SetTitle("%s fields", d.Type)
			t.AppendHeader(table.Row{"Field", "Group", "Source"})
			for _, g := range d.Groups {
				addr := g.Address
				for _, fd := range g.Fields {
					if fd.Name != "" {
						t.AppendRow(table.Row{fd.Name, g.Name, source(g.Table, addr, fd)})
					}
					addr += fd.Words()
				}
			}
			if d.Probe != nil {
				for _, name := range d.Probe.Fields {
					t.AppendRow(table.Row{name, d.Probe.Name, fmt.Sprintf("request %q", d.Probe.Request)})
				}
			}
			t.Render()

			if len(d.Commands) > 0 {
				t = newTable(cmd)
				t.SetTitle("commands (POST %s/<name>)", d.Path)
				t.AppendHeader(table.Row{"Command", "Message"})
				for _, c := range d.Commands {
					t.AppendRow(table.Row{c.Name, c.Message})
				}
				t.Render()
			}

			if len(d.Settings) > 0 {
				t = newTable(cmd)
				t.SetTitle("settings (PATCH %s)", d.Path)
				t.AppendHeader(table.Row{"Key", "Register", "Min", "Max"})
				for _, s := range d.Settings {
					t.AppendRow(table.Row{s.Key, fmt.Sprintf("%#04x", s.Address), s.Min, s.Max})
				}
				t.Render()
			}
			return nil
		},
	}
}

func source(tbl registers.Table, addr uint16, f registers.Field) string {
	s := fmt.Sprintf("%s %#04x", tbl, addr)
	if f.Words() > 1 {
		s += " (32-bit)"
	}
	if f.Scale != 0 && f.Scale != 1 {
		s += fmt.Sprintf(" x%g", f.Scale)
	}
	return s
}

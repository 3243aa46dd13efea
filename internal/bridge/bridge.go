// internal/bridge/bridge.go
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tamzrod/fieldbus-bridge/internal/config"
	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/history"
	"github.com/tamzrod/fieldbus-bridge/internal/metrics"
	"github.com/tamzrod/fieldbus-bridge/internal/poller"
	"github.com/tamzrod/fieldbus-bridge/internal/rest"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Options tune Build. The zero value is production.
type Options struct {
	Dial Dialer

	// Sleep replaces the adapters' turnaround sleep (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

// Bridge is the assembled process: buses, adapters, poller and server.
type Bridge struct {
	buses   []transport.Conn
	devices []*device.Adapter
	poller  *poller.Poller
	server  *rest.Server
	metrics *metrics.Metrics
	history *history.Store
	log     zerolog.Logger
}

// Build wires everything described by cfg. cfg must already be validated
// and normalized. On error every opened resource is released.
func Build(cfg *config.Config, opts Options) (*Bridge, error) {
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	b := &Bridge{
		metrics: metrics.New(),
		log:     log.With().Str("component", "bridge").Logger(),
	}
	if err := b.build(cfg.Bridge, opts); err != nil {
		_ = b.closeAll()
		return nil, err
	}
	return b, nil
}

func (b *Bridge) build(bc config.BridgeConfig, opts Options) error {
	var err error

	if bc.History.Path != "" {
		b.history, err = history.Open(bc.History.Path, bc.History.Retain)
		if err != nil {
			return err
		}
	}

	obs := device.Observers{b.metrics}
	if b.history != nil {
		obs = append(obs, b.history)
	}

	// ---- buses ----
	members := make(map[string][]Member)
	descs := make([]device.Descriptor, len(bc.Devices))
	for i, d := range bc.Devices {
		desc, ok := devices.Lookup(d.Type)
		if !ok {
			return fmt.Errorf("bridge: device %q: unknown type %q", d.ID, d.Type)
		}
		descs[i] = desc
		members[d.Bus] = append(members[d.Bus], Member{Desc: desc, Unit: unitOf(d, desc)})
	}

	conns := make(map[string]transport.Conn)
	buses := make(map[string]config.BusConfig)
	for _, bus := range bc.Buses {
		buses[bus.ID] = bus
		if len(members[bus.ID]) == 0 {
			b.log.Warn().Str("bus", bus.ID).Msg("bus has no devices, not opened")
			continue
		}
		conn, err := opts.Dial(bus, members[bus.ID])
		if err != nil {
			return err
		}
		conns[bus.ID] = conn
		b.buses = append(b.buses, conn)
		b.log.Info().Str("bus", bus.ID).Str("mode", bus.Mode).Interface("meta", conn.Metadata()).Msg("bus open")
	}

	// ---- adapters ----
	pdevs := make([]poller.Device, 0, len(bc.Devices))
	rdevs := make([]device.Device, 0, len(bc.Devices))
	for i, d := range bc.Devices {
		desc := descs[i]
		if t := time.Duration(buses[d.Bus].TurnaroundMs) * time.Millisecond; t > desc.Turnaround {
			desc.Turnaround = t
		}

		aopts := []device.Option{
			device.WithID(d.ID),
			device.WithPath(d.Path),
			device.WithObserver(obs),
		}
		if d.Address != nil {
			aopts = append(aopts, device.WithAddress(uint8(*d.Address)))
		}
		if opts.Sleep != nil {
			aopts = append(aopts, device.WithSleep(opts.Sleep))
		}

		a, err := device.New(desc, conns[d.Bus], aopts...)
		if err != nil {
			return err
		}
		b.devices = append(b.devices, a)
		pdevs = append(pdevs, a)
		rdevs = append(rdevs, a)
	}

	// ---- poller ----
	b.poller, err = poller.New(poller.Config{
		Interval: time.Duration(bc.Poll.IntervalMs) * time.Millisecond,
		OnCycle:  b.metrics.PollCycle,
	}, pdevs...)
	if err != nil {
		return err
	}

	// ---- server ----
	deps := rest.Deps{Metrics: b.metrics.Handler()}
	if b.history != nil {
		deps.History = b.history
		deps.Admin = append(deps.Admin, b.history.AttachAdminRoutes)
	}
	b.server, err = rest.NewServer(rest.Config{
		Host:  bc.HTTP.Host,
		Port:  bc.HTTP.Port,
		Page:  bc.HTTP.Page,
		Files: bc.HTTP.Files,
	}, deps, rdevs...)
	if err != nil {
		return err
	}
	return nil
}

func unitOf(d config.DeviceConfig, desc device.Descriptor) uint8 {
	if d.Address == nil {
		return desc.Address
	}
	return uint8(*d.Address)
}

func (b *Bridge) Devices() []*device.Adapter { return b.devices }
func (b *Bridge) Server() *rest.Server        { return b.server }
func (b *Bridge) Poller() *poller.Poller      { return b.poller }
func (b *Bridge) Metrics() *metrics.Metrics   { return b.metrics }

// Start begins polling and serving.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.poller.Start(ctx); err != nil {
		return err
	}
	if err := b.server.Start(ctx); err != nil {
		b.poller.Stop()
		return err
	}
	return nil
}

// Stop drains HTTP, stops the poller at a group boundary and closes buses.
func (b *Bridge) Stop(ctx context.Context) error {
	err := b.server.Stop(ctx)
	b.poller.Stop()
	return errors.Join(err, b.closeAll())
}

// Run starts the bridge and blocks until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	b.log.Info().Msg("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.Stop(stopCtx)
}

func (b *Bridge) closeAll() error {
	var errs []error
	for _, c := range b.buses {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.buses = nil
	if b.history != nil {
		if err := b.history.Close(); err != nil {
			errs = append(errs, err)
		}
		b.history = nil
	}
	return errors.Join(errs...)
}

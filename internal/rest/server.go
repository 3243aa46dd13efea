// internal/rest/server.go
package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"tailscale.com/tsweb"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/history"
)

// Config is the HTTP surface configuration.
type Config struct {
	Host string
	Port int

	// Page is served on GET /. Empty disables it.
	Page string

	// Files maps extra URL paths to files on disk.
	Files map[string]string
}

// History answers the per-device history route.
type History interface {
	Recent(ctx context.Context, dev string, limit int) ([]history.Entry, error)
}

// Deps are optional collaborators; nil fields switch their routes off.
type Deps struct {
	History History
	Metrics http.Handler

	// Admin attaches extra pages under /debug/.
	Admin []func(*tsweb.DebugHandler) error
}

// Server exposes devices over HTTP.
type Server struct {
	cfg     Config
	deps    Deps
	devices []device.Device
	router  *mux.Router
	server  *http.Server
	ln      net.Listener
	logger  zerolog.Logger
	started time.Time
}

// NewServer builds the router. Device paths must be unique.
func NewServer(cfg Config, deps Deps, devices ...device.Device) (*Server, error) {
	seen := make(map[string]string, len(devices))
	for _, d := range devices {
		if prev, dup := seen[d.Path()]; dup {
			return nil, fmt.Errorf("rest: devices %q and %q share path %s", prev, d.ID(), d.Path())
		}
		seen[d.Path()] = d.ID()
	}
	for p := range cfg.Files {
		if id, clash := seen[p]; clash {
			return nil, fmt.Errorf("rest: file path %s shadows device %q", p, id)
		}
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		devices: devices,
		router:  mux.NewRouter(),
		logger:  log.With().Str("component", "rest").Logger(),
		started: time.Now(),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.router }

// Addr is the bound address once Start has returned.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start binds the listener and serves in the background. Bind errors are
// returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rest: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Int("devices", len(s.devices)).Msg("Starting HTTP server")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return nil
}

// Stop drains in-flight requests; they answer from the last published
// snapshots.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info().Msg("Stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rest: shutdown: %w", err)
	}
	return nil
}

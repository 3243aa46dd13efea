// internal/rest/routes.go
package rest

import (
	"net/http"

	"tailscale.com/tsweb"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/httputil"
)

func (s *Server) setupRoutes() error {
	r := s.router
	r.Use(s.requestID, s.accessLog)
	// mux skips middleware for these two
	r.NotFoundHandler = s.requestID(s.accessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "not found")
	})))
	r.MethodNotAllowedHandler = s.requestID(s.accessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.MethodNotAllowed(w)
	})))

	r.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)

	for _, d := range s.devices {
		h := deviceHandlers{s: s, d: d}
		p := d.Path()
		r.HandleFunc(p, h.get).Methods(http.MethodGet)
		r.HandleFunc(p, h.patch).Methods(http.MethodPatch)
		r.HandleFunc(p, h.postQuery).Methods(http.MethodPost)
		if s.deps.History != nil {
			r.HandleFunc(p+"/history", h.history).Methods(http.MethodGet)
		}
		r.HandleFunc(p+"/{method}", h.post).Methods(http.MethodPost)
	}

	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics).Methods(http.MethodGet)
	}

	debugMux := http.NewServeMux()
	debug := tsweb.Debugger(debugMux)
	s.attachDebug(debug)
	for _, attach := range s.deps.Admin {
		if err := attach(debug); err != nil {
			return err
		}
	}
	r.PathPrefix("/debug/").Handler(debugMux)

	if s.cfg.Page != "" {
		r.Handle("/", fileHandler(s.cfg.Page)).Methods(http.MethodGet)
	}
	for p, f := range s.cfg.Files {
		r.Handle(p, fileHandler(f)).Methods(http.MethodGet)
	}
	return nil
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	list := make([]any, 0, len(s.devices))
	for _, d := range s.devices {
		list = append(list, d.JSON())
	}
	httputil.WriteJSONOK(w, map[string]any{
		"length":  len(list),
		"devices": list,
	})
}

// Devices lists what the server exposes, in registration order.
func (s *Server) Devices() []device.Device { return s.devices }

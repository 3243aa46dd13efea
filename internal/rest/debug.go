// internal/rest/debug.go
package rest

import (
	"fmt"
	"html"
	"net/http"
	"sort"
	"time"

	"tailscale.com/tsweb"
)

func (s *Server) attachDebug(debug *tsweb.DebugHandler) {
	debug.HandleFunc("devices", "Devices and their last published state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>Devices</h1><p>up %s</p>\n", time.Since(s.started).Round(time.Second))
		for _, d := range s.devices {
			snap := d.State()
			fmt.Fprintf(w, "<h2>%s <small>%s</small></h2>\n<table>\n",
				html.EscapeString(d.ID()), html.EscapeString(d.Path()))
			for _, f := range snap.Fields() {
				fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td></tr>\n",
					html.EscapeString(f), html.EscapeString(snap.Get(f).String()))
			}
			fmt.Fprintf(w, "</table>\n<p>published %s</p>\n", snap.At().Format(time.RFC3339Nano))
		}
	})

	debug.HandleFunc("buses", "Transport metadata per device", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<h1>Buses</h1>\n")
		for _, d := range s.devices {
			meta := d.Transport().Metadata()
			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(w, "<h2>%s</h2>\n<table>\n", html.EscapeString(d.ID()))
			for _, k := range keys {
				fmt.Fprintf(w, "<tr><td>%s</td><td>%v</td></tr>\n",
					html.EscapeString(k), html.EscapeString(fmt.Sprint(meta[k])))
			}
			fmt.Fprint(w, "</table>\n")
		}
	})
}

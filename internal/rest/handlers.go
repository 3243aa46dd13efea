// internal/rest/handlers.go
package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/history"
	"github.com/tamzrod/fieldbus-bridge/internal/httputil"
	"github.com/tamzrod/fieldbus-bridge/internal/result"
)

// MsgNoMethod answers POST <path> without ?method=.
const MsgNoMethod = "Query method is not specified"

const maxBody = 1 << 20

type deviceHandlers struct {
	s *Server
	d device.Device
}

func (h deviceHandlers) get(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSONOK(w, h.d.JSON())
}

func (h deviceHandlers) patch(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, h.d.HandlePatch(body))
}

func (h deviceHandlers) post(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, mux.Vars(r)["method"])
}

func (h deviceHandlers) postQuery(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	if method == "" {
		httputil.WriteJSONOK(w, result.Fail(MsgNoMethod))
		return
	}
	h.command(w, r, method)
}

func (h deviceHandlers) command(w http.ResponseWriter, r *http.Request, method string) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, h.d.HandleCommand(method, body))
}

func (h deviceHandlers) history(w http.ResponseWriter, r *http.Request) {
	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = history.ClampLimit(n)
	}

	entries, err := h.s.deps.History.Recent(r.Context(), h.d.ID(), limit)
	if err != nil {
		h.s.logger.Error().Err(err).Str("device", h.d.ID()).Msg("history query")
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"device":  h.d.ID(),
		"length":  len(entries),
		"entries": entries,
	})
}

// readBody loads a JSON object body. Anything else is a 400.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		httputil.BadRequest(w, "cannot read body")
		return nil, false
	}
	if _, err := result.Body(body); err != nil {
		httputil.BadRequest(w, "body must be a JSON object")
		return nil, false
	}
	return body, true
}

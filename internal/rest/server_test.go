// internal/rest/server_test.go
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/history"
	"github.com/tamzrod/fieldbus-bridge/internal/metrics"
	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/mock"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type fakeHistory struct {
	dev   string
	limit int
	err   error
}

func (f *fakeHistory) Recent(_ context.Context, dev string, limit int) ([]history.Entry, error) {
	f.dev, f.limit = dev, limit
	if f.err != nil {
		return nil, f.err
	}
	return []history.Entry{{At: time.Unix(0, 0).UTC(), Values: map[string]any{"voltage": 230.1}}}, nil
}

type fixture struct {
	srv  *Server
	bank *mock.Bank
	dev  *device.Adapter
	hist *fakeHistory
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	bank := mock.NewBank("/dev/ttyUSB0")
	bank.SetInput(0xF8, 0x0000, 2301, 1234, 0, 2839, 0, 15, 0, 500, 99, 0)
	bank.SetHolding(0xF8, 0x0001, 2300)

	dev, err := device.New(devices.PZEM004T(), bank, device.WithSleep(noSleep))
	require.NoError(t, err)
	require.NoError(t, dev.Update(context.Background()))

	hist := &fakeHistory{}
	srv, err := NewServer(cfg, Deps{History: hist, Metrics: metrics.New().Handler()}, dev)
	require.NoError(t, err)
	return fixture{srv: srv, bank: bank, dev: dev, hist: hist}
}

func (f fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestGetMergesMetadataAndFields(t *testing.T) {
	f := newFixture(t, Config{})
	rec, body := f.do(t, http.MethodGet, "/pzem-004t", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["isConnected"])
	assert.Equal(t, "mock-modbus", body["protocol"])
	assert.Equal(t, 230.1, body["voltage"])
	assert.Equal(t, 1.234, body["current"])
	assert.Equal(t, false, body["alarm"])
	assert.Equal(t, 248.0, body["address"])
}

func TestListDevices(t *testing.T) {
	f := newFixture(t, Config{})
	rec, body := f.do(t, http.MethodGet, "/devices", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["length"])
	list, ok := body["devices"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, 230.1, list[0].(map[string]any)["voltage"])
}

func TestPatch(t *testing.T) {
	f := newFixture(t, Config{})

	rec, body := f.do(t, http.MethodPatch, "/pzem-004t", `{"alarmThreshold": 2000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, result.StatusSuccess, body["status"])
	assert.Equal(t, 2000.0, body["alarmThreshold"])

	_, body = f.do(t, http.MethodGet, "/pzem-004t", "")
	assert.Equal(t, 2000.0, body["alarmThreshold"])

	rec, body = f.do(t, http.MethodPatch, "/pzem-004t", `{"bogus": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "fail", "message": "Unknown key"}, body)

	rec, _ = f.do(t, http.MethodPatch, "/pzem-004t", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPatch, "/pzem-004t", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostCommandForms(t *testing.T) {
	f := newFixture(t, Config{})

	rec, body := f.do(t, http.MethodPost, "/pzem-004t/reset_energy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "success", "message": "request to reset energy"}, body)

	_, body = f.do(t, http.MethodPost, "/pzem-004t?method=calibrate", "{}")
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, [][]byte{{0xF8, 0x42}, {0xF8, 0x41, 0x37, 0x21}}, f.bank.Requests())

	_, body = f.do(t, http.MethodPost, "/pzem-004t", "")
	assert.Equal(t, map[string]any{"status": "fail", "message": MsgNoMethod}, body)

	_, body = f.do(t, http.MethodPost, "/pzem-004t/warp_drive", "")
	assert.Equal(t, map[string]any{"status": "fail", "message": "Unknown method"}, body)

	rec, _ = f.do(t, http.MethodPost, "/pzem-004t/calibrate", "nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransportFailureStays200(t *testing.T) {
	f := newFixture(t, Config{})
	f.bank.FailWrites(errors.New("line noise"))

	rec, body := f.do(t, http.MethodPatch, "/pzem-004t", `{"alarmThreshold": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Failed to update parameter: alarmThreshold", body["message"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	f := newFixture(t, Config{})

	rec, body := f.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "fail", body["status"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec, _ = f.do(t, http.MethodDelete, "/pzem-004t", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/pzem-004t", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec, _ = f.do(t, http.MethodGet, "/pzem-004t", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestHistoryRoute(t *testing.T) {
	f := newFixture(t, Config{})

	rec, body := f.do(t, http.MethodGet, "/pzem-004t/history?limit=5000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pzem-004t", f.hist.dev)
	assert.Equal(t, history.MaxLimit, f.hist.limit)
	assert.Equal(t, 1.0, body["length"])

	_, _ = f.do(t, http.MethodGet, "/pzem-004t/history", "")
	assert.Equal(t, history.DefaultLimit, f.hist.limit)

	rec, _ = f.do(t, http.MethodGet, "/pzem-004t/history?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.hist.err = errors.New("disk gone")
	rec, _ = f.do(t, http.MethodGet, "/pzem-004t/history", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte("<html>pzem</html>"), 0o644))
	script := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(script, []byte("let x = 1"), 0o644))

	f := newFixture(t, Config{
		Page:  page,
		Files: map[string]string{"/app.js": script, "/missing.css": filepath.Join(dir, "missing.css")},
	})

	rec, _ := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "<html>pzem</html>", rec.Body.String())

	rec, _ = f.do(t, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")

	rec, _ = f.do(t, http.MethodGet, "/missing.css", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing.css")
}

func TestMetricsAndDebugRoutes(t *testing.T) {
	f := newFixture(t, Config{})

	rec, _ := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	req := httptest.NewRequest(http.MethodGet, "/debug/devices", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pzem-004t")
	assert.Contains(t, rec.Body.String(), "230.1")
}

func TestNewServerRejectsClashingPaths(t *testing.T) {
	bank := mock.NewBank("")
	a, err := device.New(devices.PZEM004T(), bank)
	require.NoError(t, err)
	b, err := device.New(devices.PZEM004T(), bank, device.WithID("second"))
	require.NoError(t, err)

	_, err = NewServer(Config{}, Deps{}, a, b)
	assert.ErrorContains(t, err, "share path")

	_, err = NewServer(Config{Files: map[string]string{"/pzem-004t": "x"}}, Deps{}, a)
	assert.ErrorContains(t, err, "shadows")
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, Config{Host: "127.0.0.1", Port: 0})
	require.NoError(t, f.srv.Start(context.Background()))

	resp, err := http.Get("http://" + f.srv.Addr() + "/pzem-004t")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.srv.Stop(context.Background()))
}

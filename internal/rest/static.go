// internal/rest/static.go
package rest

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// fileHandler reads path on every request so pages can be edited live.
// Read errors are reported as 500 with the error text.
func fileHandler(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		b, err := os.ReadFile(path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		ct := mime.TypeByExtension(filepath.Ext(path))
		if ct == "" {
			ct = http.DetectContentType(b)
		}
		w.Header().Set("Content-Type", ct)
		_, _ = w.Write(b)
	})
}

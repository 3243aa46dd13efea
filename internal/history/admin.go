// internal/history/admin.go
package history

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts a live SQL console and a backup download on
// the debug page.
func (s *Store) AttachAdminRoutes(debug *tsweb.DebugHandler) error {
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("history: tailsql: %w", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.db, &tailsql.DBOptions{
		Label: "Bridge history",
	})
	debug.Handle("tailsql/", "SQL console over the snapshot history", tsql.NewMux())
	debug.Handle("backup", "Download a gzipped copy of the history database", http.HandlerFunc(s.serveBackup))
	return nil
}

func (s *Store) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("history-%d.db", time.Now().Unix())
	tmp := filepath.Join(os.TempDir(), name)
	if _, err := s.db.ExecContext(r.Context(), "VACUUM INTO ?", tmp); err != nil {
		http.Error(w, fmt.Sprintf("backup failed: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(tmp); err != nil {
			s.log.Warn().Err(err).Str("file", tmp).Msg("remove backup")
		}
	}()

	f, err := os.Open(tmp)
	if err != nil {
		http.Error(w, fmt.Sprintf("backup failed: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")
	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		s.log.Error().Err(err).Msg("stream backup")
	}
}

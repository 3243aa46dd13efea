// internal/history/store.go
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/state"
	"github.com/tamzrod/fieldbus-bridge/internal/status"
)

const (
	DefaultLimit = 20
	MaxLimit     = 500

	// queueSize bounds snapshots waiting for the writer. A full queue
	// drops new snapshots rather than stall the poller.
	queueSize = 256
)

// Entry is one stored snapshot.
type Entry struct {
	At     time.Time      `json:"at"`
	Values map[string]any `json:"values"`
	Groups map[string]any `json:"groups,omitempty"`
}

// Store keeps published snapshots in SQLite. Snapshots observed from the
// poller are written by the store's own goroutine.
type Store struct {
	db   *sql.DB
	path string
	keep int
	log  zerolog.Logger

	mu      sync.Mutex
	closed  bool
	queue   chan job
	done    chan struct{}
	dropped int
}

// job is a snapshot to write, or a flush marker when flushed is set.
type job struct {
	dev     string
	snap    *state.Snapshot
	flushed chan struct{}
}

var _ device.Observer = (*Store)(nil)

// Open creates or opens the database at path. keep > 0 bounds the rows
// kept per device; older rows are pruned as new ones arrive.
func Open(path string, keep int) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// one writer; readers queue behind it
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			device        TEXT    NOT NULL,
			at            BIGINT  NOT NULL,
			fields        TEXT    NOT NULL,
			group_status  TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS snapshots_device_at ON snapshots (device, at DESC);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}

	s := &Store{
		db:    db,
		path:  path,
		keep:  keep,
		log:   log.With().Str("component", "history").Logger(),
		queue: make(chan job, queueSize),
		done:  make(chan struct{}),
	}
	go s.write()
	return s, nil
}

func (s *Store) write() {
	defer close(s.done)
	for j := range s.queue {
		if j.flushed != nil {
			close(j.flushed)
			continue
		}
		if err := s.Record(context.Background(), j.dev, j.snap); err != nil {
			s.log.Error().Err(err).Str("device", j.dev).Msg("record snapshot")
		}
	}
}

// Close writes what is queued, then closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.db.Close()
}

// Flush waits until every snapshot queued so far is written.
func (s *Store) Flush() {
	j := job{flushed: make(chan struct{})}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue <- j
	s.mu.Unlock()
	<-j.flushed
}

// DB exposes the handle for the admin routes.
func (s *Store) DB() *sql.DB { return s.db }

// Record stores one snapshot for dev.
func (s *Store) Record(ctx context.Context, dev string, snap *state.Snapshot) error {
	vals, err := json.Marshal(snap.Object())
	if err != nil {
		return fmt.Errorf("history: encode values: %w", err)
	}
	groups, err := json.Marshal(status.Encode(snap.Groups()))
	if err != nil {
		return fmt.Errorf("history: encode groups: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO snapshots (device, at, fields, group_status) VALUES (?, ?, ?, ?)",
		dev, snap.At().UnixNano(), string(vals), string(groups))
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}

	if s.keep > 0 {
		if _, err := s.prune(ctx, dev, s.keep); err != nil {
			return err
		}
	}
	return nil
}

// ClampLimit maps a requested row count onto [1, MaxLimit]; 0 or less
// means DefaultLimit.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// Recent returns up to limit entries for dev, newest first.
func (s *Store) Recent(ctx context.Context, dev string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT at, fields, group_status FROM snapshots WHERE device = ? ORDER BY at DESC, id DESC LIMIT ?",
		dev, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var at int64
		var vals, groups string
		if err := rows.Scan(&at, &vals, &groups); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e := Entry{At: time.Unix(0, at).UTC()}
		if err := json.Unmarshal([]byte(vals), &e.Values); err != nil {
			return nil, fmt.Errorf("history: decode values: %w", err)
		}
		if err := json.Unmarshal([]byte(groups), &e.Groups); err != nil {
			return nil, fmt.Errorf("history: decode groups: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return out, nil
}

// Prune drops all but the newest keep rows of dev.
func (s *Store) Prune(ctx context.Context, dev string, keep int) (int64, error) {
	return s.prune(ctx, dev, keep)
}

func (s *Store) prune(ctx context.Context, dev string, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE device = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE device = ? ORDER BY at DESC, id DESC LIMIT ?
		)`, dev, dev, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

// ObserveCycle queues snap for the writer and never waits on SQLite.
func (s *Store) ObserveCycle(dev string, _ time.Duration, snap *state.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- job{dev: dev, snap: snap}:
	default:
		s.dropped++
		if s.dropped == 1 || s.dropped%100 == 0 {
			s.log.Warn().Int("dropped", s.dropped).Str("device", dev).Msg("history queue full, snapshot dropped")
		}
	}
}

func (s *Store) ObserveRead(string, string, error)    {}
func (s *Store) ObserveCommand(string, string, string) {}
func (s *Store) ObservePatch(string, string)           {}

// internal/history/store_test.go
package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/fieldbus-bridge/internal/state"
	"github.com/tamzrod/fieldbus-bridge/internal/status"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

func openTemp(t *testing.T, keep int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), keep)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func snapAt(at time.Time, distance float64) *state.Snapshot {
	return state.New(at, []string{"distance", "temperature"}, state.Values{
		"distance": state.Rounded(distance, 1),
	}, map[string]status.Snapshot{
		"measure": status.FromError(nil),
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", 0)
	assert.Error(t, err)
}

func TestRecordAndRecentNewestFirst(t *testing.T) {
	s := openTemp(t, 0)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, "urm15", snapAt(base.Add(time.Duration(i)*time.Second), 100+float64(i))))
	}
	require.NoError(t, s.Record(ctx, "fs50l", snapAt(base, 1)))

	got, err := s.Recent(ctx, "urm15", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, base.Add(2*time.Second), got[0].At)
	assert.Equal(t, 102.0, got[0].Values["distance"])
	assert.Nil(t, got[0].Values["temperature"])
	assert.Contains(t, got[0].Values, "temperature")
	assert.Equal(t, map[string]any{"health": "OK", "lastError": "NONE"}, got[0].Groups["measure"])
	assert.Equal(t, 101.0, got[1].Values["distance"])
}

func TestRecentUnknownDeviceIsEmpty(t *testing.T) {
	s := openTemp(t, 0)
	got, err := s.Recent(context.Background(), "nope", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestKeepPrunesPerDevice(t *testing.T) {
	s := openTemp(t, 2)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, "a", snapAt(base.Add(time.Duration(i)*time.Millisecond), float64(i))))
	}
	require.NoError(t, s.Record(ctx, "b", snapAt(base, 9)))

	got, err := s.Recent(ctx, "a", MaxLimit)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4.0, got[0].Values["distance"])

	got, err = s.Recent(ctx, "b", MaxLimit)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPrune(t *testing.T) {
	s := openTemp(t, 0)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Record(ctx, "a", snapAt(time.Now(), float64(i))))
	}
	n, err := s.Prune(ctx, "a", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestObserveCycleRecordsFaults(t *testing.T) {
	s := openTemp(t, 0)
	snap := state.New(time.Now(), []string{"distance"}, nil, map[string]status.Snapshot{
		"measure": status.FromError(transport.ErrTimeout),
	})
	s.ObserveCycle("urm15", time.Millisecond, snap)
	s.Flush()

	got, err := s.Recent(context.Background(), "urm15", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Values["distance"])
	assert.Equal(t, map[string]any{"health": "FAULT", "lastError": "TIMEOUT"}, got[0].Groups["measure"])
}

func TestObserveCycleDoesNotWaitForDatabase(t *testing.T) {
	s := openTemp(t, 0)

	// the only connection is busy until the transaction ends
	tx, err := s.DB().Begin()
	require.NoError(t, err)

	returned := make(chan struct{})
	go func() {
		for i := 0; i < queueSize+10; i++ {
			s.ObserveCycle("urm15", time.Millisecond, snapAt(time.Now(), float64(i)))
		}
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("ObserveCycle blocked on a busy database")
	}

	s.mu.Lock()
	assert.Positive(t, s.dropped)
	s.mu.Unlock()

	require.NoError(t, tx.Rollback())
	s.Flush()

	got, err := s.Recent(context.Background(), "urm15", MaxLimit)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestCloseWritesQueuedSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.ObserveCycle("urm15", time.Millisecond, snapAt(time.Now(), float64(i)))
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	s.ObserveCycle("urm15", time.Millisecond, snapAt(time.Now(), 9))

	s, err = Open(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Recent(context.Background(), "urm15", 0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}

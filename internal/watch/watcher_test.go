package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32

	w, err := New([]string{dir}, 50*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte("fn main() {}"), 0o644))

	require.Eventually(t, func() bool {
		return runs.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32

	w, err := New([]string{dir}, 200*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// A burst of writes inside the debounce window yields a single run.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte{byte(i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// Allow any stray timer to fire, then confirm no extra runs accumulated.
	time.Sleep(400 * time.Millisecond)
	require.Equal(t, int32(1), runs.Load())
}

func TestWatcherMissingPath(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "missing")}, time.Second, func(context.Context) {})
	require.NoError(t, err)
	defer w.Close()

	require.Error(t, w.Start(context.Background()))
}

func TestSchedulerRunsPeriodicTask(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)

	var runs atomic.Int32
	id, err := s.SchedulePeriodicDeploy(50*time.Millisecond, func() {
		runs.Add(1)
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s.Start()
	defer func() {
		require.NoError(t, s.Stop())
	}()

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 5*time.Second, 10*time.Millisecond)
}

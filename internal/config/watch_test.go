package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchAppliesValidChangesAndSkipsBrokenOnes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"gate":{"threshold":0.03}}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		applied []float64
	)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(loaded Loaded) {
			mu.Lock()
			defer mu.Unlock()
			applied = append(applied, loaded.Config.Gate.Threshold)
		})
	}()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(applied)
	}

	// The watcher registers asynchronously; keep rewriting until it notices.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"gate":{"threshold":0.07}}`), 0o600)
		return count() > 0
	}, 5*time.Second, 200*time.Millisecond)

	mu.Lock()
	require.Equal(t, 0.07, applied[len(applied)-1])
	mu.Unlock()

	before := count()
	require.NoError(t, os.WriteFile(path, []byte(`{"gate":{"threshold":7}}`), 0o600))
	time.Sleep(400 * time.Millisecond)
	require.Equal(t, before, count())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchMissingDirectoryFails(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "config.jsonc"), nil, func(Loaded) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "watch config dir")
}

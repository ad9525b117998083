package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientdesk/internal/domain/port/driven"
)

func lockPathIn(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "clients.json.lock")
}

func TestAcquireLock_CreatesMarkerWithPid(t *testing.T) {
	path := lockPathIn(t)

	require.NoError(t, acquireLock(context.Background(), path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))

	releaseLock(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireLock_WaitsForRelease(t *testing.T) {
	path := lockPathIn(t)

	require.NoError(t, acquireLock(context.Background(), path))

	go func() {
		time.Sleep(50 * time.Millisecond)
		releaseLock(path)
	}()

	start := time.Now()
	require.NoError(t, acquireLock(context.Background(), path))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond, "second acquire should have backed off at least once")

	releaseLock(path)
}

func TestAcquireLock_ReclaimsStaleMarker(t *testing.T) {
	path := lockPathIn(t)

	// Simulate a crashed holder: marker exists but is older than the
	// staleness threshold.
	require.NoError(t, os.WriteFile(path, []byte("99999"), 0o644))
	old := time.Now().Add(-lockStaleAfter - time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	start := time.Now()
	require.NoError(t, acquireLock(context.Background(), path))
	assert.Less(t, time.Since(start), lockBaseDelay, "stale marker should be reclaimed without backing off")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content), "reclaimer stamps its own pid")

	releaseLock(path)
}

func TestAcquireLock_ContextCancelled(t *testing.T) {
	path := lockPathIn(t)

	require.NoError(t, acquireLock(context.Background(), path))
	defer releaseLock(path)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := acquireLock(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireLock_GivesUpOnLiveHolder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow lock-contention test in short mode")
	}

	path := lockPathIn(t)
	require.NoError(t, acquireLock(context.Background(), path))
	defer releaseLock(path)

	// Keep the marker fresh so the staleness escape hatch never fires,
	// mimicking a live holder that simply won't let go.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now()
				_ = os.Chtimes(path, now, now)
			case <-stop:
				return
			}
		}
	}()

	err := acquireLock(context.Background(), path)
	assert.ErrorIs(t, err, driven.ErrStoreUnavailable)
}

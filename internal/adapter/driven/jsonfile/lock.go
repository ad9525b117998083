package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"clientdesk/internal/domain/port/driven"
)

const (
	// A holder that keeps the marker longer than this is presumed crashed
	// and its lock is forcibly reclaimed.
	lockStaleAfter = 5 * time.Second

	lockMaxAttempts = 20
	lockBaseDelay   = 15 * time.Millisecond
	lockBackoffCap  = 32 // caps the 2^attempt factor
)

// acquireLock claims the exclusive write marker at path by creating it with
// O_EXCL. The marker contains the holder pid, for diagnostics only. On
// contention it backs off exponentially with jitter; a marker older than
// lockStaleAfter is removed and retried immediately. Exhausting the retry
// budget yields driven.ErrStoreUnavailable.
func acquireLock(ctx context.Context, path string) error {
	for attempt := 0; attempt < lockMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			return f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create lock %s: %w", path, err)
		}

		// Marker exists. Reclaim it if its holder looks dead.
		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			_ = os.Remove(path)
			continue
		}

		factor := 1 << attempt
		if factor > lockBackoffCap {
			factor = lockBackoffCap
		}
		delay := time.Duration(factor)*lockBaseDelay + time.Duration(rand.Int63n(int64(lockBaseDelay)))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("lock %s still held after %d attempts: %w", path, lockMaxAttempts, driven.ErrStoreUnavailable)
}

// releaseLock removes the marker. Best effort: if removal fails the marker
// goes stale and the next writer reclaims it via the staleness check.
func releaseLock(path string) {
	_ = os.Remove(path)
}

package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/espalier/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLocks serializes computations of the same fingerprint. Entries are
// reference counted and dropped once nobody holds or waits for them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[ports.Fingerprint]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[ports.Fingerprint]*lockEntry)}
}

// acquire gets or creates the entry for fp and increments its reference
// count. The caller must lock entry.mu and call release(fp) after unlocking.
func (k *keyLocks) acquire(fp ports.Fingerprint) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.locks[fp]
	if !ok {
		entry = &lockEntry{}
		k.locks[fp] = entry
	}
	entry.refs++
	return entry
}

func (k *keyLocks) release(fp ports.Fingerprint) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.locks[fp]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(k.locks, fp)
	}
}

func (k *keyLocks) active() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// withLock runs fn holding the in-process lock for fp and, if configured,
// the distributed lock.
func (k *keyLocks) withLock(ctx context.Context, fp ports.Fingerprint, fn func(context.Context) error) error {
	entry := k.acquire(fp)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		k.release(fp)
	}()

	if k.locker != nil {
		unlock, err := k.locker.Lock(ctx, string(fp), k.ttl)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				k.logger.Warn("failed to release distributed lock", "fingerprint", fp, "err", err)
			}
		}()
	}
	return fn(ctx)
}

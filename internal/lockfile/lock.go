package lockfile

import (
	"context"

	"github.com/gofrs/flock"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// lockSuffix names the advisory lock file kept alongside the lockfile
// itself, held for the duration of a resolve-then-write sequence so two
// concurrent `up` invocations against the same workspace don't race each
// other's writes.
const lockSuffix = ".lock"

// WithWriteLock runs fn while holding an exclusive advisory lock on the
// lockfile path, so concurrent resolve+write sequences against the same
// devcontainer config serialize instead of tearing each other's writes.
func WithWriteLock(ctx context.Context, configPath string, fn func() error) error {
	fl := flock.New(GetPath(configPath) + lockSuffix)

	locked, err := fl.TryLockContext(ctx, 0)
	if err != nil {
		return coreerrors.Internal("failed to acquire lockfile lock", err)
	}
	if !locked {
		return coreerrors.Internal("lockfile is held by another process", nil)
	}
	defer fl.Unlock()

	return fn()
}

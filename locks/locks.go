// Package locks provides per-package mutual exclusion for the
// ingest stages.
package locks

import (
	"fmt"
)

// Service hands out one exclusive lock per package reference.
// Locks are not reentrant: a goroutine that acquires a lock it
// already holds will block forever.
type Service interface {
	Acquire(ref string) error
	Release(ref string) error
}

// WithLock runs fn while holding ref's lock, and releases the lock
// however fn returns. An error from fn takes precedence over an
// error releasing the lock.
func WithLock(svc Service, ref string, fn func() error) (err error) {
	if err = svc.Acquire(ref); err != nil {
		return fmt.Errorf("Cannot lock package %s: %v", ref, err)
	}
	defer func() {
		releaseErr := svc.Release(ref)
		if err == nil && releaseErr != nil {
			err = fmt.Errorf("Cannot unlock package %s: %v", ref, releaseErr)
		}
	}()
	return fn()
}

package locks

import (
	"crypto/sha1"
	"fmt"
	"github.com/gofrs/flock"
	"os"
	"path/filepath"
	"sync"
)

/*
FileLockService locks packages with flock(2) lock files in a
directory, so processes sharing a staging directory exclude each
other as well as goroutines in the same process. Lock files are
named for the SHA-1 of the package reference and are left in place
after release.
*/
type FileLockService struct {
	dir   string
	mutex sync.Mutex
	held  map[string]*flock.Flock
}

// NewFileLockService creates dir if it does not exist.
func NewFileLockService(dir string) (*FileLockService, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileLockService{
		dir:  dir,
		held: make(map[string]*flock.Flock),
	}, nil
}

// LockFile returns the path of ref's lock file.
func (svc *FileLockService) LockFile(ref string) string {
	return filepath.Join(svc.dir, fmt.Sprintf("%x.lock", sha1.Sum([]byte(ref))))
}

func (svc *FileLockService) Acquire(ref string) error {
	if ref == "" {
		return fmt.Errorf("Param ref cannot be empty.")
	}
	lock := flock.New(svc.LockFile(ref))
	if err := lock.Lock(); err != nil {
		return err
	}
	svc.mutex.Lock()
	svc.held[ref] = lock
	svc.mutex.Unlock()
	return nil
}

func (svc *FileLockService) Release(ref string) error {
	svc.mutex.Lock()
	lock, ok := svc.held[ref]
	if ok {
		delete(svc.held, ref)
	}
	svc.mutex.Unlock()
	if !ok {
		return fmt.Errorf("Package %s is not locked", ref)
	}
	return lock.Unlock()
}

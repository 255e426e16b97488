package locks

import (
	"fmt"
	"sync"
)

type memoryLock struct {
	held    chan struct{}
	waiters int
}

// MemoryLockService locks packages within a single process.
type MemoryLockService struct {
	mutex sync.Mutex
	locks map[string]*memoryLock
}

func NewMemoryLockService() *MemoryLockService {
	return &MemoryLockService{
		locks: make(map[string]*memoryLock),
	}
}

func (svc *MemoryLockService) Acquire(ref string) error {
	if ref == "" {
		return fmt.Errorf("Param ref cannot be empty.")
	}
	svc.mutex.Lock()
	lock, ok := svc.locks[ref]
	if !ok {
		lock = &memoryLock{held: make(chan struct{}, 1)}
		svc.locks[ref] = lock
	}
	lock.waiters++
	svc.mutex.Unlock()

	lock.held <- struct{}{}
	return nil
}

func (svc *MemoryLockService) Release(ref string) error {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	lock, ok := svc.locks[ref]
	if !ok {
		return fmt.Errorf("Package %s is not locked", ref)
	}
	select {
	case <-lock.held:
	default:
		return fmt.Errorf("Package %s is not locked", ref)
	}
	lock.waiters--
	if lock.waiters == 0 {
		delete(svc.locks, ref)
	}
	return nil
}

// IsLocked returns true if some goroutine holds ref's lock.
func (svc *MemoryLockService) IsLocked(ref string) bool {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	lock, ok := svc.locks[ref]
	return ok && len(lock.held) > 0
}

package concurrency

import (
	"strconv"
	"sync"
)

// LockManager hands out one mutex per key.
type LockManager struct {
	locks sync.Map
}

// NewLockManager creates a new LockManager
func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock returns the mutex for the given key
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// UserLock returns the mutex guarding a user's ledger.
func (lm *LockManager) UserLock(userID int64) *sync.Mutex {
	return lm.GetLock("user:" + strconv.FormatInt(userID, 10))
}

package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockManager_SameKeySameMutex(t *testing.T) {
	lm := NewLockManager()
	assert.Same(t, lm.GetLock("a"), lm.GetLock("a"))
	assert.NotSame(t, lm.GetLock("a"), lm.GetLock("b"))
	assert.Same(t, lm.UserLock(7), lm.GetLock("user:7"))
}

func TestLockManager_SerializesPerKey(t *testing.T) {
	lm := NewLockManager()
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu := lm.UserLock(1)
			mu.Lock()
			defer mu.Unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

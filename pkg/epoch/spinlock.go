// pkg/epoch/spinlock.go
package epoch

import (
	"runtime"
	"sync/atomic"
)

// spinLock guards the manager's thread registry across Register/Deregister,
// a single map mutation held only briefly.
type spinLock struct {
	held int32
}

func (s *spinLock) Lock() {
	for !atomic.CompareAndSwapInt32(&s.held, 0, 1) {
		runtime.Gosched()
	}
}

func (s *spinLock) Unlock() {
	atomic.StoreInt32(&s.held, 0)
}

// pkg/epoch/slot.go
package epoch

import "sync/atomic"

// RingSize is the number of slots in a worker's epoch ring. Epochs are
// densely numbered and addressed modulo this size, so a transaction that
// outlives RingSize ticks of the global driver overruns the ring.
const RingSize = 4096

// Uninitialized is the sentinel tail value for a LocalEpochContext that has
// never entered a transaction and never been resynced by the reducer.
const Uninitialized = ^uint64(0)

// epochSlot is a single cell in a worker's ring, addressed by epoch id
// modulo RingSize. rw counts live read-write transactions in the slot; ro
// is a structural ghost counter for a future read-only reclamation policy
// and never gates tail advance.
type epochSlot struct {
	rw int64
	ro int64
}

func (s *epochSlot) enterRW() { atomic.AddInt64(&s.rw, 1) }
func (s *epochSlot) exitRW()  { atomic.AddInt64(&s.rw, -1) }
func (s *epochSlot) empty() bool {
	return atomic.LoadInt64(&s.rw) == 0
}

func (s *epochSlot) enterRO() { atomic.AddInt64(&s.ro, 1) }
func (s *epochSlot) exitRO()  { atomic.AddInt64(&s.ro, -1) }

// readWriteCount and readOnlyCount exist for introspection (tests, stats)
// and are not on any hot path.
func (s *epochSlot) readWriteCount() int64 { return atomic.LoadInt64(&s.rw) }
func (s *epochSlot) readOnlyCount() int64  { return atomic.LoadInt64(&s.ro) }

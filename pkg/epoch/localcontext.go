// pkg/epoch/localcontext.go
package epoch

import (
	"fmt"
	"sync/atomic"
)

// LocalEpochContext is the per-worker-thread slice of the decentralized
// epoch manager: a ring of RingSize slots tracking, for this thread alone,
// the highest epoch entered (head) and the highest epoch known to hold no
// live read-write transaction (tail). A worker mutates its own ring on
// Enter/Exit; the reducer (on behalf of memory reclamation) may observe
// and advance it remotely through ResyncAndAdvance.
type LocalEpochContext struct {
	ring [RingSize]epochSlot

	head uint64 // atomic: largest epoch this thread has entered
	tail uint64 // atomic: largest epoch proven empty of rw work; Uninitialized until first use
}

// NewLocalEpochContext creates a context in the Uninitialized state.
func NewLocalEpochContext() *LocalEpochContext {
	return &LocalEpochContext{tail: Uninitialized}
}

// Head returns the highest epoch this thread has entered.
func (c *LocalEpochContext) Head() uint64 {
	return atomic.LoadUint64(&c.head)
}

// Tail returns the highest epoch this thread guarantees holds no in-flight
// read-write transaction. Alias of SnapshotTail for call sites that just
// want the current value without invoking it as an explicit "snapshot".
func (c *LocalEpochContext) Tail() uint64 {
	return atomic.LoadUint64(&c.tail)
}

// SnapshotTail returns the current tail. The reducer calls it immediately
// after ResyncAndAdvance, which itself returns nothing; the value is a
// separate atomic load of the field, and since an active tail only moves
// forward it is never behind what that ResyncAndAdvance left it at.
func (c *LocalEpochContext) SnapshotTail() uint64 {
	return atomic.LoadUint64(&c.tail)
}

// claimUninitialized performs the Uninitialized -> Active transition via
// CAS. It is invoked both from EnterLocalEpoch (the owner's first
// transaction) and from ResyncAndAdvance (the reducer catching up an idle
// thread); whichever wins is fine, per the design's explicit tolerance for
// this race.
func (c *LocalEpochContext) claimUninitialized(newTail uint64) {
	atomic.CompareAndSwapUint64(&c.tail, Uninitialized, newTail)
}

// EnterLocalEpoch records that the owner thread is beginning a read-write
// transaction in epoch e. It refuses (returning false) if a concurrent
// reducer resync has already pulled head past e; the caller must re-sample
// the global epoch and retry. Panics if the ring invariant (head-tail <=
// RingSize) would be violated, which indicates a transaction that outlived
// the ring or a stalled worker.
func (c *LocalEpochContext) EnterLocalEpoch(e uint64) bool {
	if atomic.LoadUint64(&c.tail) == Uninitialized {
		c.claimUninitialized(e - 1)
	}

	if e < atomic.LoadUint64(&c.head) {
		return false
	}

	tail := atomic.LoadUint64(&c.tail)
	if e-tail > RingSize {
		panic(fmt.Sprintf("epoch: ring exhausted: entering epoch %d with tail %d exceeds RingSize %d", e, tail, RingSize))
	}

	atomic.StoreUint64(&c.head, e)
	c.ring[e%RingSize].enterRW()
	return true
}

// ExitLocalEpoch records that the owner thread's read-write transaction in
// epoch e has ended, then attempts to slide the local tail forward.
func (c *LocalEpochContext) ExitLocalEpoch(e uint64) {
	tail := atomic.LoadUint64(&c.tail)
	if tail == Uninitialized {
		panic("epoch: ExitLocalEpoch called before any EnterLocalEpoch")
	}
	if e <= tail {
		panic(fmt.Sprintf("epoch: ExitLocalEpoch(%d) at or behind tail %d", e, tail))
	}

	c.ring[e%RingSize].exitRW()
	c.AdvanceTail()
}

// AdvanceTail slides tail forward while the next slot is empty, stopping at
// the first non-empty slot or at head-1. It is safe to call concurrently
// from the owner (via ExitLocalEpoch) and the reducer (via
// ResyncAndAdvance): the tail update is a CAS loop so a racing caller never
// clobbers progress made by the other.
func (c *LocalEpochContext) AdvanceTail() {
	for {
		tail := atomic.LoadUint64(&c.tail)
		head := atomic.LoadUint64(&c.head)
		if head == 0 || tail >= head-1 {
			return
		}
		next := tail + 1
		if !c.ring[next%RingSize].empty() {
			return
		}
		if atomic.CompareAndSwapUint64(&c.tail, tail, next) {
			continue
		}
		// Lost the race to a concurrent advancer (owner or reducer); the
		// winner made the same forward progress we wanted, so just retry
		// from the new tail.
	}
}

// ResyncAndAdvance is invoked by the reducer on behalf of this context. It
// pulls head forward to the current global epoch (even for a thread that
// has been idle), lazily activates an Uninitialized context, and then
// advances tail. This is what lets an idle thread's tail track the global
// watermark instead of pinning reclamation forever.
//
// head is advanced via max(head, currentGlobalEpoch) rather than an
// unconditional overwrite, so it never moves backward even if the
// single-driver invariant is ever violated.
func (c *LocalEpochContext) ResyncAndAdvance(currentGlobalEpoch uint64) {
	for {
		head := atomic.LoadUint64(&c.head)
		if head >= currentGlobalEpoch {
			break
		}
		if atomic.CompareAndSwapUint64(&c.head, head, currentGlobalEpoch) {
			break
		}
	}

	if atomic.LoadUint64(&c.tail) == Uninitialized {
		c.claimUninitialized(currentGlobalEpoch - 1)
	}

	c.AdvanceTail()
}

// EnterReadOnly and ExitReadOnly manipulate the per-slot read-only ghost
// counters. They are structurally identical to their read-write
// counterparts but never participate in tail computation: a non-zero
// read-only count never blocks AdvanceTail. The fields are retained so a
// future reclamation policy can layer a distinct read-only watermark on
// top of this slot layout without changing its ABI.
func (c *LocalEpochContext) EnterReadOnly(e uint64) {
	c.ring[e%RingSize].enterRO()
}

func (c *LocalEpochContext) ExitReadOnly(e uint64) {
	c.ring[e%RingSize].exitRO()
}

// pkg/epoch/manager.go
package epoch

import (
	"sync"
	"sync/atomic"
	"time"
)

// Config tunes a Manager. The zero value is valid and uses DefaultEpochLength.
type Config struct {
	// EpochLength is the wall-clock interval the driver ticks at.
	EpochLength time.Duration
}

// Manager is the Decentralized Epoch Manager: the process-wide façade over
// the global epoch counter, the registry of per-thread LocalEpochContexts,
// and the transaction-id allocator. It is meant to be initialized once,
// before any worker registers, and shared by reference (dependency
// injection or a process-wide handle) rather than lazily constructed on
// first use from multiple goroutines.
type Manager struct {
	globalEpoch uint64 // atomic, starts at 1
	nextTxnID   uint32 // atomic, relaxed; wraps, uniqueness comes from the epoch high bits

	registryLock spinLock
	contexts     sync.Map // uint64 thread id -> *LocalEpochContext

	running int32 // atomic bool
	driver  *globalDriver
	length  time.Duration

	metrics *Metrics
}

// NewManager creates a Manager with the global epoch initialized to 1 and
// no threads registered. The driver is not started; call StartEpoch.
func NewManager(cfg Config) *Manager {
	length := cfg.EpochLength
	if length <= 0 {
		length = DefaultEpochLength
	}
	return &Manager{
		globalEpoch: 1,
		length:      length,
		metrics:     newMetrics(),
	}
}

// Metrics returns the manager's Prometheus metrics, for mounting behind an
// HTTP handler in the host process.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// RegisterThread creates a fresh LocalEpochContext for tid. The caller must
// call it before tid's first Enter, and must never register the same tid
// twice concurrently.
func (m *Manager) RegisterThread(tid uint64) {
	m.registryLock.Lock()
	defer m.registryLock.Unlock()

	m.contexts.Store(tid, NewLocalEpochContext())
	m.metrics.registeredThreads.Inc()
}

// DeregisterThread destroys tid's context. The caller must ensure this
// happens-after tid's last Exit has returned.
func (m *Manager) DeregisterThread(tid uint64) {
	m.registryLock.Lock()
	defer m.registryLock.Unlock()

	if _, ok := m.contexts.Load(tid); ok {
		m.contexts.Delete(tid)
		m.metrics.registeredThreads.Dec()
	}
}

func (m *Manager) contextFor(tid uint64) *LocalEpochContext {
	v, ok := m.contexts.Load(tid)
	if !ok {
		panic(ErrThreadNotRegistered)
	}
	return v.(*LocalEpochContext)
}

// Enter begins a read-write transaction on behalf of thread tid and returns
// its composite id. It samples the global epoch, attempts to enter the
// owning thread's local epoch, and retries on the rare refusal caused by a
// reducer resync racing the sample; the retry is invisible to the caller.
func (m *Manager) Enter(tid uint64) CID {
	ctx := m.contextFor(tid)
	for {
		e := atomic.LoadUint64(&m.globalEpoch)
		if !ctx.EnterLocalEpoch(e) {
			continue
		}
		seq := atomic.AddUint32(&m.nextTxnID, 1) - 1
		return EncodeCID(e, seq)
	}
}

// Stamp returns a fresh CID from the current global epoch without pinning
// the reclamation watermark. It is meant for callers that need a
// monotonically ordered timestamp — for example a transaction's commit
// point — without the lifetime of an Enter/Exit pair.
func (m *Manager) Stamp() CID {
	e := atomic.LoadUint64(&m.globalEpoch)
	seq := atomic.AddUint32(&m.nextTxnID, 1) - 1
	return EncodeCID(e, seq)
}

// Exit ends the read-write transaction identified by cid on thread tid.
func (m *Manager) Exit(tid uint64, cid CID) {
	ctx := m.contextFor(tid)
	ctx.ExitLocalEpoch(cid.Epoch())
}

// GlobalTailEpoch is the reclamation reducer: it resyncs every registered
// context against the current global epoch, and returns the minimum of
// their tails — the epoch below which no in-flight read-write transaction
// on any thread can still observe prior state. With no registered
// contexts it returns math.MaxUint64.
func (m *Manager) GlobalTailEpoch() uint64 {
	g := atomic.LoadUint64(&m.globalEpoch)

	min := ^uint64(0)
	m.contexts.Range(func(_, v any) bool {
		ctx := v.(*LocalEpochContext)
		ctx.ResyncAndAdvance(g)
		tail := ctx.SnapshotTail()
		if tail < min {
			min = tail
		}
		return true
	})

	m.metrics.globalEpoch.Set(float64(g))
	m.metrics.tailEpoch.Set(float64(min))
	return min
}

// StartEpoch launches the global driver if it is not already running. It
// is a no-op if the driver is already running.
func (m *Manager) StartEpoch() {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return
	}
	m.driver = newGlobalDriver(&m.globalEpoch, m.length, func(e uint64) {
		m.metrics.globalEpoch.Set(float64(e))
	})
	m.driver.start()
}

// StopEpoch stops the global driver. It is a no-op if the driver is not
// running.
func (m *Manager) StopEpoch() {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return
	}
	m.driver.stop()
}

// Running reports whether the global driver is currently running.
func (m *Manager) Running() bool {
	return atomic.LoadInt32(&m.running) == 1
}

// CurrentEpoch returns the current global epoch.
func (m *Manager) CurrentEpoch() uint64 {
	return atomic.LoadUint64(&m.globalEpoch)
}

// Reset administratively overwrites the global epoch. It is only valid
// while the driver is stopped and no thread is registered; using it to
// move the epoch backwards during normal operation breaks the monotone
// global epoch invariant every other guarantee in this package depends on.
func (m *Manager) Reset(e uint64) error {
	if m.Running() {
		return ErrResetWhileRunning
	}

	empty := true
	m.contexts.Range(func(_, _ any) bool {
		empty = false
		return false
	})
	if !empty {
		return ErrResetWithContexts
	}

	atomic.StoreUint64(&m.globalEpoch, e)
	return nil
}

// pkg/mvcc/manager.go
package mvcc

import (
	"sync"
	"sync/atomic"

	"tur/pkg/epoch"
)

// TransactionManager manages all transactions in the database. Each active
// transaction is registered with a Decentralized Epoch Manager for the
// duration of its lifetime: Begin enters the epoch that becomes the
// transaction's snapshot, and Commit/Rollback exit it. A transaction held
// open pins the epoch watermark exactly as it pins version visibility,
// so the same mechanism that orders transactions also bounds reclamation.
type TransactionManager struct {
	mu           sync.RWMutex
	transactions map[uint64]*Transaction // All transactions by ID
	nextTxID     uint64                  // Next transaction ID (atomic), doubles as epoch thread id

	epoch *epoch.Manager
}

// NewTransactionManager creates a new transaction manager with its epoch
// driver running at the default tick interval.
func NewTransactionManager() *TransactionManager {
	m := &TransactionManager{
		transactions: make(map[uint64]*Transaction),
		nextTxID:     1,
		epoch:        epoch.NewManager(epoch.Config{}),
	}
	m.epoch.StartEpoch()
	return m
}

// Close stops the epoch driver. It does not touch any transactions still
// registered; callers should commit or roll back everything first.
func (m *TransactionManager) Close() {
	m.epoch.StopEpoch()
}

// Begin starts a new transaction and returns it. The transaction's start
// timestamp is the CID of the epoch it entered, so StartTS and CommitTS
// share one monotone ordering space.
func (m *TransactionManager) Begin() *Transaction {
	tid := atomic.AddUint64(&m.nextTxID, 1) - 1

	m.epoch.RegisterThread(tid)
	cid := m.epoch.Enter(tid)

	tx := NewTransaction(tid, cid)

	m.mu.Lock()
	m.transactions[tid] = tx
	m.mu.Unlock()

	return tx
}

// Commit commits a transaction, stamping it with a fresh CID and releasing
// its pin on the epoch watermark.
func (m *TransactionManager) Commit(tx *Transaction) error {
	if !tx.IsActive() {
		return ErrTxNotActive
	}

	commitCID := m.epoch.Stamp()
	if err := tx.Commit(commitCID); err != nil {
		return err
	}

	m.epoch.Exit(tx.ID(), tx.StartTS())
	m.epoch.DeregisterThread(tx.ID())
	return nil
}

// Rollback aborts a transaction, releasing its pin on the epoch watermark
// without assigning it a commit timestamp.
func (m *TransactionManager) Rollback(tx *Transaction) error {
	if !tx.IsActive() {
		return ErrTxNotActive
	}

	tx.Abort()
	m.epoch.Exit(tx.ID(), tx.StartTS())
	m.epoch.DeregisterThread(tx.ID())
	return nil
}

// GetTransaction returns a transaction by ID
func (m *TransactionManager) GetTransaction(txID uint64) *Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[txID]
}

// ActiveTransactions returns all currently active transactions
func (m *TransactionManager) ActiveTransactions() []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*Transaction
	for _, tx := range m.transactions {
		if tx.IsActive() {
			active = append(active, tx)
		}
	}
	return active
}

// CurrentTimestamp returns a fresh logical timestamp from the epoch manager.
// Unlike StartTS/CommitTS it is not tied to any transaction's lifetime.
func (m *TransactionManager) CurrentTimestamp() uint64 {
	return uint64(m.epoch.Stamp())
}

// MinActiveTimestamp returns the minimum start CID of all active
// transactions, as a raw uint64, by scanning the transaction table
// directly. This is exact but O(n) in the number of tracked transactions;
// EpochWatermark gives an epoch-granularity approximation, scanning only the
// epoch manager's registry of open transactions, suitable for routine pruning.
func (m *TransactionManager) MinActiveTimestamp() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	min := epoch.CID(^uint64(0)) // Max uint64

	for _, tx := range m.transactions {
		if tx.IsActive() {
			if startTS := tx.StartTS(); startTS.Before(min) {
				min = startTS
			}
		}
	}

	return uint64(min)
}

// EpochWatermark returns the Decentralized Epoch Manager's current global
// tail epoch: the epoch below which no registered transaction can still be
// holding a snapshot. It is the preferred input to PruneOldVersions, since
// it costs a registry scan rather than a lock over the full transaction
// table, at the price of epoch- rather than transaction-granularity.
func (m *TransactionManager) EpochWatermark() uint64 {
	return m.epoch.GlobalTailEpoch()
}

// CleanupOldTransactions removes transactions that are no longer needed
// This should be called periodically to free memory
func (m *TransactionManager) CleanupOldTransactions(minTS uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for txID, tx := range m.transactions {
		// Only cleanup committed/aborted transactions older than minTS
		if !tx.IsActive() && uint64(tx.CommitTS()) < minTS {
			delete(m.transactions, txID)
			count++
		}
	}
	return count
}

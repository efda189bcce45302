// pkg/mvcc/store.go
package mvcc

import (
	"errors"
	"sync"
)

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrWriteConflict = errors.New("write-write conflict detected")
)

// VersionedStore provides MVCC-based transactional access to an in-memory
// set of version chains. Persistence is an external collaborator's concern;
// this store only owns visibility and reclamation.
type VersionedStore struct {
	mu            sync.RWMutex
	txManager     *TransactionManager
	versionChains map[string]*VersionChain // Key -> version chain
}

// StoreStats contains statistics about the store
type StoreStats struct {
	ActiveTransactions int
	TotalVersionChains int
}

// NewVersionedStore creates a new versioned store.
func NewVersionedStore() *VersionedStore {
	return &VersionedStore{
		txManager:     NewTransactionManager(),
		versionChains: make(map[string]*VersionChain),
	}
}

// Close stops the store's transaction manager's epoch driver.
func (s *VersionedStore) Close() {
	s.txManager.Close()
}

// Begin starts a new transaction
func (s *VersionedStore) Begin() *Transaction {
	return s.txManager.Begin()
}

// Commit commits a transaction
func (s *VersionedStore) Commit(tx *Transaction) error {
	if !tx.IsActive() {
		return ErrTxNotActive
	}

	return s.txManager.Commit(tx)
}

// Rollback aborts a transaction and discards its changes
func (s *VersionedStore) Rollback(tx *Transaction) error {
	if !tx.IsActive() {
		return ErrTxNotActive
	}

	// Mark versions created by this transaction as aborted
	s.rollbackVersions(tx)

	return s.txManager.Rollback(tx)
}

// rollbackVersions marks each chain's head version, if created by the
// transaction, as deleted; older versions it created are left unmarked
func (s *VersionedStore) rollbackVersions(tx *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txID := tx.ID()

	for _, chain := range s.versionChains {
		// Find version created by this transaction and remove it
		// We traverse the chain looking for versions created by this tx
		head := chain.Head()
		if head != nil && head.CreatedBy() == txID {
			// The head was created by this transaction - mark it as deleted
			// so it becomes invisible. In a real implementation, we might
			// actually remove it from the chain.
			head.MarkDeleted(txID)
		}
	}
}

// Get retrieves the value for a key, returning the version visible to the transaction
func (s *VersionedStore) Get(tx *Transaction, key []byte) ([]byte, error) {
	s.mu.RLock()
	chain := s.versionChains[string(key)]
	s.mu.RUnlock()

	if chain == nil {
		return nil, ErrKeyNotFound
	}

	// Find visible version
	version := FindVisibleVersion(chain, tx, s.txManager)
	if version == nil {
		return nil, ErrKeyNotFound
	}

	return version.Data(), nil
}

// Put stores a key-value pair, creating a new version. The conflict check
// and the chain mutation happen under the same lock, so a concurrent
// writer can never observe a head version this call hasn't accounted for.
func (s *VersionedStore) Put(tx *Transaction, key, value []byte) error {
	if !tx.IsActive() {
		return ErrTxNotActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keyStr := string(key)
	chain := s.versionChains[keyStr]
	if chain != nil {
		if err := s.detectConflict(chain, tx); err != nil {
			return err
		}
	} else {
		chain = NewVersionChain(key)
		s.versionChains[keyStr] = chain
	}

	version := NewRowVersion(value, tx.ID())
	chain.AddVersion(version)
	return nil
}

// Delete deletes a key
func (s *VersionedStore) Delete(tx *Transaction, key []byte) error {
	if !tx.IsActive() {
		return ErrTxNotActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keyStr := string(key)
	chain := s.versionChains[keyStr]
	if chain == nil {
		// Key doesn't exist - nothing to delete
		return nil
	}

	if err := s.detectConflict(chain, tx); err != nil {
		return err
	}

	// Find the visible version and mark it as deleted
	version := FindVisibleVersion(chain, tx, s.txManager)
	if version != nil {
		version.MarkDeleted(tx.ID())
	}

	return nil
}

// detectConflict reports a write-write conflict if chain's head was
// written by a different transaction that is still active. Once that
// writer commits or aborts, the head's creator stops being active and the
// next writer proceeds — the version chain is its own lock table, so
// there is no separate unlock step on commit or rollback.
func (s *VersionedStore) detectConflict(chain *VersionChain, tx *Transaction) error {
	head := chain.Head()
	if head == nil || head.CreatedBy() == tx.ID() {
		return nil
	}
	if creator := s.txManager.GetTransaction(head.CreatedBy()); creator != nil && creator.IsActive() {
		return ErrWriteConflict
	}
	return nil
}

// Stats returns statistics about the store
func (s *VersionedStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreStats{
		ActiveTransactions: len(s.txManager.ActiveTransactions()),
		TotalVersionChains: len(s.versionChains),
	}
}

// PruneVersions reclaims versions that cannot be visible to any registered
// transaction, using the epoch manager's global tail epoch directly as the
// reclamation horizon for PruneOldVersions.
func (s *VersionedStore) PruneVersions() int {
	horizon := s.txManager.EpochWatermark()

	s.mu.RLock()
	chains := make([]*VersionChain, 0, len(s.versionChains))
	for _, chain := range s.versionChains {
		chains = append(chains, chain)
	}
	s.mu.RUnlock()

	pruned := 0
	for _, chain := range chains {
		pruned += chain.PruneOldVersions(s.txManager, horizon)
	}
	return pruned
}

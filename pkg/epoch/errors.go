// pkg/epoch/errors.go
package epoch

import "errors"

// Errors returned on administrative misuse (Reset), plus the panic value for
// an unregistered thread. Programmer-contract violations
// (Enter before Register, ring exhaustion, Exit with a stale CID) are
// asserted via panic instead, since the design trades graceful recovery
// for branchless hot paths there; see LocalEpochContext.
var (
	// ErrThreadNotRegistered is the panic value when Enter or Exit is called
	// for a thread id that was never passed to RegisterThread, or was
	// already deregistered — a programmer-contract violation per category
	// (a), not a recoverable condition.
	ErrThreadNotRegistered = errors.New("epoch: thread not registered")

	// ErrResetWhileRunning is returned by Reset when the driver is running.
	ErrResetWhileRunning = errors.New("epoch: reset not permitted while the driver is running")

	// ErrResetWithContexts is returned by Reset when at least one worker
	// thread is still registered.
	ErrResetWithContexts = errors.New("epoch: reset not permitted while threads are registered")
)

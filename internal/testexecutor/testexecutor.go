// Package testexecutor is a deterministic fake model.Executor for tests
// that need a real apply/rewind round trip rather than a collaborator
// stub. No teacher package implements this: daglabs-btcd executes
// transactions itself rather than delegating to an external executor,
// so there is nothing to generalize from directly. Its shape instead
// follows the other in-memory test doubles in this core (blockstore's
// memory_backend, a guarded slice standing in for persistent state).
package testexecutor

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/pkg/errors"

	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// Executor is a model.Executor whose state root folds in every applied
// block's hash, and whose receipt root folds in the block's
// transaction IDs, so two independently-applied histories only agree
// when they applied the same blocks in the same order.
type Executor struct {
	mtx     sync.Mutex
	history []entry
}

type entry struct {
	hash        externalapi.DomainHash
	stateRoot   externalapi.DomainHash
	receiptRoot externalapi.DomainHash
}

// New returns an Executor with empty state.
func New() *Executor {
	return &Executor{}
}

// Apply implements model.Executor.
func (e *Executor) Apply(ctx context.Context, ordered *externalapi.BlockHeader) (externalapi.DomainHash, externalapi.DomainHash, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	var prevStateRoot externalapi.DomainHash
	if len(e.history) > 0 {
		prevStateRoot = e.history[len(e.history)-1].stateRoot
	}

	stateRoot, receiptRoot := ComputeRoots(prevStateRoot, ordered)
	e.history = append(e.history, entry{hash: ordered.Hash, stateRoot: stateRoot, receiptRoot: receiptRoot})
	return stateRoot, receiptRoot, nil
}

// Rewind implements model.Executor: truncates the applied history back
// to and including toHash.
func (e *Executor) Rewind(ctx context.Context, toHash *externalapi.DomainHash) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].hash == *toHash {
			e.history = e.history[:i+1]
			return nil
		}
	}
	return errors.Errorf("testexecutor: rewind target %s not found in applied history", toHash)
}

// StateRoot returns the root at the tip of the applied history, or the
// zero hash if nothing has been applied yet.
func (e *Executor) StateRoot() externalapi.DomainHash {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if len(e.history) == 0 {
		return externalapi.DomainHash{}
	}
	return e.history[len(e.history)-1].stateRoot
}

// ComputeRoots computes the (state_root, receipt_root) pair Apply would
// return for ordered given prevStateRoot, the predecessor's state root.
// Exported so test fixtures can pre-stamp a block's BodyCommitments to
// match what this executor will independently compute, the way a real
// block producer stamps commitments from its own execution.
func ComputeRoots(prevStateRoot externalapi.DomainHash, ordered *externalapi.BlockHeader) (stateRoot, receiptRoot externalapi.DomainHash) {
	state := sha256.New()
	state.Write(prevStateRoot[:])
	state.Write(ordered.Hash[:])
	copy(stateRoot[:], state.Sum(nil))

	receipts := sha256.New()
	receipts.Write(ordered.Hash[:])
	for _, txID := range ordered.TransactionIDs {
		receipts.Write(txID[:])
	}
	copy(receiptRoot[:], receipts.Sum(nil))
	return stateRoot, receiptRoot
}

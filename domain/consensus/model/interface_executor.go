package model

import (
	"context"

	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// Executor is the collaborator surface the core applies ordered blocks
// to (spec §4.8, component C8). It is opaque: the core never executes
// transactions or derives state; it only compares the returned
// commitments against the block's own BodyCommitments.
type Executor interface {
	// Apply delivers the next block in TotalOrdering order. It may block
	// until the executor is ready to accept it; ctx carries the host's
	// configured timeout.
	Apply(ctx context.Context, ordered *externalapi.BlockHeader) (stateRoot, receiptRoot externalapi.DomainHash, err error)
	// Rewind asks the executor to unwind its applied state back to (and
	// including) toHash, in preparation for re-applying a new canonical
	// suffix during a reorg.
	Rewind(ctx context.Context, toHash *externalapi.DomainHash) error
}

package model

import "time"

// Params bundles the protocol parameters that are fixed per network
// (spec §6). They are threaded through every process that needs them
// rather than read from globals, so that multiple ConsensusCore
// instances (e.g. under test) are fully independent (design notes §9).
type Params struct {
	// K bounds the k-cluster rule (I5): a blue block's anticone may
	// contain at most K other blue blocks.
	K uint32

	// FinalityDepth is the blue-score distance behind the virtual tip
	// at which a selected-parent-chain block becomes finalized.
	FinalityDepth uint64

	// MaxMergeset rejects a block as malformed (MergesetTooLarge) if its
	// mergeset would exceed this size. Typical bound: a small multiple
	// of K.
	MaxMergeset uint64

	// PruningWindow is the number of blocks, measured in blue score
	// below the finalized head, that the store is permitted to compact.
	// Pruning itself is out of scope for this core; the parameter is
	// carried so that BlockStore implementations and the pruning
	// collaborator downstream can honor it consistently.
	PruningWindow uint64

	// ExecutorTimeout bounds a single Executor.Apply call; Rewind is not
	// bounded. On expiry the core retries once; a second expiry halts the process
	// (ErrExecutorTimeout), since the executor's state can no longer be
	// trusted to agree with the DAG.
	ExecutorTimeout time.Duration
}

// DefaultParams returns the parameter set used unless overridden by
// configuration.
func DefaultParams() *Params {
	return &Params{
		K:               18,
		FinalityDepth:   100,
		MaxMergeset:     180,
		PruningWindow:   2000,
		ExecutorTimeout: 30 * time.Second,
	}
}

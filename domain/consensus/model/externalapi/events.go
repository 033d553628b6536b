package externalapi

// FinalityEvent is emitted once, in ascending blue-score order, for every
// block that newly crosses into StatusFinalized.
type FinalityEvent struct {
	Hash      DomainHash
	BlueScore uint64
}

// ReorgEvent describes a head change that abandons the previous
// selected-parent-chain tip in favor of a new one.
type ReorgEvent struct {
	OldTip DomainHash
	NewTip DomainHash
	// LCA is the lowest common ancestor on the selected-parent chain;
	// the executor rewinds to this hash before re-applying the suffix.
	LCA DomainHash
}

// RejectedEvent carries the structured reason a submitted block was
// dropped, suitable for logging and peer scoring.
type RejectedEvent struct {
	Hash   DomainHash
	Reason ErrorCode
}

// HeadChange is delivered on the head subscription stream. OrderedSuffix
// lists the blocks applied for this head change. RewindTarget is nil on a
// plain extension; on a reorg it names the lowest common ancestor the
// executor was rewound to, and OrderedSuffix starts after it.
type HeadChange struct {
	VirtualTip     DomainHash
	OrderedSuffix  []DomainHash
	RewindTarget   *DomainHash
}

// AcceptResult is the outcome of submitting a block to the core.
type AcceptResult int

const (
	// Accepted means the block was classified and inserted.
	Accepted AcceptResult = iota
	// Buffered means the block is missing one or more parents and is
	// held in the pending-parent buffer.
	Buffered
	// Rejected means the block failed validation or reorg gating and
	// was dropped.
	Rejected
)

// SubmitOutcome is returned by the block-ingress API.
type SubmitOutcome struct {
	Result AcceptResult
	// MissingParents is populated when Result == Buffered.
	MissingParents []DomainHash
	// Reason is populated when Result == Rejected.
	Reason ErrorCode
}

package model

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// OrderingCursor is a restartable position within a TotalOrdering
// iteration (spec §4.5): chainIndex walks the selected-parent chain from
// genesis, mergesetIndex walks the sorted mergeset of the chain block at
// chainIndex.
type OrderingCursor struct {
	ChainIndex    int
	MergesetIndex int
}

// TotalOrderingIterator lazily yields the canonical linearization of
// past(tip) ∪ {tip}. It must be deterministic and idempotent (P3, P4)
// and resumable from any cursor.
type TotalOrderingIterator interface {
	// Next returns the next hash in canonical order, or ok=false once
	// the tip and then the tip's own sorted mergeset have been yielded.
	Next() (hash *externalapi.DomainHash, cursor OrderingCursor, ok bool, err error)
}

// TotalOrderingManager constructs iterators over a given tip.
type TotalOrderingManager interface {
	Order(tip *externalapi.DomainHash) (TotalOrderingIterator, error)
	OrderFrom(tip *externalapi.DomainHash, cursor OrderingCursor) (TotalOrderingIterator, error)

	// BlockLocator summarizes highHash's selected-parent chain down to
	// lowHash as an exponentially-sparser sampling of hashes, for a
	// caller to find the highest chain block it shares with a peer
	// without walking every hash. lowHash and highHash must be on the
	// same selected-parent chain. limit == 0 means unbounded.
	BlockLocator(lowHash, highHash *externalapi.DomainHash, limit uint32) ([]*externalapi.DomainHash, error)
}

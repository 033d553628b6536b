package model

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// BlockStore is the persistence surface the core consumes (spec §4.1,
// component C1). Implementations must publish the header and metadata
// of a block atomically: concurrent readers must see either the
// pre-state or the full post-state of a given block, never a torn read.
type BlockStore interface {
	GetHeader(hash *externalapi.DomainHash) (*externalapi.BlockHeader, error)
	GetMetadata(hash *externalapi.DomainHash) (*externalapi.DagMetadata, error)
	// Put persists header and metadata for hash as a single atomic unit.
	Put(hash *externalapi.DomainHash, header *externalapi.BlockHeader, metadata *externalapi.DagMetadata) error
	// PutStaged commits every block accumulated in a StagingArea as one
	// atomic batch, along with optional head/finalized-head pointer
	// updates (spec §6 persisted-state layout).
	PutStaged(staging *StagingArea, head, finalizedHead *externalapi.DomainHash) error
	Contains(hash *externalapi.DomainHash) (bool, error)
	IterChildren(hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error)
	Genesis() (*externalapi.DomainHash, error)
	Head() (*externalapi.DomainHash, error)
	FinalizedHead() (*externalapi.DomainHash, error)
}

// ErrNotFound is returned by BlockStore reads for an unknown hash.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	type causer interface{ Cause() error }
	for err != nil {
		if err == ErrNotFound {
			return true
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

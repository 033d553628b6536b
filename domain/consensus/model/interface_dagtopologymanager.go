package model

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// DAGTopologyManager holds the in-memory index of parent/child edges and
// tips (spec §4.2, component C2, "DagGraph"). Ancestry queries must be
// answered without descending into unbounded history: implementations
// traverse via the selected-parent chain plus each chain block's
// mergeset, bounded by the pruning window.
type DAGTopologyManager interface {
	Add(header *externalapi.BlockHeader, metadata *externalapi.DagMetadata) error
	Parents(hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error)
	Children(hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error)
	Tips() []*externalapi.DomainHash
	IsAncestorOf(a, b *externalapi.DomainHash) (bool, error)
	IsInSelectedParentChainOf(a, b *externalapi.DomainHash) (bool, error)
}

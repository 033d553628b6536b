package model

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// StagingArea accumulates header and metadata writes so that
// BlockStore.PutStaged can publish them atomically
// (spec §4.1: "all writes that update both header and metadata MUST be
// atomic"). It is created per write (ChainSelector creates one per
// classified block) and committed as a unit; it is never shared across calls, which keeps
// the single-writer consensus task (spec §5) free of staging-state
// races.
type StagingArea struct {
	headers  map[externalapi.DomainHash]*externalapi.BlockHeader
	metadata map[externalapi.DomainHash]*externalapi.DagMetadata
	tips     *externalapi.HashSet
}

// NewStagingArea returns an empty StagingArea.
func NewStagingArea() *StagingArea {
	return &StagingArea{
		headers:  make(map[externalapi.DomainHash]*externalapi.BlockHeader),
		metadata: make(map[externalapi.DomainHash]*externalapi.DagMetadata),
	}
}

// StageBlock records a header/metadata pair to be committed together.
func (sa *StagingArea) StageBlock(header *externalapi.BlockHeader, metadata *externalapi.DagMetadata) {
	sa.headers[header.Hash] = header
	sa.metadata[header.Hash] = metadata
}

// Header returns a staged header, if any.
func (sa *StagingArea) Header(hash *externalapi.DomainHash) (*externalapi.BlockHeader, bool) {
	h, ok := sa.headers[*hash]
	return h, ok
}

// Metadata returns staged metadata, if any.
func (sa *StagingArea) Metadata(hash *externalapi.DomainHash) (*externalapi.DagMetadata, bool) {
	m, ok := sa.metadata[*hash]
	return m, ok
}

// StagedBlocks returns every hash staged in this area.
func (sa *StagingArea) StagedBlocks() []*externalapi.DomainHash {
	hashes := make([]*externalapi.DomainHash, 0, len(sa.headers))
	for hash := range sa.headers {
		h := hash
		hashes = append(hashes, &h)
	}
	return hashes
}

// IsEmpty reports whether anything has been staged.
func (sa *StagingArea) IsEmpty() bool {
	return len(sa.headers) == 0
}

package model

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// GHOSTDAGManager classifies an incoming header into DagMetadata (spec
// §4.3, component C3). Its parents must already be classified.
type GHOSTDAGManager interface {
	GHOSTDAG(header *externalapi.BlockHeader) (*externalapi.DagMetadata, error)
	// ChooseSelectedParent applies I6: highest blue score, hash tiebreak.
	ChooseSelectedParent(candidates []*externalapi.DomainHash) (*externalapi.DomainHash, error)
}

package model

import (
	"context"

	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// ChainSelector is the top-level driver: it accepts blocks, classifies
// them, updates the virtual tip, and gates reorgs against finality
// (spec §4.7, component C7).
type ChainSelector interface {
	SubmitBlock(ctx context.Context, header *externalapi.BlockHeader) (externalapi.SubmitOutcome, error)
	Tip() (*externalapi.DomainHash, error)
	FinalizedHead() (*externalapi.DomainHash, error)
	BlueScore(hash *externalapi.DomainHash) (uint64, error)
	Status(hash *externalapi.DomainHash) (externalapi.FinalityStatus, error)
	SubscribeHead() <-chan externalapi.HeadChange
	SubscribeFinality() <-chan externalapi.FinalityEvent
	SubscribeRejected() <-chan externalapi.RejectedEvent
}

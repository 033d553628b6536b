// Package consensus assembles the eight components into the single
// top-level surface cmd/axiomd and any embedding host talk to.
// Grounded on daglabs-btcd's domain/consensus/consensus.go: a thin
// struct delegating every method to its collaborators. The teacher's
// surface (BuildBlock, ValidateAndInsertBlock, UTXO queries, DAG/chain/
// finality-conflict handler setters) is generalized to spec §4.7's
// ChainSelector surface, since this core has no mempool/mining/UTXO
// layer of its own — those are Non-goals the spec leaves to the
// executor.
package consensus

import (
	"context"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// Consensus is the core's top-level surface.
type Consensus interface {
	SubmitBlock(ctx context.Context, header *externalapi.BlockHeader) (externalapi.SubmitOutcome, error)
	Tip() (*externalapi.DomainHash, error)
	FinalizedHead() (*externalapi.DomainHash, error)
	BlueScore(hash *externalapi.DomainHash) (uint64, error)
	Status(hash *externalapi.DomainHash) (externalapi.FinalityStatus, error)
	SubscribeHead() <-chan externalapi.HeadChange
	SubscribeFinality() <-chan externalapi.FinalityEvent
	SubscribeRejected() <-chan externalapi.RejectedEvent
}

type consensus struct {
	chainSelector model.ChainSelector
}

// SubmitBlock delegates to ChainSelector.
func (c *consensus) SubmitBlock(ctx context.Context, header *externalapi.BlockHeader) (externalapi.SubmitOutcome, error) {
	return c.chainSelector.SubmitBlock(ctx, header)
}

// Tip delegates to ChainSelector.
func (c *consensus) Tip() (*externalapi.DomainHash, error) {
	return c.chainSelector.Tip()
}

// FinalizedHead delegates to ChainSelector.
func (c *consensus) FinalizedHead() (*externalapi.DomainHash, error) {
	return c.chainSelector.FinalizedHead()
}

// BlueScore delegates to ChainSelector.
func (c *consensus) BlueScore(hash *externalapi.DomainHash) (uint64, error) {
	return c.chainSelector.BlueScore(hash)
}

// Status delegates to ChainSelector.
func (c *consensus) Status(hash *externalapi.DomainHash) (externalapi.FinalityStatus, error) {
	return c.chainSelector.Status(hash)
}

// SubscribeHead delegates to ChainSelector.
func (c *consensus) SubscribeHead() <-chan externalapi.HeadChange {
	return c.chainSelector.SubscribeHead()
}

// SubscribeFinality delegates to ChainSelector.
func (c *consensus) SubscribeFinality() <-chan externalapi.FinalityEvent {
	return c.chainSelector.SubscribeFinality()
}

// SubscribeRejected delegates to ChainSelector.
func (c *consensus) SubscribeRejected() <-chan externalapi.RejectedEvent {
	return c.chainSelector.SubscribeRejected()
}

package model

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// FinalityManager tracks the finalized frontier as a function of depth
// and emits finality events (spec §4.6, component C6).
type FinalityManager interface {
	// Advance walks finalized_head forward along newVirtualTip's
	// selected-parent chain as far as depth allows, returning the
	// FinalityEvents for every block that newly finalized, in ascending
	// blue-score order.
	Advance(newVirtualTip *externalapi.DomainHash) ([]externalapi.FinalityEvent, error)
	Status(hash *externalapi.DomainHash) (externalapi.FinalityStatus, error)
	FinalizedHead() *externalapi.DomainHash
	// CheckReorgAllowed reports false if any block strictly between from
	// (exclusive) and the finalized head (inclusive) lies on the path
	// being abandoned by a reorg from `from` to `to`.
	CheckReorgAllowed(from, to *externalapi.DomainHash) (bool, error)
	Subscribe() <-chan externalapi.FinalityEvent
}

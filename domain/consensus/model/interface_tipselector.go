package model

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// TipSelector maintains the leaf set and the virtual tip = the leaf
// maximizing (blue_score, -hash) (spec §4.4, component C4).
type TipSelector interface {
	AddTip(hash *externalapi.DomainHash, blueScore uint64) error
	RemoveTip(hash *externalapi.DomainHash) error
	VirtualTip() (*externalapi.DomainHash, error)
	Tips() []*externalapi.DomainHash
}

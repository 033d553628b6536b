// Package tipselector implements TipSelector (spec §4.4, component C4):
// the leaf set and the virtual tip, argmax(blue_score, -hash) over
// leaves, maintained by a score-ordered tree for O(log n) updates.
// Grounded on daglabs-btcd's headertipsmanager.go (the tip-set
// maintenance shape: drop a tip once something builds on it, add the
// new leaf), generalized here with github.com/google/btree as the
// score index, since the teacher's own tip set is a small unordered
// slice and never needed an ordered argmax query.
package tipselector

import (
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

const treeDegree = 32

// Selector is a model.TipSelector.
type Selector struct {
	mtx   sync.RWMutex
	tree  *btree.BTree
	items map[externalapi.DomainHash]*tipItem
}

type tipItem struct {
	hash      externalapi.DomainHash
	blueScore uint64
}

// Less orders items so that the btree's Max() is the current virtual
// tip: highest blue score first, and on a tie the smaller hash (since
// virtual_tip = argmax(blue_score, -hash), a smaller hash scores higher
// on -hash).
func (t *tipItem) Less(than btree.Item) bool {
	other := than.(*tipItem)
	if t.blueScore != other.blueScore {
		return t.blueScore < other.blueScore
	}
	return other.hash.Less(&t.hash)
}

// New returns an empty Selector.
func New() *Selector {
	return &Selector{
		tree:  btree.New(treeDegree),
		items: make(map[externalapi.DomainHash]*tipItem),
	}
}

// AddTip implements model.TipSelector.
func (s *Selector) AddTip(hash *externalapi.DomainHash, blueScore uint64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	item := &tipItem{hash: *hash, blueScore: blueScore}
	if existing, ok := s.items[*hash]; ok {
		s.tree.Delete(existing)
	}
	s.items[*hash] = item
	s.tree.ReplaceOrInsert(item)
	return nil
}

// RemoveTip implements model.TipSelector.
func (s *Selector) RemoveTip(hash *externalapi.DomainHash) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	item, ok := s.items[*hash]
	if !ok {
		return nil
	}
	s.tree.Delete(item)
	delete(s.items, *hash)
	return nil
}

// VirtualTip implements model.TipSelector.
func (s *Selector) VirtualTip() (*externalapi.DomainHash, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	max := s.tree.Max()
	if max == nil {
		return nil, errors.New("tipselector: no tips")
	}
	hash := max.(*tipItem).hash
	return &hash, nil
}

// Tips implements model.TipSelector.
func (s *Selector) Tips() []*externalapi.DomainHash {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	hashes := maps.Keys(s.items)
	tips := make([]*externalapi.DomainHash, len(hashes))
	for i := range hashes {
		tips[i] = &hashes[i]
	}
	return tips
}

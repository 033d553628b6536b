// Package totalordering implements TotalOrdering (spec §4.5, component
// C5): given a tip, the canonical linearization of past(tip) ∪ {tip},
// produced by walking the selected-parent chain from genesis and, at
// each chain block, yielding the block itself followed by its sorted
// mergeset. No teacher package implements this directly (daglabs-btcd
// predates the split-out total-ordering manager kaspad later grew), so
// the iterator shape here follows the other process packages' style
// (a store collaborator, a small constructor) while
// the algorithm itself is exactly spec §4.5's.
package totalordering

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// Manager is a model.TotalOrderingManager.
type Manager struct {
	store model.BlockStore
}

// New builds a Manager.
func New(store model.BlockStore) *Manager {
	return &Manager{store: store}
}

// Order implements model.TotalOrderingManager.
func (m *Manager) Order(tip *externalapi.DomainHash) (model.TotalOrderingIterator, error) {
	return m.OrderFrom(tip, model.OrderingCursor{})
}

// OrderFrom implements model.TotalOrderingManager: resumes iteration
// from cursor over the same selected-parent chain a fresh Order(tip)
// call would build, satisfying the "resumable from any cursor"
// contract (spec §4.5).
func (m *Manager) OrderFrom(tip *externalapi.DomainHash, cursor model.OrderingCursor) (model.TotalOrderingIterator, error) {
	chain, err := m.selectedParentChain(tip)
	if err != nil {
		return nil, err
	}
	return &iterator{
		store:         m.store,
		chain:         chain,
		mergesets:     make(map[int][]*externalapi.DomainHash),
		cursor:        cursor,
	}, nil
}

// selectedParentChain returns every block from genesis to tip
// (inclusive), in ascending (genesis-first) order.
func (m *Manager) selectedParentChain(tip *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	var reversed []*externalapi.DomainHash
	cursor := tip
	for {
		reversed = append(reversed, cursor)
		header, err := m.store.GetHeader(cursor)
		if err != nil {
			return nil, err
		}
		if header.IsGenesis() {
			break
		}
		cursor = header.SelectedParent
	}

	chain := make([]*externalapi.DomainHash, len(reversed))
	for i, hash := range reversed {
		chain[len(reversed)-1-i] = hash
	}
	return chain, nil
}

// BlockLocator implements model.TotalOrderingManager, grounded on
// daglabs-btcd's syncmanager/blocklocator.go: start at highHash and
// step back along the selected-parent chain, doubling the blue-score
// step each time, until lowHash's blue score is reached. The networking
// layer (out of this core's scope) uses this to find the highest chain
// block it shares with a peer in O(log n) round trips instead of
// walking every hash.
func (m *Manager) BlockLocator(lowHash, highHash *externalapi.DomainHash, limit uint32) ([]*externalapi.DomainHash, error) {
	lowMeta, err := m.store.GetMetadata(lowHash)
	if err != nil {
		return nil, err
	}
	lowBlueScore := lowMeta.BlueScore

	current := highHash
	step := uint64(1)
	locator := make([]*externalapi.DomainHash, 0)
	for current != nil {
		locator = append(locator, current)
		if limit > 0 && uint32(len(locator)) == limit {
			break
		}

		currentMeta, err := m.store.GetMetadata(current)
		if err != nil {
			return nil, err
		}
		if currentMeta.BlueScore <= lowBlueScore {
			isOnLowsChain, err := m.isAncestorOnSelectedParentChain(current, lowHash)
			if err != nil {
				return nil, err
			}
			if !isOnLowsChain {
				return nil, errors.New("totalordering: lowHash and highHash are not on the same selected parent chain")
			}
			break
		}

		nextBlueScore := currentMeta.BlueScore - step
		if currentMeta.BlueScore < step || nextBlueScore < lowBlueScore {
			nextBlueScore = lowBlueScore
		}

		current, err = m.lowestChainBlockAboveOrEqualToBlueScore(current, nextBlueScore)
		if err != nil {
			return nil, err
		}
		step *= 2
	}

	return locator, nil
}

// lowestChainBlockAboveOrEqualToBlueScore walks from's selected-parent
// chain backward, returning the lowest ancestor of (and including)
// from whose blue score is still >= target.
func (m *Manager) lowestChainBlockAboveOrEqualToBlueScore(from *externalapi.DomainHash, target uint64) (*externalapi.DomainHash, error) {
	current := from
	for {
		header, err := m.store.GetHeader(current)
		if err != nil {
			return nil, err
		}
		if header.IsGenesis() {
			return current, nil
		}
		parentMeta, err := m.store.GetMetadata(header.SelectedParent)
		if err != nil {
			return nil, err
		}
		if parentMeta.BlueScore < target {
			return current, nil
		}
		current = header.SelectedParent
	}
}

// isAncestorOnSelectedParentChain reports whether target lies on
// descendant's selected-parent chain, used to detect a caller passing
// lowHash/highHash from different forks.
func (m *Manager) isAncestorOnSelectedParentChain(descendant, target *externalapi.DomainHash) (bool, error) {
	current := descendant
	for {
		if *current == *target {
			return true, nil
		}
		header, err := m.store.GetHeader(current)
		if err != nil {
			return false, err
		}
		if header.IsGenesis() {
			return false, nil
		}
		current = header.SelectedParent
	}
}

// iterator is a model.TotalOrderingIterator.
type iterator struct {
	store     model.BlockStore
	chain     []*externalapi.DomainHash
	mergesets map[int][]*externalapi.DomainHash
	cursor    model.OrderingCursor
}

// Next implements model.TotalOrderingIterator. Cursor convention:
// MergesetIndex == 0 means "yield the chain block at ChainIndex next";
// MergesetIndex == i > 0 means "yield mergesets[ChainIndex][i-1] next".
func (it *iterator) Next() (*externalapi.DomainHash, model.OrderingCursor, bool, error) {
	for {
		if it.cursor.ChainIndex >= len(it.chain) {
			return nil, it.cursor, false, nil
		}

		if it.cursor.MergesetIndex == 0 {
			hash := it.chain[it.cursor.ChainIndex]
			it.cursor = model.OrderingCursor{ChainIndex: it.cursor.ChainIndex, MergesetIndex: 1}
			return hash, it.cursor, true, nil
		}

		merges, err := it.mergesetAt(it.cursor.ChainIndex)
		if err != nil {
			return nil, it.cursor, false, err
		}
		index := it.cursor.MergesetIndex - 1
		if index < len(merges) {
			hash := merges[index]
			it.cursor = model.OrderingCursor{ChainIndex: it.cursor.ChainIndex, MergesetIndex: it.cursor.MergesetIndex + 1}
			return hash, it.cursor, true, nil
		}

		it.cursor = model.OrderingCursor{ChainIndex: it.cursor.ChainIndex + 1, MergesetIndex: 0}
	}
}

// mergesetAt lazily computes and caches chain[index]'s sorted mergeset
// (mergeset_blue ∪ mergeset_red, ordered by blue_score then hash).
func (it *iterator) mergesetAt(index int) ([]*externalapi.DomainHash, error) {
	if cached, ok := it.mergesets[index]; ok {
		return cached, nil
	}

	metadata, err := it.store.GetMetadata(it.chain[index])
	if err != nil {
		return nil, err
	}

	combined := make([]*externalapi.DomainHash, 0, len(metadata.MergesetBlue)+len(metadata.MergesetRed))
	combined = append(combined, metadata.MergesetBlue...)
	combined = append(combined, metadata.MergesetRed...)

	scores := make(map[externalapi.DomainHash]uint64, len(combined))
	for _, hash := range combined {
		memberMeta, err := it.store.GetMetadata(hash)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching blue score for mergeset member %s", hash)
		}
		scores[*hash] = memberMeta.BlueScore
	}

	sort.Slice(combined, func(i, j int) bool {
		a, b := combined[i], combined[j]
		if scores[*a] != scores[*b] {
			return scores[*a] < scores[*b]
		}
		return a.Less(b)
	})

	it.mergesets[index] = combined
	return combined, nil
}

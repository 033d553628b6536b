// Package dagtopologymanager implements DagGraph (spec §4.2, component
// C2): an in-memory index of parent/child edges and the current tip
// set, grounded on daglabs-btcd's processes/dagtopologymanager, with
// IsAncestorOf reworked to walk the selected-parent chain plus a
// bounded mergeset lookback instead of the teacher's reachability-tree
// interval labeling, since no reachabilitydatastore exists in this
// core (see DESIGN.md).
package dagtopologymanager

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/internal/logs"
)

// Manager is a model.DAGTopologyManager.
type Manager struct {
	mtx      sync.RWMutex
	store    model.BlockStore
	params   *model.Params
	parents  map[externalapi.DomainHash][]*externalapi.DomainHash
	children map[externalapi.DomainHash][]*externalapi.DomainHash
	tips     externalapi.HashSet
}

// New builds a Manager over store with an empty index. Blocks already
// persisted in store are not loaded; only blocks passed to Add are
// indexed.
func New(store model.BlockStore, params *model.Params) *Manager {
	return &Manager{
		store:    store,
		params:   params,
		parents:  make(map[externalapi.DomainHash][]*externalapi.DomainHash),
		children: make(map[externalapi.DomainHash][]*externalapi.DomainHash),
		tips:     make(externalapi.HashSet),
	}
}

// Add records header's parent/child edges and updates the tip set: a
// parent already indexed loses tip status once it gains a child, and
// header itself becomes a (leaf) tip until something builds on it.
func (m *Manager) Add(header *externalapi.BlockHeader, metadata *externalapi.DagMetadata) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	parents := header.Parents()
	m.parents[header.Hash] = parents
	if _, ok := m.children[header.Hash]; !ok {
		m.children[header.Hash] = nil
	}
	for _, parent := range parents {
		m.children[*parent] = append(m.children[*parent], header.Hash.Clone())
		delete(m.tips, *parent)
	}
	m.tips.Add(header.Hash.Clone())
	logs.DagTopology.Tracef("indexed block %s with %d parent(s)", header.Hash, len(parents))
	return nil
}

// Parents implements model.DAGTopologyManager.
func (m *Manager) Parents(hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	parents, ok := m.parents[*hash]
	if !ok {
		return nil, errors.Errorf("block %s is not indexed", hash)
	}
	return externalapi.CloneHashes(parents), nil
}

// Children implements model.DAGTopologyManager.
func (m *Manager) Children(hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	children, ok := m.children[*hash]
	if !ok {
		return nil, errors.Errorf("block %s is not indexed", hash)
	}
	return externalapi.CloneHashes(children), nil
}

// Tips implements model.DAGTopologyManager.
func (m *Manager) Tips() []*externalapi.DomainHash {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.tips.ToSlice()
}

// IsInSelectedParentChainOf implements model.DAGTopologyManager: a is a
// member of b's selected-parent chain iff a is b itself or is reached by
// walking b.SelectedParent repeatedly, down to and including genesis.
// The walk is bounded by the pruning window; past it, false is returned.
func (m *Manager) IsInSelectedParentChainOf(a, b *externalapi.DomainHash) (bool, error) {
	cursor := b
	for i := uint64(0); i < m.params.PruningWindow; i++ {
		if cursor.Equal(a) {
			return true, nil
		}
		header, err := m.store.GetHeader(cursor)
		if err != nil {
			return false, err
		}
		if header.IsGenesis() {
			return a.Equal(cursor), nil
		}
		cursor = header.SelectedParent
	}
	return false, nil
}

// IsAncestorOf implements model.DAGTopologyManager (spec §4.2): walk
// b's selected-parent chain; at each chain block S, a is an ancestor of
// b if a equals S or a appears in S's mergeset (the portion of S's past
// not already covered by S's own selected parent). The walk is bounded
// by the pruning window, matching the "no unbounded history descent"
// requirement.
func (m *Manager) IsAncestorOf(a, b *externalapi.DomainHash) (bool, error) {
	if a.Equal(b) {
		return false, nil
	}

	cursor := b
	for i := uint64(0); i < m.params.PruningWindow; i++ {
		header, err := m.store.GetHeader(cursor)
		if err != nil {
			return false, err
		}
		metadata, err := m.store.GetMetadata(cursor)
		if err != nil {
			return false, err
		}
		if cursor.Equal(a) {
			return true, nil
		}
		for _, blue := range metadata.MergesetBlue {
			if blue.Equal(a) {
				return true, nil
			}
		}
		for _, red := range metadata.MergesetRed {
			if red.Equal(a) {
				return true, nil
			}
		}
		if header.IsGenesis() {
			return false, nil
		}
		cursor = header.SelectedParent
	}
	logs.DagTopology.Warnf("IsAncestorOf(%s, %s): pruning window exhausted without resolving ancestry", a, b)
	return false, nil
}

// Package finalitymanager implements FinalityTracker (spec §4.6,
// component C6): the finalized frontier, advanced as a function of
// finality_depth, and the finality-event / reorg-gating surface the
// rest of the core consults before committing a head change. Grounded
// on daglabs-btcd's consensusstatemanager/finality.go
// (virtualFinalityPoint, isViolatingFinality): that file computes the
// virtual's finality point by walking blueScore - finalityDepth down
// the selected-parent chain and then asks whether a candidate block's
// ancestry crosses it; this package keeps that shape but turns it into
// an explicit frontier that advances and emits events rather than a
// one-shot violation check.
package finalitymanager

import (
	"sync"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// Manager is a model.FinalityManager.
type Manager struct {
	store    model.BlockStore
	topology model.DAGTopologyManager
	params   *model.Params

	mtx           sync.Mutex
	finalizedHead externalapi.DomainHash
	lastTip       *externalapi.DomainHash

	subMtx      sync.Mutex
	subscribers []chan externalapi.FinalityEvent
}

// New builds a Manager whose finalized frontier starts at genesis.
func New(store model.BlockStore, topology model.DAGTopologyManager, params *model.Params, genesis *externalapi.DomainHash) *Manager {
	return &Manager{
		store:         store,
		topology:      topology,
		params:        params,
		finalizedHead: *genesis,
	}
}

// Advance implements model.FinalityManager.
func (m *Manager) Advance(newVirtualTip *externalapi.DomainHash) ([]externalapi.FinalityEvent, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	tipMeta, err := m.store.GetMetadata(newVirtualTip)
	if err != nil {
		return nil, err
	}

	var boundary uint64
	if tipMeta.BlueScore > m.params.FinalityDepth {
		boundary = tipMeta.BlueScore - m.params.FinalityDepth
	}

	target, err := m.highestChainBlockBelowOrEqual(newVirtualTip, boundary)
	if err != nil {
		return nil, err
	}

	tip := *newVirtualTip
	m.lastTip = &tip

	if *target == m.finalizedHead {
		return nil, nil
	}

	newlyFinalized, err := m.chainBetween(target, &m.finalizedHead)
	if err != nil {
		return nil, err
	}

	events := make([]externalapi.FinalityEvent, len(newlyFinalized))
	for i, hash := range newlyFinalized {
		meta, err := m.store.GetMetadata(hash)
		if err != nil {
			return nil, err
		}
		events[i] = externalapi.FinalityEvent{Hash: *hash, BlueScore: meta.BlueScore}
	}

	m.finalizedHead = *target
	m.publish(events)
	return events, nil
}

// highestChainBlockBelowOrEqual walks tip's selected-parent chain
// backward and returns the first block whose blue score is at most
// boundary, falling back to genesis if none is. The fallback is taken
// whenever the tip is within finality_depth of genesis: boundary is then
// 0 and genesis's blue score is 1.
func (m *Manager) highestChainBlockBelowOrEqual(tip *externalapi.DomainHash, boundary uint64) (*externalapi.DomainHash, error) {
	cursor := tip
	for {
		meta, err := m.store.GetMetadata(cursor)
		if err != nil {
			return nil, err
		}
		if meta.BlueScore <= boundary {
			return cursor, nil
		}

		header, err := m.store.GetHeader(cursor)
		if err != nil {
			return nil, err
		}
		if header.IsGenesis() {
			return cursor, nil
		}
		cursor = header.SelectedParent
	}
}

// chainBetween returns the selected-parent-chain blocks strictly after
// from down to and including target, in ascending (oldest-first) order.
// from must be an ancestor of target on the selected-parent chain (true
// by construction: finalized_head only ever advances forward).
func (m *Manager) chainBetween(target, from *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	var reversed []*externalapi.DomainHash
	cursor := target
	for *cursor != *from {
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

	out := make([]*externalapi.DomainHash, len(reversed))
	for i, hash := range reversed {
		out[len(reversed)-1-i] = hash
	}
	return out, nil
}

// Status implements model.FinalityManager.
func (m *Manager) Status(hash *externalapi.DomainHash) (externalapi.FinalityStatus, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	exists, err := m.store.Contains(hash)
	if err != nil {
		return externalapi.StatusUnknown, err
	}
	if !exists {
		return externalapi.StatusUnknown, nil
	}

	if *hash == m.finalizedHead {
		return externalapi.StatusFinalized, nil
	}
	onFinalizedChain, err := m.topology.IsInSelectedParentChainOf(hash, &m.finalizedHead)
	if err != nil {
		return externalapi.StatusUnknown, err
	}
	if onFinalizedChain {
		return externalapi.StatusFinalized, nil
	}

	if m.lastTip != nil {
		onTipChain, err := m.topology.IsInSelectedParentChainOf(hash, m.lastTip)
		if err != nil {
			return externalapi.StatusUnknown, err
		}
		if onTipChain {
			return externalapi.StatusPendingFinalization, nil
		}
	}

	return externalapi.StatusUnfinalized, nil
}

// FinalizedHead implements model.FinalityManager.
func (m *Manager) FinalizedHead() *externalapi.DomainHash {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	head := m.finalizedHead
	return &head
}

// CheckReorgAllowed implements model.FinalityManager. A reorg to `to`
// is disallowed exactly when the current finalized head would not
// survive it, i.e. finalized_head is not on to's selected-parent chain.
// `from` is accepted for symmetry with the spec's interface and for
// callers that want it in logs; the decision only depends on `to`,
// since finalized_head is global core state independent of which tip
// is being abandoned.
func (m *Manager) CheckReorgAllowed(from, to *externalapi.DomainHash) (bool, error) {
	m.mtx.Lock()
	finalizedHead := m.finalizedHead
	m.mtx.Unlock()

	if finalizedHead == *to {
		return true, nil
	}
	return m.topology.IsInSelectedParentChainOf(&finalizedHead, to)
}

// Subscribe implements model.FinalityManager.
func (m *Manager) Subscribe() <-chan externalapi.FinalityEvent {
	ch := make(chan externalapi.FinalityEvent, 64)

	m.subMtx.Lock()
	defer m.subMtx.Unlock()
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// publish fans events out to every subscriber, best-effort: a
// subscriber that isn't keeping up drops events rather than blocking
// Advance.
func (m *Manager) publish(events []externalapi.FinalityEvent) {
	if len(events) == 0 {
		return
	}

	m.subMtx.Lock()
	defer m.subMtx.Unlock()
	for _, ch := range m.subscribers {
		for _, event := range events {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

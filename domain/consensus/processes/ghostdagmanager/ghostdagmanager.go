// Package ghostdagmanager implements GhostdagEngine (spec §4.3,
// component C3): given a block whose parents are already classified,
// compute its selected parent, mergeset, blue set and blue score.
// Grounded on daglabs-btcd's blockdag/ghostdag.go (the k-cluster check)
// and processes/ghostdagmanager/{mergeset,compare}.go (the
// store-and-topology-manager-mediated variant this core generalizes),
// reworked around this core's DAGTopologyManager + BlockStore
// collaborators rather than the teacher's in-memory blockNode graph.
package ghostdagmanager

import (
	"time"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/internal/logs"
	"github.com/axiomchain/axiomd/internal/metrics"
)

// Manager is a model.GHOSTDAGManager.
type Manager struct {
	store    model.BlockStore
	topology model.DAGTopologyManager
	params   *model.Params
	metrics  *metrics.Collector
}

// New builds a Manager.
func New(store model.BlockStore, topology model.DAGTopologyManager, params *model.Params, collector *metrics.Collector) *Manager {
	return &Manager{store: store, topology: topology, params: params, metrics: collector}
}

// GHOSTDAG implements model.GHOSTDAGManager (spec §4.3 steps 1-5).
func (m *Manager) GHOSTDAG(header *externalapi.BlockHeader) (*externalapi.DagMetadata, error) {
	if header.IsGenesis() {
		return &externalapi.DagMetadata{
			SelectedParent: nil,
			BlueSet:        []*externalapi.DomainHash{header.Hash.Clone()},
			BlueScore:      1,
		}, nil
	}

	start := time.Now()
	if m.metrics != nil {
		defer func() {
			m.metrics.ClassifyDuration.Observe(time.Since(start).Seconds())
		}()
	}

	parents := header.Parents()
	selectedParent, err := m.ChooseSelectedParent(parents)
	if err != nil {
		return nil, err
	}

	mergeset, err := m.mergeSet(selectedParent, parents)
	if err != nil {
		return nil, err
	}
	if uint64(len(mergeset)) > m.params.MaxMergeset {
		return nil, externalapi.NewRuleError(externalapi.ErrMergesetTooLarge, &header.Hash,
			"mergeset exceeds MaxMergeset")
	}
	if m.metrics != nil {
		m.metrics.MergesetSize.Observe(float64(len(mergeset)))
	}

	selectedParentMeta, err := m.store.GetMetadata(selectedParent)
	if err != nil {
		return nil, err
	}

	blueSet := make([]*externalapi.DomainHash, 0, len(selectedParentMeta.BlueSet)+1)
	for _, hash := range selectedParentMeta.BlueSet {
		if !hash.Equal(selectedParent) {
			blueSet = append(blueSet, hash.Clone())
		}
	}
	blueSet = append(blueSet, selectedParent)
	mergesetBlue := make([]*externalapi.DomainHash, 0, len(mergeset))
	mergesetRed := make([]*externalapi.DomainHash, 0, len(mergeset))

	for _, candidate := range mergeset {
		anticone, err := m.anticoneWithin(candidate, blueSet)
		if err != nil {
			return nil, err
		}

		possiblyBlue := uint64(len(anticone)) <= uint64(m.params.K)
		if possiblyBlue {
			for _, blue := range anticone {
				blueAnticone, err := m.anticoneWithin(blue, blueSet)
				if err != nil {
					return nil, err
				}
				if uint64(len(blueAnticone))+1 > uint64(m.params.K) {
					possiblyBlue = false
					break
				}
			}
		}

		if possiblyBlue {
			blueSet = append(blueSet, candidate)
			mergesetBlue = append(mergesetBlue, candidate)
		} else {
			mergesetRed = append(mergesetRed, candidate)
		}
	}

	logs.Ghostdag.Tracef("classified %s: selected parent %s, %d blue, %d red",
		header.Hash, selectedParent, len(mergesetBlue), len(mergesetRed))

	return &externalapi.DagMetadata{
		SelectedParent: selectedParent,
		BlueSet:        blueSet,
		BlueScore:      selectedParentMeta.BlueScore + uint64(len(mergesetBlue)) + 1,
		MergesetBlue:   mergesetBlue,
		MergesetRed:    mergesetRed,
	}, nil
}

// anticoneWithin returns the members of set that are neither ancestors
// nor descendants of hash.
func (m *Manager) anticoneWithin(hash *externalapi.DomainHash, set []*externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	var anticone []*externalapi.DomainHash
	for _, other := range set {
		if other.Equal(hash) {
			continue
		}
		isAncestor, err := m.topology.IsAncestorOf(other, hash)
		if err != nil {
			return nil, err
		}
		if isAncestor {
			continue
		}
		isDescendant, err := m.topology.IsAncestorOf(hash, other)
		if err != nil {
			return nil, err
		}
		if isDescendant {
			continue
		}
		anticone = append(anticone, other)
	}
	return anticone, nil
}

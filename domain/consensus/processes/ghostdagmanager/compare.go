package ghostdagmanager

import (
	"github.com/pkg/errors"

	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// ChooseSelectedParent implements model.GHOSTDAGManager (spec §4.3 step
// 1, I6): the candidate with the highest blue score, ties broken by the
// smaller hash. Grounded on the teacher's compare.go findSelectedParent/
// Less.
func (m *Manager) ChooseSelectedParent(candidates []*externalapi.DomainHash) (*externalapi.DomainHash, error) {
	if len(candidates) == 0 {
		return nil, errors.New("ChooseSelectedParent: no candidates")
	}

	selected := candidates[0]
	selectedMeta, err := m.store.GetMetadata(selected)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates[1:] {
		candidateMeta, err := m.store.GetMetadata(candidate)
		if err != nil {
			return nil, err
		}
		if preferred(candidate, candidateMeta, selected, selectedMeta) {
			selected = candidate
			selectedMeta = candidateMeta
		}
	}
	return selected, nil
}

// preferred reports whether a should replace b as selected parent:
// higher blue score wins; on a tie, the smaller hash wins (I6).
func preferred(a *externalapi.DomainHash, metaA *externalapi.DagMetadata, b *externalapi.DomainHash, metaB *externalapi.DagMetadata) bool {
	if metaA.BlueScore != metaB.BlueScore {
		return metaA.BlueScore > metaB.BlueScore
	}
	return a.Less(b)
}

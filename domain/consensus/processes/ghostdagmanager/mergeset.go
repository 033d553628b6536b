package ghostdagmanager

import (
	"sort"

	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// mergeSet computes the new block's mergeset (spec §4.3 step 2): every
// block reachable from blockParents that is not already in the past of
// selectedParent. Grounded on the teacher's ghostdagmanager/mergeset.go
// BFS, adapted to this core's DAGTopologyManager.Parents/IsAncestorOf.
func (m *Manager) mergeSet(selectedParent *externalapi.DomainHash, blockParents []*externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	seen := make(map[externalapi.DomainHash]struct{})
	inSelectedParentPast := make(map[externalapi.DomainHash]struct{})
	var queue []*externalapi.DomainHash
	var mergeset []*externalapi.DomainHash

	for _, parent := range blockParents {
		if parent.Equal(selectedParent) {
			continue
		}
		seen[*parent] = struct{}{}
		mergeset = append(mergeset, parent)
		queue = append(queue, parent)
	}

	for len(queue) > 0 {
		var current *externalapi.DomainHash
		current, queue = queue[0], queue[1:]

		parents, err := m.topology.Parents(current)
		if err != nil {
			return nil, err
		}
		for _, parent := range parents {
			if _, ok := seen[*parent]; ok {
				continue
			}
			if _, ok := inSelectedParentPast[*parent]; ok {
				continue
			}

			isAncestor, err := m.topology.IsAncestorOf(parent, selectedParent)
			if err != nil {
				return nil, err
			}
			if isAncestor {
				inSelectedParentPast[*parent] = struct{}{}
				continue
			}

			seen[*parent] = struct{}{}
			mergeset = append(mergeset, parent)
			queue = append(queue, parent)
		}
	}

	if err := m.sortTopologically(mergeset); err != nil {
		return nil, err
	}
	return mergeset, nil
}

// sortTopologically orders mergeset members by ascending blue score,
// breaking ties by hash. I4 (blue-score monotonicity along any ancestor
// chain) guarantees an ancestor always sorts before its descendants, so
// this ordering satisfies spec §4.3 step 3's "parents before children"
// requirement without a separate graph walk.
func (m *Manager) sortTopologically(hashes []*externalapi.DomainHash) error {
	var sortErr error
	sort.Slice(hashes, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		metaI, err := m.store.GetMetadata(hashes[i])
		if err != nil {
			sortErr = err
			return false
		}
		metaJ, err := m.store.GetMetadata(hashes[j])
		if err != nil {
			sortErr = err
			return false
		}
		if metaI.BlueScore != metaJ.BlueScore {
			return metaI.BlueScore < metaJ.BlueScore
		}
		return hashes[i].Less(hashes[j])
	})
	return sortErr
}

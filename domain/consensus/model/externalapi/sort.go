package externalapi

import "sort"

func sortHashes(hashes []*DomainHash) {
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Less(hashes[j])
	})
}

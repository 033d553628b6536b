package externalapi

import "encoding/hex"

// DomainHashSize is the size, in bytes, of the array used to store a hash.
const DomainHashSize = 32

// DomainHash is the domain representation of a content hash. It identifies
// a block, and is never reinterpreted as anything else by the core.
type DomainHash [DomainHashSize]byte

// String returns the hexadecimal string representation of the hash.
func (hash DomainHash) String() string {
	return hex.EncodeToString(hash[:])
}

// Less reports whether hash sorts before other. It is the sole tiebreak
// the core uses wherever determinism requires one (I6, selected-parent
// ties, total-ordering mergeset sort).
func (hash *DomainHash) Less(other *DomainHash) bool {
	for i := 0; i < DomainHashSize; i++ {
		if hash[i] != other[i] {
			return hash[i] < other[i]
		}
	}
	return false
}

// Equal reports whether hash and other identify the same block.
func (hash *DomainHash) Equal(other *DomainHash) bool {
	if hash == nil || other == nil {
		return hash == other
	}
	return *hash == *other
}

// Clone returns a copy of the hash.
func (hash *DomainHash) Clone() *DomainHash {
	clone := *hash
	return &clone
}

// HashesEqual reports whether two hash slices contain the same hashes in
// the same order.
func HashesEqual(a, b []*DomainHash) bool {
	if len(a) != len(b) {
		return false
	}
	for i, hash := range a {
		if !hash.Equal(b[i]) {
			return false
		}
	}
	return true
}

// CloneHashes returns a deep copy of a hash slice.
func CloneHashes(hashes []*DomainHash) []*DomainHash {
	clone := make([]*DomainHash, len(hashes))
	for i, hash := range hashes {
		clone[i] = hash.Clone()
	}
	return clone
}

// SortHashes sorts hashes in place by Less, smallest first.
func SortHashes(hashes []*DomainHash) {
	sortHashes(hashes)
}

// HashSet is a set of hashes keyed by value.
type HashSet map[DomainHash]struct{}

// NewHashSet builds a HashSet out of the given hashes.
func NewHashSet(hashes ...*DomainHash) HashSet {
	set := make(HashSet, len(hashes))
	for _, hash := range hashes {
		set[*hash] = struct{}{}
	}
	return set
}

// Add inserts hash into the set.
func (s HashSet) Add(hash *DomainHash) {
	s[*hash] = struct{}{}
}

// Contains reports whether hash is a member of the set.
func (s HashSet) Contains(hash *DomainHash) bool {
	_, ok := s[*hash]
	return ok
}

// ToSlice returns the set's members as a slice, in no particular order.
func (s HashSet) ToSlice() []*DomainHash {
	slice := make([]*DomainHash, 0, len(s))
	for hash := range s {
		h := hash
		slice = append(slice, &h)
	}
	return slice
}

// Package dbkeys builds the on-disk key layout described in spec §6:
// header/<hash>, meta/<hash>, children/<parent>/<child>, head,
// finalized. Grounded on daglabs-btcd's dbaccess bucket helpers
// (database2.MakeBucket), adapted to a single flat keyspace since the
// core owns one LevelDB instance rather than a multi-bucket ffldb.
package dbkeys

import "github.com/axiomchain/axiomd/domain/consensus/model/externalapi"

// Bucket is a namespace prefix for keys stored in the same LevelDB.
type Bucket []byte

// MakeBucket returns a Bucket for the given prefix.
func MakeBucket(prefix []byte) Bucket {
	return Bucket(append([]byte(nil), prefix...))
}

// Key concatenates the bucket's prefix with a 0x00 separator and suffix,
// matching the teacher's database2.Bucket.Key convention.
func (b Bucket) Key(suffix []byte) []byte {
	key := make([]byte, 0, len(b)+1+len(suffix))
	key = append(key, b...)
	key = append(key, 0x00)
	key = append(key, suffix...)
	return key
}

var (
	headerBucket   = MakeBucket([]byte("header"))
	metaBucket     = MakeBucket([]byte("meta"))
	childrenBucket = MakeBucket([]byte("children"))
)

// HeaderKey returns the key for a block's header.
func HeaderKey(hash *externalapi.DomainHash) []byte {
	return headerBucket.Key(hash[:])
}

// MetaKey returns the key for a block's DagMetadata.
func MetaKey(hash *externalapi.DomainHash) []byte {
	return metaBucket.Key(hash[:])
}

// ChildKey returns the key for a single parent -> child edge marker.
func ChildKey(parent, child *externalapi.DomainHash) []byte {
	key := make([]byte, 0, len(childrenBucket)+1+len(parent)+1+len(child))
	key = append(key, childrenBucket...)
	key = append(key, 0x00)
	key = append(key, parent[:]...)
	key = append(key, 0x00)
	key = append(key, child[:]...)
	return key
}

// ChildPrefix returns the key prefix shared by every child-edge entry of
// parent, for range iteration.
func ChildPrefix(parent *externalapi.DomainHash) []byte {
	key := make([]byte, 0, len(childrenBucket)+1+len(parent)+1)
	key = append(key, childrenBucket...)
	key = append(key, 0x00)
	key = append(key, parent[:]...)
	key = append(key, 0x00)
	return key
}

// HeadKey is the single-writer key for the current virtual tip.
var HeadKey = []byte("head")

// FinalizedKey is the single-writer key for the current finalized head.
var FinalizedKey = []byte("finalized")

// Package blockstore implements the BlockStore collaborator surface
// (spec §4.1, component C1): two backends share one implementation, an
// in-memory map for tests and a github.com/syndtr/goleveldb-backed store
// for cmd/axiomd, grounded on daglabs-btcd's infrastructure/db/dbaccess
// + domain/consensus/datastructures/ghostdagdatastore staging/commit/
// LRU-cache pattern.
package blockstore

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/axiomchain/axiomd/domain/consensus/dbkeys"
	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/internal/logs"
	"github.com/axiomchain/axiomd/internal/lrucache"
)

// kv is the minimal key-value surface both backends implement.
type kv interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	IteratePrefix(prefix []byte) (entries [][2][]byte, err error)
	WriteBatch(puts [][2][]byte) error
	Close() error
}

const defaultCacheSize = 4096

// Store is a model.BlockStore backed by a kv implementation, with an LRU
// cache in front of headers and metadata.
type Store struct {
	backend     kv
	cacheMtx    sync.Mutex
	headerCache *lrucache.Cache
	metaCache   *lrucache.Cache
	genesisHash *externalapi.DomainHash
}

// NewMemory returns a Store backed by an in-process map, for tests and
// for the in-memory ConsensusCore configuration.
func NewMemory(genesis *externalapi.DomainHash) *Store {
	return newStore(newMemoryBackend(), genesis)
}

// NewLevelDB returns a Store backed by a LevelDB database rooted at
// path, creating it if absent.
func NewLevelDB(path string, genesis *externalapi.DomainHash) (*Store, error) {
	backend, err := newLevelDBBackend(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb store at %s", path)
	}
	return newStore(backend, genesis), nil
}

func newStore(backend kv, genesis *externalapi.DomainHash) *Store {
	return &Store{
		backend:     backend,
		headerCache: lrucache.New(defaultCacheSize),
		metaCache:   lrucache.New(defaultCacheSize),
		genesisHash: genesis,
	}
}

// Close releases the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// GetHeader implements model.BlockStore.
func (s *Store) GetHeader(hash *externalapi.DomainHash) (*externalapi.BlockHeader, error) {
	if header, ok := s.getCachedHeader(*hash); ok {
		return header, nil
	}
	raw, err := s.backend.Get(dbkeys.HeaderKey(hash))
	if err != nil {
		return nil, err
	}
	header, err := decodeHeader(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding header for %s", hash)
	}
	s.cacheMtx.Lock()
	s.headerCache.Add(*hash, header)
	s.cacheMtx.Unlock()
	return header, nil
}

// GetMetadata implements model.BlockStore.
func (s *Store) GetMetadata(hash *externalapi.DomainHash) (*externalapi.DagMetadata, error) {
	if meta, ok := s.getCachedMetadata(*hash); ok {
		return meta.Clone(), nil
	}
	raw, err := s.backend.Get(dbkeys.MetaKey(hash))
	if err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding metadata for %s", hash)
	}
	s.cacheMtx.Lock()
	s.metaCache.Add(*hash, meta)
	s.cacheMtx.Unlock()
	return meta.Clone(), nil
}

// Contains implements model.BlockStore.
func (s *Store) Contains(hash *externalapi.DomainHash) (bool, error) {
	if _, ok := s.getCachedHeader(*hash); ok {
		return true, nil
	}
	return s.backend.Has(dbkeys.HeaderKey(hash))
}

// getCachedHeader and getCachedMetadata serialize access to the LRU
// caches: lrucache.Cache mutates its internal list even on a read
// (most-recently-used reordering), so a plain RWMutex read lock would
// not be safe here the way it is for dagtopologymanager's index maps.
func (s *Store) getCachedHeader(hash externalapi.DomainHash) (*externalapi.BlockHeader, bool) {
	s.cacheMtx.Lock()
	defer s.cacheMtx.Unlock()
	cached, ok := s.headerCache.Get(hash)
	if !ok {
		return nil, false
	}
	return cached.(*externalapi.BlockHeader), true
}

func (s *Store) getCachedMetadata(hash externalapi.DomainHash) (*externalapi.DagMetadata, bool) {
	s.cacheMtx.Lock()
	defer s.cacheMtx.Unlock()
	cached, ok := s.metaCache.Get(hash)
	if !ok {
		return nil, false
	}
	return cached.(*externalapi.DagMetadata), true
}

// Put implements model.BlockStore: a single block, written atomically.
func (s *Store) Put(hash *externalapi.DomainHash, header *externalapi.BlockHeader, metadata *externalapi.DagMetadata) error {
	staging := model.NewStagingArea()
	staging.StageBlock(header, metadata)
	return s.PutStaged(staging, nil, nil)
}

// PutStaged implements model.BlockStore: every header/metadata pair
// staged, plus the child-edge markers they imply and the head/
// finalized-head pointers, are written as one leveldb batch (or applied
// atomically to the in-memory map), satisfying spec §4.1's atomicity
// requirement and §6's "single atomic batch" persisted-state rule.
func (s *Store) PutStaged(staging *model.StagingArea, head, finalizedHead *externalapi.DomainHash) error {
	if staging.IsEmpty() && head == nil && finalizedHead == nil {
		return nil
	}

	var puts [][2][]byte
	for _, hash := range staging.StagedBlocks() {
		header, _ := staging.Header(hash)
		metadata, _ := staging.Metadata(hash)

		headerBytes, err := encodeHeader(header)
		if err != nil {
			return errors.Wrapf(err, "encoding header for %s", hash)
		}
		metaBytes, err := encodeMetadata(metadata)
		if err != nil {
			return errors.Wrapf(err, "encoding metadata for %s", hash)
		}
		puts = append(puts, [2][]byte{dbkeys.HeaderKey(hash), headerBytes})
		puts = append(puts, [2][]byte{dbkeys.MetaKey(hash), metaBytes})

		for _, parent := range header.Parents() {
			puts = append(puts, [2][]byte{dbkeys.ChildKey(parent, hash), {1}})
		}
	}
	if head != nil {
		puts = append(puts, [2][]byte{dbkeys.HeadKey, head[:]})
	}
	if finalizedHead != nil {
		puts = append(puts, [2][]byte{dbkeys.FinalizedKey, finalizedHead[:]})
	}

	if err := s.backend.WriteBatch(puts); err != nil {
		logs.Store.Errorf("store batch write failed: %+v", err)
		return errors.Wrap(err, "writing batch")
	}

	s.cacheMtx.Lock()
	for _, hash := range staging.StagedBlocks() {
		header, _ := staging.Header(hash)
		metadata, _ := staging.Metadata(hash)
		s.headerCache.Add(*hash, header)
		s.metaCache.Add(*hash, metadata.Clone())
	}
	s.cacheMtx.Unlock()
	return nil
}

// IterChildren implements model.BlockStore.
func (s *Store) IterChildren(hash *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	entries, err := s.backend.IteratePrefix(dbkeys.ChildPrefix(hash))
	if err != nil {
		return nil, err
	}
	children := make([]*externalapi.DomainHash, 0, len(entries))
	for _, kvPair := range entries {
		key := kvPair[0]
		var child externalapi.DomainHash
		copy(child[:], key[len(key)-externalapi.DomainHashSize:])
		children = append(children, &child)
	}
	return children, nil
}

// Genesis implements model.BlockStore.
func (s *Store) Genesis() (*externalapi.DomainHash, error) {
	if s.genesisHash == nil {
		return nil, errors.New("genesis not configured")
	}
	return s.genesisHash, nil
}

// Head implements model.BlockStore.
func (s *Store) Head() (*externalapi.DomainHash, error) {
	return s.readHashPointer(dbkeys.HeadKey)
}

// FinalizedHead implements model.BlockStore.
func (s *Store) FinalizedHead() (*externalapi.DomainHash, error) {
	return s.readHashPointer(dbkeys.FinalizedKey)
}

func (s *Store) readHashPointer(key []byte) (*externalapi.DomainHash, error) {
	raw, err := s.backend.Get(key)
	if err != nil {
		if model.IsNotFound(err) {
			return s.Genesis()
		}
		return nil, err
	}
	var hash externalapi.DomainHash
	copy(hash[:], raw)
	return &hash, nil
}

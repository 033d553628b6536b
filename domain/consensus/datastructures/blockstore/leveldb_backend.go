package blockstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/axiomchain/axiomd/domain/consensus/model"
)

// leveldbBackend is a kv backed by github.com/syndtr/goleveldb, the
// storage engine daglabs-btcd's infrastructure/db/ffldb wraps. The core
// keeps a single flat database rather than ffldb's block-file/metadata
// split, since there is no raw block-body store here (spec §4.1: the
// core only ever persists headers and derived metadata).
type leveldbBackend struct {
	db *leveldb.DB
}

func newLevelDBBackend(path string) (*leveldbBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &leveldbBackend{db: db}, nil
}

func (l *leveldbBackend) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (l *leveldbBackend) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *leveldbBackend) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *leveldbBackend) IteratePrefix(prefix []byte) ([][2][]byte, error) {
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var out [][2][]byte
	for iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		out = append(out, [2][]byte{key, value})
	}
	return out, iter.Error()
}

func (l *leveldbBackend) WriteBatch(puts [][2][]byte) error {
	batch := new(leveldb.Batch)
	for _, pair := range puts {
		batch.Put(pair[0], pair[1])
	}
	return l.db.Write(batch, nil)
}

func (l *leveldbBackend) Close() error {
	return l.db.Close()
}

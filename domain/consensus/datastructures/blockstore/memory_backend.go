package blockstore

import (
	"bytes"
	"sync"

	"github.com/axiomchain/axiomd/domain/consensus/model"
)

// memoryBackend is a kv backed by a guarded map, used by NewMemory and by
// every package test in this repo that doesn't need real persistence.
type memoryBackend struct {
	mtx  sync.RWMutex
	data map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (m *memoryBackend) Get(key []byte) ([]byte, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	value, ok := m.data[string(key)]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *memoryBackend) Put(key, value []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *memoryBackend) Has(key []byte) (bool, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memoryBackend) IteratePrefix(prefix []byte) ([][2][]byte, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	var out [][2][]byte
	for k, v := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			out = append(out, [2][]byte{[]byte(k), append([]byte(nil), v...)})
		}
	}
	return out, nil
}

func (m *memoryBackend) WriteBatch(puts [][2][]byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for _, pair := range puts {
		m.data[string(pair[0])] = append([]byte(nil), pair[1]...)
	}
	return nil
}

func (m *memoryBackend) Close() error {
	return nil
}

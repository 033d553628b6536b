package blockstore

import (
	"sync"
	"testing"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

func hashFromByte(b byte) externalapi.DomainHash {
	var h externalapi.DomainHash
	h[0] = b
	return h
}

func TestPutGetRoundTrip(t *testing.T) {
	genesis := hashFromByte(0)
	store := NewMemory(&genesis)

	hash := hashFromByte(1)
	header := &externalapi.BlockHeader{Hash: hash, SelectedParent: &genesis, Height: 1}
	meta := &externalapi.DagMetadata{SelectedParent: &genesis, BlueScore: 2}
	if err := store.Put(&hash, header, meta); err != nil {
		t.Fatalf("Put: %+v", err)
	}

	gotHeader, err := store.GetHeader(&hash)
	if err != nil {
		t.Fatalf("GetHeader: %+v", err)
	}
	if gotHeader.Height != 1 {
		t.Fatalf("GetHeader.Height = %d, want 1", gotHeader.Height)
	}

	gotMeta, err := store.GetMetadata(&hash)
	if err != nil {
		t.Fatalf("GetMetadata: %+v", err)
	}
	if gotMeta.BlueScore != 2 {
		t.Fatalf("GetMetadata.BlueScore = %d, want 2", gotMeta.BlueScore)
	}

	exists, err := store.Contains(&hash)
	if err != nil || !exists {
		t.Fatalf("Contains = %v, %+v, want true, nil", exists, err)
	}
}

func TestGetMetadataReturnsAnIndependentCopy(t *testing.T) {
	genesis := hashFromByte(0)
	store := NewMemory(&genesis)

	hash := hashFromByte(1)
	header := &externalapi.BlockHeader{Hash: hash, SelectedParent: &genesis}
	meta := &externalapi.DagMetadata{SelectedParent: &genesis, BlueScore: 2, BlueSet: []*externalapi.DomainHash{&hash}}
	if err := store.Put(&hash, header, meta); err != nil {
		t.Fatalf("Put: %+v", err)
	}

	first, err := store.GetMetadata(&hash)
	if err != nil {
		t.Fatalf("GetMetadata: %+v", err)
	}
	first.BlueScore = 999

	second, err := store.GetMetadata(&hash)
	if err != nil {
		t.Fatalf("GetMetadata: %+v", err)
	}
	if second.BlueScore != 2 {
		t.Fatalf("GetMetadata.BlueScore = %d after mutating a prior copy, want the cache unaffected at 2", second.BlueScore)
	}
}

// TestConcurrentReadersAndWriter exercises the cache guard: writers
// staging new blocks concurrently while several readers call GetHeader/GetMetadata/
// Contains must not race on the LRU's internal map/list (run with
// -race to confirm).
func TestConcurrentReadersAndWriter(t *testing.T) {
	genesis := hashFromByte(0)
	store := NewMemory(&genesis)
	if err := store.Put(&genesis, &externalapi.BlockHeader{Hash: genesis}, &externalapi.DagMetadata{BlueScore: 1}); err != nil {
		t.Fatalf("Put genesis: %+v", err)
	}

	const blocks = 50
	var wg sync.WaitGroup
	wg.Add(blocks + 4)

	for i := 1; i <= blocks; i++ {
		go func(i int) {
			defer wg.Done()
			hash := hashFromByte(byte(i))
			header := &externalapi.BlockHeader{Hash: hash, SelectedParent: &genesis, Height: uint64(i)}
			meta := &externalapi.DagMetadata{SelectedParent: &genesis, BlueScore: uint64(i + 1)}
			staging := model.NewStagingArea()
			staging.StageBlock(header, meta)
			if err := store.PutStaged(staging, nil, nil); err != nil {
				t.Errorf("PutStaged: %+v", err)
			}
		}(i)
	}

	for r := 0; r < 4; r++ {
		go func() {
			defer wg.Done()
			for i := 0; i < blocks; i++ {
				if _, err := store.GetHeader(&genesis); err != nil {
					t.Errorf("GetHeader: %+v", err)
				}
				if _, err := store.GetMetadata(&genesis); err != nil {
					t.Errorf("GetMetadata: %+v", err)
				}
				if _, err := store.Contains(&genesis); err != nil {
					t.Errorf("Contains: %+v", err)
				}
			}
		}()
	}

	wg.Wait()
}

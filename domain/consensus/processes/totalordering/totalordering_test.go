package totalordering

import (
	"testing"

	"github.com/axiomchain/axiomd/domain/consensus/datastructures/blockstore"
	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

func hashFromByte(b byte) externalapi.DomainHash {
	var h externalapi.DomainHash
	h[0] = b
	return h
}

func put(t *testing.T, store *blockstore.Store, id byte, selectedParent *externalapi.DomainHash, mergesetBlue, mergesetRed []*externalapi.DomainHash, blueScore uint64) *externalapi.DomainHash {
	t.Helper()
	hash := hashFromByte(id)
	header := &externalapi.BlockHeader{Hash: hash, SelectedParent: selectedParent}
	metadata := &externalapi.DagMetadata{SelectedParent: selectedParent, BlueScore: blueScore, MergesetBlue: mergesetBlue, MergesetRed: mergesetRed}
	if err := store.Put(&hash, header, metadata); err != nil {
		t.Fatalf("Put: %+v", err)
	}
	return &hash
}

func drain(t *testing.T, it model.TotalOrderingIterator) []externalapi.DomainHash {
	t.Helper()
	var out []externalapi.DomainHash
	for {
		hash, _, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %+v", err)
		}
		if !ok {
			break
		}
		out = append(out, *hash)
	}
	return out
}

func TestOrderLinearChain(t *testing.T) {
	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	put(t, store, 0, nil, nil, nil, 1)
	a := put(t, store, 1, &genesis, nil, nil, 2)
	b := put(t, store, 2, a, nil, nil, 3)

	mgr := New(store)
	it, err := mgr.Order(b)
	if err != nil {
		t.Fatalf("Order: %+v", err)
	}
	order := drain(t, it)

	want := []externalapi.DomainHash{genesis, *a, *b}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestOrderYieldsMergesetSortedByBlueScore(t *testing.T) {
	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	put(t, store, 0, nil, nil, nil, 1)

	x1 := put(t, store, 1, &genesis, nil, nil, 2)
	x2 := put(t, store, 2, &genesis, nil, nil, 2)
	// merged, selected parent x1, mergeset = {x2} blue.
	merged := put(t, store, 3, x1, []*externalapi.DomainHash{x2}, nil, 4)

	mgr := New(store)
	it, err := mgr.Order(merged)
	if err != nil {
		t.Fatalf("Order: %+v", err)
	}
	order := drain(t, it)

	want := []externalapi.DomainHash{genesis, *x1, *merged, *x2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestOrderFromResumesAtCursor(t *testing.T) {
	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	put(t, store, 0, nil, nil, nil, 1)
	a := put(t, store, 1, &genesis, nil, nil, 2)

	mgr := New(store)
	it, err := mgr.Order(a)
	if err != nil {
		t.Fatalf("Order: %+v", err)
	}
	_, cursor, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%+v", ok, err)
	}

	resumed, err := mgr.OrderFrom(a, cursor)
	if err != nil {
		t.Fatalf("OrderFrom: %+v", err)
	}
	rest := drain(t, resumed)
	if len(rest) != 1 || rest[0] != *a {
		t.Fatalf("resumed order = %v, want [%s]", rest, a)
	}
}

func TestBlockLocatorStepsExponentially(t *testing.T) {
	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	hashes := []*externalapi.DomainHash{put(t, store, 0, nil, nil, nil, 1)}
	parent := hashes[0]
	for i := 1; i <= 16; i++ {
		h := put(t, store, byte(i), parent, nil, nil, uint64(i+1))
		hashes = append(hashes, h)
		parent = h
	}

	mgr := New(store)
	locator, err := mgr.BlockLocator(hashes[0], hashes[len(hashes)-1], 0)
	if err != nil {
		t.Fatalf("BlockLocator: %+v", err)
	}

	if locator[0] != hashes[len(hashes)-1] {
		t.Fatalf("locator[0] = %s, want the high block", locator[0])
	}
	if locator[len(locator)-1] != hashes[0] {
		t.Fatalf("locator[last] = %s, want genesis", locator[len(locator)-1])
	}
	// 17 blocks, doubling step: it must cover far fewer entries than
	// the full chain.
	if len(locator) >= len(hashes) {
		t.Fatalf("locator length %d did not sample the chain (chain length %d)", len(locator), len(hashes))
	}
}

func TestBlockLocatorRejectsDivergentForks(t *testing.T) {
	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	put(t, store, 0, nil, nil, nil, 1)
	a := put(t, store, 1, &genesis, nil, nil, 2)
	forkLow := put(t, store, 2, &genesis, nil, nil, 2)

	mgr := New(store)
	if _, err := mgr.BlockLocator(forkLow, a, 0); err == nil {
		t.Fatalf("BlockLocator across divergent forks: want error, got nil")
	}
}

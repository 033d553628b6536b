package ghostdagmanager

import (
	"testing"

	"github.com/axiomchain/axiomd/domain/consensus/datastructures/blockstore"
	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/domain/consensus/processes/dagtopologymanager"
)

type harness struct {
	store    *blockstore.Store
	topology *dagtopologymanager.Manager
	manager  *Manager
	genesis  externalapi.DomainHash
}

func newHarness(t *testing.T, k uint32) *harness {
	t.Helper()
	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	params := &model.Params{K: k, FinalityDepth: 4, MaxMergeset: 180, PruningWindow: 2000}
	topology := dagtopologymanager.New(store, params)
	manager := New(store, topology, params, nil)

	genesisHeader := &externalapi.BlockHeader{Hash: genesis}
	genesisMeta, err := manager.GHOSTDAG(genesisHeader)
	if err != nil {
		t.Fatalf("GHOSTDAG(genesis): %+v", err)
	}
	if err := store.Put(&genesis, genesisHeader, genesisMeta); err != nil {
		t.Fatalf("Put genesis: %+v", err)
	}
	if err := topology.Add(genesisHeader, genesisMeta); err != nil {
		t.Fatalf("Add genesis: %+v", err)
	}

	return &harness{store: store, topology: topology, manager: manager, genesis: genesis}
}

func hashFromByte(b byte) externalapi.DomainHash {
	var h externalapi.DomainHash
	h[0] = b
	return h
}

// submit builds and classifies a block with the given selected parent
// and merge parents, storing it and indexing it for subsequent calls.
func (h *harness) submit(t *testing.T, id byte, selectedParent *externalapi.DomainHash, mergeParents []*externalapi.DomainHash) (*externalapi.DomainHash, *externalapi.DagMetadata) {
	t.Helper()
	hash := hashFromByte(id)
	header := &externalapi.BlockHeader{
		Hash:           hash,
		SelectedParent: selectedParent,
		MergeParents:   mergeParents,
	}
	metadata, err := h.manager.GHOSTDAG(header)
	if err != nil {
		t.Fatalf("GHOSTDAG(%s): %+v", hash, err)
	}
	if err := h.store.Put(&hash, header, metadata); err != nil {
		t.Fatalf("Put(%s): %+v", hash, err)
	}
	if err := h.topology.Add(header, metadata); err != nil {
		t.Fatalf("Add(%s): %+v", hash, err)
	}
	return &hash, metadata
}

// TestLinearChainBlueScores covers spec scenario S1: a pure chain's
// blue score increases by exactly one per block.
func TestLinearChainBlueScores(t *testing.T) {
	h := newHarness(t, 3)

	a, metaA := h.submit(t, 1, &h.genesis, nil)
	b, metaB := h.submit(t, 2, a, nil)
	c, metaC := h.submit(t, 3, b, nil)
	_, metaD := h.submit(t, 4, c, nil)

	wantScores := []uint64{2, 3, 4, 5}
	got := []uint64{metaA.BlueScore, metaB.BlueScore, metaC.BlueScore, metaD.BlueScore}
	for i := range wantScores {
		if got[i] != wantScores[i] {
			t.Fatalf("block %d: blue score = %d, want %d", i+1, got[i], wantScores[i])
		}
	}
	if len(metaA.MergesetBlue) != 0 || len(metaA.MergesetRed) != 0 {
		t.Fatalf("linear chain block should have an empty mergeset, got blue=%v red=%v", metaA.MergesetBlue, metaA.MergesetRed)
	}
}

// TestKClusterCapsBlueMergeset covers spec scenario S3: with k=3, merging
// five mutually-anticone one-step descendants of genesis can promote at
// most 3 of the non-selected-parent candidates to blue; the rest are red.
func TestKClusterCapsBlueMergeset(t *testing.T) {
	h := newHarness(t, 3)

	var xs []*externalapi.DomainHash
	for i := byte(1); i <= 5; i++ {
		x, _ := h.submit(t, i, &h.genesis, nil)
		xs = append(xs, x)
	}

	// Merge all five: selected parent is chosen by ChooseSelectedParent
	// (tied blue score, smallest hash wins), the rest become mergeset
	// candidates.
	selected, err := h.manager.ChooseSelectedParent(xs)
	if err != nil {
		t.Fatalf("ChooseSelectedParent: %+v", err)
	}
	var mergeParents []*externalapi.DomainHash
	for _, x := range xs {
		if !x.Equal(selected) {
			mergeParents = append(mergeParents, x)
		}
	}

	_, merged := h.submit(t, 6, selected, mergeParents)

	if len(merged.MergesetBlue) > int(3) {
		t.Fatalf("k-cluster violated: %d blue mergeset members, want <= 3", len(merged.MergesetBlue))
	}
	if len(merged.MergesetBlue)+len(merged.MergesetRed) != len(mergeParents) {
		t.Fatalf("mergeset partition incomplete: blue=%d red=%d, want total %d",
			len(merged.MergesetBlue), len(merged.MergesetRed), len(mergeParents))
	}
	if len(merged.MergesetRed) == 0 {
		t.Fatalf("expected at least one red block when merging more mutually-anticone blocks than k allows")
	}
}

// TestMergesetTooLargeIsRejected covers the MAX_MERGESET cap (spec §4.3
// edge policy).
func TestMergesetTooLargeIsRejected(t *testing.T) {
	h := newHarness(t, 1)
	h.manager.params.MaxMergeset = 1

	var xs []*externalapi.DomainHash
	for i := byte(1); i <= 3; i++ {
		x, _ := h.submit(t, i, &h.genesis, nil)
		xs = append(xs, x)
	}

	selected, err := h.manager.ChooseSelectedParent(xs)
	if err != nil {
		t.Fatalf("ChooseSelectedParent: %+v", err)
	}
	var mergeParents []*externalapi.DomainHash
	for _, x := range xs {
		if !x.Equal(selected) {
			mergeParents = append(mergeParents, x)
		}
	}

	header := &externalapi.BlockHeader{Hash: hashFromByte(9), SelectedParent: selected, MergeParents: mergeParents}
	_, err = h.manager.GHOSTDAG(header)
	if err == nil {
		t.Fatalf("expected MergesetTooLarge error")
	}
	ruleErr, ok := externalapi.AsRuleError(err)
	if !ok || ruleErr.ErrorCode != externalapi.ErrMergesetTooLarge {
		t.Fatalf("expected RuleError{ErrMergesetTooLarge}, got %+v", err)
	}
}

package chainselector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/axiomchain/axiomd/domain/consensus/datastructures/blockstore"
	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/domain/consensus/processes/dagtopologymanager"
	"github.com/axiomchain/axiomd/domain/consensus/processes/finalitymanager"
	"github.com/axiomchain/axiomd/domain/consensus/processes/ghostdagmanager"
	"github.com/axiomchain/axiomd/domain/consensus/processes/tipselector"
	"github.com/axiomchain/axiomd/domain/consensus/processes/totalordering"
	"github.com/axiomchain/axiomd/internal/metrics"
)

// echoExecutor is a model.Executor fake that trusts every block's own
// body_commitments, so ChainSelector's commitment check always passes,
// and records what it was asked to do for assertions.
type echoExecutor struct {
	applied     []externalapi.DomainHash
	appliedTxes [][]externalapi.DomainHash
	rewounds    []externalapi.DomainHash
}

func (e *echoExecutor) Apply(ctx context.Context, ordered *externalapi.BlockHeader) (externalapi.DomainHash, externalapi.DomainHash, error) {
	e.applied = append(e.applied, ordered.Hash)
	e.appliedTxes = append(e.appliedTxes, ordered.TransactionIDs)
	return ordered.Commitments.StateRoot, ordered.Commitments.ReceiptRoot, nil
}

func (e *echoExecutor) Rewind(ctx context.Context, toHash *externalapi.DomainHash) error {
	e.rewounds = append(e.rewounds, *toHash)
	return nil
}

func hashFromByte(b byte) externalapi.DomainHash {
	var h externalapi.DomainHash
	h[0] = b
	return h
}

type harness struct {
	t         *testing.T
	store     *blockstore.Store
	topology  *dagtopologymanager.Manager
	tips      *tipselector.Selector
	selector  *Manager
	executor  *echoExecutor
	collector *metrics.Collector
	genesis   externalapi.DomainHash
}

func newHarness(t *testing.T, finalityDepth uint64) *harness {
	t.Helper()
	return newHarnessWithParams(t, finalityDepth, nil)
}

// newHarnessWithParams behaves like newHarness but lets the caller tune
// params (e.g. ExecutorTimeout) before the Manager is constructed.
func newHarnessWithParams(t *testing.T, finalityDepth uint64, tune func(*model.Params)) *harness {
	t.Helper()

	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	params := model.DefaultParams()
	params.FinalityDepth = finalityDepth
	if tune != nil {
		tune(params)
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	topology := dagtopologymanager.New(store, params)
	ghostdag := ghostdagmanager.New(store, topology, params, collector)
	tips := tipselector.New()
	ordering := totalordering.New(store)
	finality := finalitymanager.New(store, topology, params, &genesis)
	executor := &echoExecutor{}

	genesisHeader := &externalapi.BlockHeader{Hash: genesis}
	genesisMeta := &externalapi.DagMetadata{BlueSet: []*externalapi.DomainHash{&genesis}, BlueScore: 1}
	if err := store.Put(&genesis, genesisHeader, genesisMeta); err != nil {
		t.Fatalf("Put genesis: %+v", err)
	}
	if err := topology.Add(genesisHeader, genesisMeta); err != nil {
		t.Fatalf("Add genesis: %+v", err)
	}
	if err := tips.AddTip(&genesis, 1); err != nil {
		t.Fatalf("AddTip genesis: %+v", err)
	}

	selector := New(store, topology, ghostdag, tips, ordering, finality, executor, params, &genesis, collector)

	return &harness{t: t, store: store, topology: topology, tips: tips, selector: selector, executor: executor, collector: collector, genesis: genesis}
}

// submit builds a header with the given id and selected parent, whose
// state and receipt roots are both a fixed value derived from id (so
// the echo executor's round-trip trivially matches), and submits it.
func (h *harness) submit(id byte, selectedParent *externalapi.DomainHash) externalapi.SubmitOutcome {
	h.t.Helper()
	hash := hashFromByte(id)
	root := hashFromByte(id)
	header := &externalapi.BlockHeader{
		Hash:           hash,
		SelectedParent: selectedParent,
		Commitments:    externalapi.BodyCommitments{StateRoot: root, ReceiptRoot: root},
	}
	outcome, err := h.selector.SubmitBlock(context.Background(), header)
	if err != nil {
		h.t.Fatalf("SubmitBlock(%s): %+v", &hash, err)
	}
	return outcome
}

func TestSubmitBlockExtendsChain(t *testing.T) {
	h := newHarness(t, 100)
	headCh := h.selector.SubscribeHead()

	outcome := h.submit(1, &h.genesis)
	if outcome.Result != externalapi.Accepted {
		t.Fatalf("submit A: outcome = %+v, want Accepted", outcome)
	}
	outcome = h.submit(2, func() *externalapi.DomainHash { hh := hashFromByte(1); return &hh }())
	if outcome.Result != externalapi.Accepted {
		t.Fatalf("submit B: outcome = %+v, want Accepted", outcome)
	}

	tip, err := h.selector.Tip()
	if err != nil {
		t.Fatalf("Tip: %+v", err)
	}
	want := hashFromByte(2)
	if *tip != want {
		t.Fatalf("Tip = %s, want %s", tip, &want)
	}

	wantApplied := []externalapi.DomainHash{hashFromByte(1), hashFromByte(2)}
	if diff := cmp.Diff(wantApplied, h.executor.applied); diff != "" {
		t.Fatalf("executor applied order mismatch (-want +got):\n%s", diff)
	}

	select {
	case event := <-headCh:
		if event.RewindTarget != nil {
			t.Fatalf("extend produced a RewindTarget: %+v", event)
		}
	default:
		t.Fatalf("no HeadChange delivered to subscriber")
	}
}

func TestSubmitBlockBuffersUnknownParentThenResolves(t *testing.T) {
	h := newHarness(t, 100)

	missingParent := hashFromByte(1)
	outcome := h.submit(2, &missingParent)
	if outcome.Result != externalapi.Buffered {
		t.Fatalf("outcome = %+v, want Buffered", outcome)
	}
	wantMissing := []externalapi.DomainHash{missingParent}
	if diff := cmp.Diff(wantMissing, outcome.MissingParents); diff != "" {
		t.Fatalf("MissingParents mismatch (-want +got):\n%s", diff)
	}

	// Now supply the missing parent; the buffered block should classify
	// automatically.
	outcome = h.submit(1, &h.genesis)
	if outcome.Result != externalapi.Accepted {
		t.Fatalf("submit parent: outcome = %+v, want Accepted", outcome)
	}

	exists, err := h.store.Contains(&missingParent)
	if err != nil || !exists {
		t.Fatalf("parent not stored: exists=%v err=%+v", exists, err)
	}
	child := hashFromByte(2)
	exists, err = h.store.Contains(&child)
	if err != nil || !exists {
		t.Fatalf("buffered block was not re-examined into the store: exists=%v err=%+v", exists, err)
	}
}

func TestSubmitBlockRejectsDuplicateParent(t *testing.T) {
	h := newHarness(t, 100)
	rejectedCh := h.selector.SubscribeRejected()

	hash := hashFromByte(1)
	header := &externalapi.BlockHeader{
		Hash:           hash,
		SelectedParent: &h.genesis,
		MergeParents:   []*externalapi.DomainHash{&h.genesis},
	}
	outcome, err := h.selector.SubmitBlock(context.Background(), header)
	if err != nil {
		t.Fatalf("SubmitBlock: %+v", err)
	}
	if outcome.Result != externalapi.Rejected || outcome.Reason != externalapi.ErrDuplicateParent {
		t.Fatalf("outcome = %+v, want Rejected/ErrDuplicateParent", outcome)
	}

	select {
	case event := <-rejectedCh:
		if event.Hash != hash || event.Reason != externalapi.ErrDuplicateParent {
			t.Fatalf("rejected event = %+v", event)
		}
	default:
		t.Fatalf("no RejectedEvent delivered to subscriber")
	}
}

func TestReorgPastFinalityIsRejected(t *testing.T) {
	h := newHarness(t, 1)

	// Canonical chain: genesis(1) -> A(2) -> B(3). With finality_depth=1
	// and tip blue score 3, A (blue score 2) finalizes.
	h.submit(1, &h.genesis)
	bHash := hashFromByte(1)
	h.submit(2, &bHash)

	tip, err := h.selector.Tip()
	if err != nil {
		t.Fatalf("Tip: %+v", err)
	}
	if *tip != hashFromByte(2) {
		t.Fatalf("Tip = %s, want the canonical chain's tip", tip)
	}

	finalized, err := h.selector.FinalizedHead()
	if err != nil {
		t.Fatalf("FinalizedHead: %+v", err)
	}
	if *finalized != hashFromByte(1) {
		t.Fatalf("FinalizedHead = %s, want block A", finalized)
	}

	rejectedCh := h.selector.SubscribeRejected()

	// A competing fork off genesis that never passes through the
	// finalized block, but eventually out-scores the canonical tip.
	h.submit(10, &h.genesis)
	f1 := hashFromByte(10)
	h.submit(11, &f1)
	f2 := hashFromByte(11)
	outcome := h.submit(12, &f2)
	if outcome.Result != externalapi.Rejected || outcome.Reason != externalapi.ErrReorgPastFinality {
		t.Fatalf("submitting the higher-scoring fork tip: outcome = %+v, want Rejected/ErrReorgPastFinality", outcome)
	}

	// The fork's tip classified successfully and is stored (a later
	// submission on top of it is not re-buffered as missing-parent), but
	// the reorg onto it was rejected: the head stays on the canonical
	// chain.
	forkTip := hashFromByte(12)
	exists, err := h.store.Contains(&forkTip)
	if err != nil || !exists {
		t.Fatalf("fork tip not stored despite the reorg onto it being rejected: exists=%v err=%+v", exists, err)
	}
	tip, err = h.selector.Tip()
	if err != nil {
		t.Fatalf("Tip: %+v", err)
	}
	if *tip != hashFromByte(2) {
		t.Fatalf("Tip = %s after a finality-violating fork, want it unchanged at block B", tip)
	}

	select {
	case event := <-rejectedCh:
		if event.Reason != externalapi.ErrReorgPastFinality {
			t.Fatalf("rejected event = %+v, want ErrReorgPastFinality", event)
		}
	default:
		t.Fatalf("no RejectedEvent delivered for the blocked reorg")
	}

	// The fork blocks submitted above (f1, f2) never descend from the
	// finalized block A, so each should have tripped the finality
	// violation check on classification.
	if got := testutil.ToFloat64(h.collector.FinalityViolations); got < 2 {
		t.Fatalf("finality_violations_total = %v, want at least 2", got)
	}
}

func TestResubmittingAClassifiedBlockIsRejected(t *testing.T) {
	h := newHarness(t, 100)

	outcome := h.submit(1, &h.genesis)
	if outcome.Result != externalapi.Accepted {
		t.Fatalf("first submit: outcome = %+v, want Accepted", outcome)
	}

	outcome = h.submit(1, &h.genesis)
	if outcome.Result != externalapi.Rejected || outcome.Reason != externalapi.ErrAlreadyClassified {
		t.Fatalf("resubmit: outcome = %+v, want Rejected/ErrAlreadyClassified", outcome)
	}
}

func TestSubmitBlockRejectsSelfReference(t *testing.T) {
	h := newHarness(t, 100)
	rejectedCh := h.selector.SubscribeRejected()

	hash := hashFromByte(1)
	header := &externalapi.BlockHeader{
		Hash:           hash,
		SelectedParent: &h.genesis,
		MergeParents:   []*externalapi.DomainHash{&hash},
	}
	outcome, err := h.selector.SubmitBlock(context.Background(), header)
	if err != nil {
		t.Fatalf("SubmitBlock: %+v", err)
	}
	if outcome.Result != externalapi.Rejected || outcome.Reason != externalapi.ErrInvalidStructure {
		t.Fatalf("outcome = %+v, want Rejected/ErrInvalidStructure", outcome)
	}

	select {
	case event := <-rejectedCh:
		if event.Hash != hash || event.Reason != externalapi.ErrInvalidStructure {
			t.Fatalf("rejected event = %+v", event)
		}
	default:
		t.Fatalf("no RejectedEvent delivered to subscriber")
	}
}

// timeoutOnceExecutor fails its first Apply call with the caller's
// context deadline, then succeeds on the retry, exercising
// applyWithTimeout's retry-once behavior without ever reaching the
// halt branch (which exits the process and can't be driven in-process).
type timeoutOnceExecutor struct {
	mtx   sync.Mutex
	calls int
}

func (e *timeoutOnceExecutor) Apply(ctx context.Context, ordered *externalapi.BlockHeader) (externalapi.DomainHash, externalapi.DomainHash, error) {
	e.mtx.Lock()
	e.calls++
	attempt := e.calls
	e.mtx.Unlock()

	if attempt == 1 {
		<-ctx.Done()
		return externalapi.DomainHash{}, externalapi.DomainHash{}, ctx.Err()
	}
	return ordered.Commitments.StateRoot, ordered.Commitments.ReceiptRoot, nil
}

func (e *timeoutOnceExecutor) Rewind(ctx context.Context, toHash *externalapi.DomainHash) error {
	return nil
}

func (e *timeoutOnceExecutor) Calls() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.calls
}

func TestApplyRetriesOnceAfterExecutorTimeout(t *testing.T) {
	genesis := hashFromByte(0)
	store := blockstore.NewMemory(&genesis)
	params := model.DefaultParams()
	params.ExecutorTimeout = 20 * time.Millisecond

	collector := metrics.NewCollector(prometheus.NewRegistry())
	topology := dagtopologymanager.New(store, params)
	ghostdag := ghostdagmanager.New(store, topology, params, collector)
	tips := tipselector.New()
	ordering := totalordering.New(store)
	finality := finalitymanager.New(store, topology, params, &genesis)
	executor := &timeoutOnceExecutor{}

	genesisHeader := &externalapi.BlockHeader{Hash: genesis}
	genesisMeta := &externalapi.DagMetadata{BlueSet: []*externalapi.DomainHash{&genesis}, BlueScore: 1}
	if err := store.Put(&genesis, genesisHeader, genesisMeta); err != nil {
		t.Fatalf("Put genesis: %+v", err)
	}
	if err := topology.Add(genesisHeader, genesisMeta); err != nil {
		t.Fatalf("Add genesis: %+v", err)
	}
	if err := tips.AddTip(&genesis, 1); err != nil {
		t.Fatalf("AddTip genesis: %+v", err)
	}

	selector := New(store, topology, ghostdag, tips, ordering, finality, executor, params, &genesis, collector)

	hash := hashFromByte(1)
	root := hashFromByte(1)
	header := &externalapi.BlockHeader{
		Hash:           hash,
		SelectedParent: &genesis,
		Commitments:    externalapi.BodyCommitments{StateRoot: root, ReceiptRoot: root},
	}
	outcome, err := selector.SubmitBlock(context.Background(), header)
	if err != nil {
		t.Fatalf("SubmitBlock: %+v", err)
	}
	if outcome.Result != externalapi.Accepted {
		t.Fatalf("outcome = %+v, want Accepted after the retry succeeds", outcome)
	}
	if got := executor.Calls(); got != 2 {
		t.Fatalf("executor.Calls() = %d, want 2 (one timeout, one successful retry)", got)
	}
}

func TestApplySuffixDedupsTransactionsAtFirstAppearance(t *testing.T) {
	h := newHarness(t, 100)

	tx1 := hashFromByte(101)
	tx2 := hashFromByte(102)

	hash1 := hashFromByte(1)
	header1 := &externalapi.BlockHeader{
		Hash:           hash1,
		SelectedParent: &h.genesis,
		Commitments:    externalapi.BodyCommitments{StateRoot: hash1, ReceiptRoot: hash1},
		TransactionIDs: []externalapi.DomainHash{tx1, tx2},
	}
	if _, err := h.selector.SubmitBlock(context.Background(), header1); err != nil {
		t.Fatalf("SubmitBlock(1): %+v", err)
	}

	// Block 2 carries tx1 again (already applied in block 1) plus a new
	// transaction; only the new one should reach the executor.
	hash2 := hashFromByte(2)
	header2 := &externalapi.BlockHeader{
		Hash:           hash2,
		SelectedParent: &hash1,
		Commitments:    externalapi.BodyCommitments{StateRoot: hash2, ReceiptRoot: hash2},
		TransactionIDs: []externalapi.DomainHash{tx1, hashFromByte(103)},
	}
	if _, err := h.selector.SubmitBlock(context.Background(), header2); err != nil {
		t.Fatalf("SubmitBlock(2): %+v", err)
	}

	if len(h.executor.appliedTxes) != 2 {
		t.Fatalf("executor.appliedTxes = %+v, want 2 entries (one per block)", h.executor.appliedTxes)
	}
	wantBlock1Txes := []externalapi.DomainHash{tx1, tx2}
	if diff := cmp.Diff(wantBlock1Txes, h.executor.appliedTxes[0]); diff != "" {
		t.Fatalf("block 1 transactions mismatch (-want +got):\n%s", diff)
	}
	// tx1 was already applied in block 1; only the new transaction
	// should have reached the executor for block 2.
	wantBlock2Txes := []externalapi.DomainHash{hashFromByte(103)}
	if diff := cmp.Diff(wantBlock2Txes, h.executor.appliedTxes[1]); diff != "" {
		t.Fatalf("block 2 transactions mismatch (-want +got):\n%s", diff)
	}
}

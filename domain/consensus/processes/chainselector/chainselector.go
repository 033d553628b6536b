// Package chainselector implements ChainSelector (spec §4.7, component
// C7): the top-level per-block state machine, the extend/reorg
// decision, and the pending-parent buffer. Grounded on daglabs-btcd's
// processes/blockprocessor/validateandinsertblock.go: that file's shape
// (validate, classify, commit, then decide how the head moves and
// re-trigger downstream work) is kept, generalized from its
// headers-first/IBD mode switch to this core's simpler always-classify
// flow, and from its reachability-manager reindex step to this core's
// bounded selected-parent-chain walk for locating a reorg's lowest
// common ancestor.
package chainselector

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/internal/logs"
	"github.com/axiomchain/axiomd/internal/metrics"
	"github.com/axiomchain/axiomd/internal/panics"
)

// Manager is a model.ChainSelector.
type Manager struct {
	store    model.BlockStore
	topology model.DAGTopologyManager
	ghostdag model.GHOSTDAGManager
	tips     model.TipSelector
	ordering model.TotalOrderingManager
	finality model.FinalityManager
	executor model.Executor
	params   *model.Params
	metrics  *metrics.Collector

	mtx sync.Mutex
	tip externalapi.DomainHash

	// pending holds every buffered header, keyed by its own hash.
	pending map[externalapi.DomainHash]*externalapi.BlockHeader
	// waiting maps a missing parent hash to the buffered blocks that
	// named it as a parent, so its arrival re-triggers them.
	waiting map[externalapi.DomainHash][]externalapi.DomainHash

	subMtx       sync.Mutex
	headSubs     []chan externalapi.HeadChange
	rejectedSubs []chan externalapi.RejectedEvent
}

// New builds a Manager rooted at genesis. genesis must already be
// staged in store (component wiring is expected to Put it before
// constructing the ChainSelector).
func New(
	store model.BlockStore,
	topology model.DAGTopologyManager,
	ghostdag model.GHOSTDAGManager,
	tips model.TipSelector,
	ordering model.TotalOrderingManager,
	finality model.FinalityManager,
	executor model.Executor,
	params *model.Params,
	genesis *externalapi.DomainHash,
	collector *metrics.Collector,
) *Manager {
	return &Manager{
		store:    store,
		topology: topology,
		ghostdag: ghostdag,
		tips:     tips,
		ordering: ordering,
		finality: finality,
		executor: executor,
		params:   params,
		metrics:  collector,
		tip:      *genesis,
		pending:  make(map[externalapi.DomainHash]*externalapi.BlockHeader),
		waiting:  make(map[externalapi.DomainHash][]externalapi.DomainHash),
	}
}

// SubmitBlock implements model.ChainSelector.
func (m *Manager) SubmitBlock(ctx context.Context, header *externalapi.BlockHeader) (externalapi.SubmitOutcome, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.submitLocked(ctx, header)
}

func (m *Manager) submitLocked(ctx context.Context, header *externalapi.BlockHeader) (externalapi.SubmitOutcome, error) {
	hash := &header.Hash

	alreadyClassified, err := m.store.Contains(hash)
	if err != nil {
		return m.fatal(err, "checking block existence")
	}
	if alreadyClassified {
		logs.ChainSelector.Debugf("block %s already classified, ignoring resubmission", hash)
		m.reject(*hash, externalapi.ErrAlreadyClassified)
		return externalapi.SubmitOutcome{Result: externalapi.Rejected, Reason: externalapi.ErrAlreadyClassified}, nil
	}

	if reason, ok := selfReferenceViolation(header); ok {
		logs.ChainSelector.Warnf("rejecting block %s: %s", hash, reason)
		m.reject(*hash, externalapi.ErrInvalidStructure)
		return externalapi.SubmitOutcome{Result: externalapi.Rejected, Reason: externalapi.ErrInvalidStructure}, nil
	}

	if reason, ok := duplicateParentViolation(header); ok {
		logs.ChainSelector.Warnf("rejecting block %s: %s", hash, reason)
		m.reject(*hash, externalapi.ErrDuplicateParent)
		return externalapi.SubmitOutcome{Result: externalapi.Rejected, Reason: externalapi.ErrDuplicateParent}, nil
	}

	missing, err := m.missingParents(header)
	if err != nil {
		return m.fatal(err, "checking parent availability")
	}
	if len(missing) > 0 {
		m.buffer(header, missing)
		if m.metrics != nil {
			m.metrics.PendingParents.Set(float64(len(m.pending)))
		}
		missingHashes := make([]externalapi.DomainHash, len(missing))
		for i, parent := range missing {
			missingHashes[i] = *parent
		}
		return externalapi.SubmitOutcome{Result: externalapi.Buffered, MissingParents: missingHashes}, nil
	}

	metadata, err := m.ghostdag.GHOSTDAG(header)
	if err != nil {
		if ruleErr, ok := externalapi.AsRuleError(err); ok && !ruleErr.ErrorCode.IsFatal() {
			logs.ChainSelector.Warnf("rejecting block %s: %s", hash, ruleErr)
			m.reject(*hash, ruleErr.ErrorCode)
			return externalapi.SubmitOutcome{Result: externalapi.Rejected, Reason: ruleErr.ErrorCode}, nil
		}
		return m.fatal(err, "classifying block")
	}

	if ctx.Err() != nil {
		return externalapi.SubmitOutcome{}, ctx.Err()
	}
	staging := model.NewStagingArea()
	staging.StageBlock(header, metadata)
	if err := m.store.PutStaged(staging, nil, nil); err != nil {
		return m.fatal(err, "persisting classified block")
	}

	if err := m.topology.Add(header, metadata); err != nil {
		return m.fatal(err, "indexing block topology")
	}
	for _, parent := range header.Parents() {
		if err := m.tips.RemoveTip(parent); err != nil {
			return m.fatal(err, "updating tip set")
		}
	}
	if err := m.tips.AddTip(hash, metadata.BlueScore); err != nil {
		return m.fatal(err, "updating tip set")
	}

	if err := m.checkFinalityViolation(hash); err != nil {
		return m.fatal(err, "checking finality violation")
	}

	if err := m.updateHead(ctx); err != nil {
		if errors.Cause(err) == errReorgRejected {
			return externalapi.SubmitOutcome{Result: externalapi.Rejected, Reason: externalapi.ErrReorgPastFinality}, nil
		}
		return m.fatal(err, "updating head")
	}

	m.reexamineBuffer(ctx, hash)
	if m.metrics != nil {
		m.metrics.PendingParents.Set(float64(len(m.pending)))
	}

	return externalapi.SubmitOutcome{Result: externalapi.Accepted}, nil
}

// checkFinalityViolation retroactively flags a classified block whose
// selected-parent chain no longer descends from the finalized head
// (grounded on daglabs-btcd's consensusstatemanager/finality.go
// isViolatingFinality check). Unlike the prospective reorg gate in
// updateHead, this never blocks anything: the block stays stored and
// eligible for future reorg decisions, the violation is only logged and
// counted, matching the teacher's log-and-continue posture for a stale
// or adversarial peer rather than treating it as a halt-class error.
func (m *Manager) checkFinalityViolation(hash *externalapi.DomainHash) error {
	finalizedHead := m.finality.FinalizedHead()
	onFinalizedChain, err := m.topology.IsInSelectedParentChainOf(finalizedHead, hash)
	if err != nil {
		return err
	}
	if !onFinalizedChain {
		logs.ChainSelector.Warnf("finality violation: block %s does not descend from finalized head %s", hash, finalizedHead)
		if m.metrics != nil {
			m.metrics.FinalityViolations.Inc()
		}
	}
	return nil
}

// updateHead recomputes the virtual tip and, if it moved, performs an
// extend or a finality-gated reorg (spec §4.7).
func (m *Manager) updateHead(ctx context.Context) error {
	newTip, err := m.tips.VirtualTip()
	if err != nil {
		return err
	}
	if *newTip == m.tip {
		return nil
	}

	oldTip := m.tip

	extends, err := m.topology.IsInSelectedParentChainOf(&oldTip, newTip)
	if err != nil {
		return err
	}

	var rewindTarget *externalapi.DomainHash
	from := oldTip
	if !extends {
		lca, err := m.lowestCommonAncestor(&oldTip, newTip)
		if err != nil {
			return err
		}

		allowed, err := m.finality.CheckReorgAllowed(&oldTip, newTip)
		if err != nil {
			return err
		}
		if !allowed {
			logs.ChainSelector.Warnf("rejecting reorg to %s: would abandon a finalized block", newTip)
			m.reject(*newTip, externalapi.ErrReorgPastFinality)
			return errReorgRejected
		}

		if err := m.executor.Rewind(ctx, lca); err != nil {
			return err
		}
		from = *lca
		rewindTarget = lca
		if m.metrics != nil {
			m.metrics.ReorgTotal.Inc()
		}
	}

	suffix, err := m.orderedSuffixSince(&from, newTip)
	if err != nil {
		return err
	}

	if err := m.applySuffix(ctx, &from, suffix); err != nil {
		return err
	}

	m.tip = *newTip

	m.publishHeadChange(externalapi.HeadChange{VirtualTip: *newTip, OrderedSuffix: suffix, RewindTarget: rewindTarget})

	if m.metrics != nil {
		newTipMeta, err := m.store.GetMetadata(newTip)
		if err != nil {
			return err
		}
		m.metrics.VirtualBlueScore.Set(float64(newTipMeta.BlueScore))
	}

	// finality.Advance fans its events out to its own subscribers
	// directly; the head change above is published first so that, per
	// spec, a subscriber of both streams always sees the head change
	// before the finality event it induces.
	if _, err := m.finality.Advance(newTip); err != nil {
		return err
	}

	finalizedHead := m.finality.FinalizedHead()
	if m.metrics != nil {
		finalizedMeta, err := m.store.GetMetadata(finalizedHead)
		if err != nil {
			return err
		}
		m.metrics.FinalizedBlueScore.Set(float64(finalizedMeta.BlueScore))
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return m.store.PutStaged(model.NewStagingArea(), newTip, finalizedHead)
}

// errReorgRejected signals that updateHead declined a reorg because
// FinalityManager.CheckReorgAllowed blocked it; submitLocked translates
// this into a Rejected outcome rather than treating it as a halt-class
// failure the way every other updateHead error is.
var errReorgRejected = errors.New("chainselector: reorg blocked by finality gate")

// applySuffix delivers each block in suffix to the executor in order
// and verifies the returned commitments. A mismatch is fatal (spec
// §4.8). Per spec §4.5's transaction-level ordering, a transaction
// carried by more than one block is handed to the executor only at its
// first appearance in canonical order; from marks the point already
// applied (and thus already "seen"), so dedup is primed from there.
func (m *Manager) applySuffix(ctx context.Context, from *externalapi.DomainHash, suffix []externalapi.DomainHash) error {
	seen, err := m.seenTransactionsUpTo(from)
	if err != nil {
		return err
	}

	for i := range suffix {
		hash := suffix[i]
		header, err := m.store.GetHeader(&hash)
		if err != nil {
			return err
		}

		deduped := *header
		deduped.TransactionIDs = make([]externalapi.DomainHash, 0, len(header.TransactionIDs))
		for _, txID := range header.TransactionIDs {
			if seen[txID] {
				continue
			}
			seen[txID] = true
			deduped.TransactionIDs = append(deduped.TransactionIDs, txID)
		}

		stateRoot, receiptRoot, err := m.applyWithTimeout(ctx, &deduped)
		if err != nil {
			return err
		}
		if stateRoot != header.Commitments.StateRoot || receiptRoot != header.Commitments.ReceiptRoot {
			err := errors.Errorf("executor commitments for block %s disagree with body_commitments", &hash)
			panics.Halt(logs.ChainSelector, "executor commitment mismatch", err)
			return err
		}
	}
	return nil
}

// seenTransactionsUpTo replays upTo's full canonical order and returns
// every transaction ID it carries, used to prime applySuffix's
// first-appearance dedup for the blocks beyond upTo.
func (m *Manager) seenTransactionsUpTo(upTo *externalapi.DomainHash) (map[externalapi.DomainHash]bool, error) {
	it, err := m.ordering.Order(upTo)
	if err != nil {
		return nil, err
	}

	seen := make(map[externalapi.DomainHash]bool)
	for {
		hash, _, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		header, err := m.store.GetHeader(hash)
		if err != nil {
			return nil, err
		}
		for _, txID := range header.TransactionIDs {
			seen[txID] = true
		}
	}
	return seen, nil
}

// applyWithTimeout calls executor.Apply bounded by ExecutorTimeout,
// retrying once on expiry before halting (spec §5: "the core retries
// once, then halts (fail-stop)").
func (m *Manager) applyWithTimeout(ctx context.Context, header *externalapi.BlockHeader) (externalapi.DomainHash, externalapi.DomainHash, error) {
	stateRoot, receiptRoot, err := m.tryApply(ctx, header)
	if isTimeoutErr(err) {
		logs.ChainSelector.Warnf("executor apply timed out for block %s, retrying once", &header.Hash)
		stateRoot, receiptRoot, err = m.tryApply(ctx, header)
	}
	if isTimeoutErr(err) {
		timeoutErr := externalapi.NewRuleError(externalapi.ErrExecutorTimeout, &header.Hash,
			"executor did not respond within the configured timeout after one retry")
		panics.Halt(logs.ChainSelector, "executor apply timed out", timeoutErr)
		return externalapi.DomainHash{}, externalapi.DomainHash{}, timeoutErr
	}
	if err != nil {
		panics.Halt(logs.ChainSelector, "executor apply failed", err)
		return externalapi.DomainHash{}, externalapi.DomainHash{}, err
	}
	return stateRoot, receiptRoot, nil
}

// tryApply invokes executor.Apply under a single ExecutorTimeout-bounded
// attempt. ExecutorTimeout <= 0 disables the bound (used by tests that
// don't care about timeout behavior).
func (m *Manager) tryApply(ctx context.Context, header *externalapi.BlockHeader) (externalapi.DomainHash, externalapi.DomainHash, error) {
	if m.params.ExecutorTimeout <= 0 {
		return m.executor.Apply(ctx, header)
	}
	applyCtx, cancel := context.WithTimeout(ctx, m.params.ExecutorTimeout)
	defer cancel()
	return m.executor.Apply(applyCtx, header)
}

func isTimeoutErr(err error) bool {
	return err != nil && errors.Is(err, context.DeadlineExceeded)
}

// orderedSuffixSince returns every block strictly after from in tip's
// canonical order, per TotalOrdering: through tip and then tip's own
// sorted mergeset, which TotalOrdering yields after tip.
func (m *Manager) orderedSuffixSince(from, tip *externalapi.DomainHash) ([]externalapi.DomainHash, error) {
	it, err := m.ordering.Order(tip)
	if err != nil {
		return nil, err
	}

	var suffix []externalapi.DomainHash
	seenFrom := false
	for {
		hash, _, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !seenFrom {
			if *hash == *from {
				seenFrom = true
			}
			continue
		}
		suffix = append(suffix, *hash)
	}
	if !seenFrom {
		return nil, errors.Errorf("block %s not found on %s's canonical order", from, tip)
	}
	return suffix, nil
}

// lowestCommonAncestor walks both selected-parent chains backward,
// bounded by the pruning window, and returns the first block common to
// both.
func (m *Manager) lowestCommonAncestor(a, b *externalapi.DomainHash) (*externalapi.DomainHash, error) {
	ancestorsOfA := make(map[externalapi.DomainHash]bool, m.params.PruningWindow)
	cursor := a
	for i := uint64(0); i < m.params.PruningWindow; i++ {
		ancestorsOfA[*cursor] = true
		header, err := m.store.GetHeader(cursor)
		if err != nil {
			return nil, err
		}
		if header.IsGenesis() {
			break
		}
		cursor = header.SelectedParent
	}

	cursor = b
	for i := uint64(0); i < m.params.PruningWindow; i++ {
		if ancestorsOfA[*cursor] {
			return cursor, nil
		}
		header, err := m.store.GetHeader(cursor)
		if err != nil {
			return nil, err
		}
		if header.IsGenesis() {
			return cursor, nil
		}
		cursor = header.SelectedParent
	}
	return nil, errors.Errorf("no common ancestor found for %s and %s within the pruning window", a, b)
}

// missingParents returns the parents of header not yet present in the
// store (I2).
func (m *Manager) missingParents(header *externalapi.BlockHeader) ([]*externalapi.DomainHash, error) {
	var missing []*externalapi.DomainHash
	for _, parent := range header.Parents() {
		exists, err := m.store.Contains(parent)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, parent)
		}
	}
	return missing, nil
}

// selfReferenceViolation checks I1 (acyclicity): a block must not name
// itself as its own selected parent or merge parent.
func selfReferenceViolation(header *externalapi.BlockHeader) (string, bool) {
	for _, parent := range header.Parents() {
		if parent.Equal(&header.Hash) {
			return "block " + header.Hash.String() + " references itself as a parent", true
		}
	}
	return "", false
}

// duplicateParentViolation checks I3: selected_parent distinct from
// every merge parent, and merge parents pairwise distinct.
func duplicateParentViolation(header *externalapi.BlockHeader) (string, bool) {
	seen := make(map[externalapi.DomainHash]bool)
	if header.SelectedParent != nil {
		seen[*header.SelectedParent] = true
	}
	for _, parent := range header.MergeParents {
		if seen[*parent] {
			return "duplicate parent " + parent.String(), true
		}
		seen[*parent] = true
	}
	return "", false
}

// buffer records header under PendingParents, indexed by every parent
// it is still missing.
func (m *Manager) buffer(header *externalapi.BlockHeader, missing []*externalapi.DomainHash) {
	m.pending[header.Hash] = header
	for _, parent := range missing {
		m.waiting[*parent] = append(m.waiting[*parent], header.Hash)
	}
	logs.ChainSelector.Debugf("buffered block %s pending %d parent(s)", &header.Hash, len(missing))
}

// reexamineBuffer re-attempts every block that was waiting on hash,
// now that it has been classified.
func (m *Manager) reexamineBuffer(ctx context.Context, hash *externalapi.DomainHash) {
	waiters := m.waiting[*hash]
	delete(m.waiting, *hash)

	for _, waiterHash := range waiters {
		header, ok := m.pending[waiterHash]
		if !ok {
			continue
		}
		delete(m.pending, waiterHash)
		if _, err := m.submitLocked(ctx, header); err != nil {
			logs.ChainSelector.Errorf("re-examining buffered block %s: %+v", &waiterHash, err)
		}
	}
}

// fatal logs a store/halt-class error and invokes the process halt (spec
// §7: store write failure is fatal).
func (m *Manager) fatal(err error, context string) (externalapi.SubmitOutcome, error) {
	panics.Halt(logs.ChainSelector, context, err)
	return externalapi.SubmitOutcome{}, err
}

// Tip implements model.ChainSelector.
func (m *Manager) Tip() (*externalapi.DomainHash, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	tip := m.tip
	return &tip, nil
}

// FinalizedHead implements model.ChainSelector.
func (m *Manager) FinalizedHead() (*externalapi.DomainHash, error) {
	return m.finality.FinalizedHead(), nil
}

// BlueScore implements model.ChainSelector.
func (m *Manager) BlueScore(hash *externalapi.DomainHash) (uint64, error) {
	metadata, err := m.store.GetMetadata(hash)
	if err != nil {
		return 0, err
	}
	return metadata.BlueScore, nil
}

// Status implements model.ChainSelector.
func (m *Manager) Status(hash *externalapi.DomainHash) (externalapi.FinalityStatus, error) {
	return m.finality.Status(hash)
}

// SubscribeHead implements model.ChainSelector.
func (m *Manager) SubscribeHead() <-chan externalapi.HeadChange {
	ch := make(chan externalapi.HeadChange, 64)
	m.subMtx.Lock()
	defer m.subMtx.Unlock()
	m.headSubs = append(m.headSubs, ch)
	return ch
}

// SubscribeFinality implements model.ChainSelector: proxies the
// FinalityManager's own subscription directly, since it already
// fans events out per subscriber.
func (m *Manager) SubscribeFinality() <-chan externalapi.FinalityEvent {
	return m.finality.Subscribe()
}

// SubscribeRejected implements model.ChainSelector.
func (m *Manager) SubscribeRejected() <-chan externalapi.RejectedEvent {
	ch := make(chan externalapi.RejectedEvent, 64)
	m.subMtx.Lock()
	defer m.subMtx.Unlock()
	m.rejectedSubs = append(m.rejectedSubs, ch)
	return ch
}

func (m *Manager) publishHeadChange(event externalapi.HeadChange) {
	m.subMtx.Lock()
	defer m.subMtx.Unlock()
	for _, ch := range m.headSubs {
		select {
		case ch <- event:
		default:
		}
	}
}

// reject publishes a RejectedEvent and records it against the
// rejected-blocks-by-reason metric.
func (m *Manager) reject(hash externalapi.DomainHash, reason externalapi.ErrorCode) {
	m.publishRejected(externalapi.RejectedEvent{Hash: hash, Reason: reason})
	if m.metrics != nil {
		m.metrics.RejectedTotal.WithLabelValues(reason.String()).Inc()
	}
}

func (m *Manager) publishRejected(event externalapi.RejectedEvent) {
	m.subMtx.Lock()
	defer m.subMtx.Unlock()
	for _, ch := range m.rejectedSubs {
		select {
		case ch <- event:
		default:
		}
	}
}

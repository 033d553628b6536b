package externalapi

// BodyCommitments are the opaque roots the executor attaches to a block
// when it is produced. The core transports and compares them; it never
// derives them (see design notes on the wall-clock/root-computation
// ambiguity this spec resolves by treating the executor as the single
// source of truth).
type BodyCommitments struct {
	TxRoot       DomainHash
	StateRoot    DomainHash
	ReceiptRoot  DomainHash
	ArtifactRoot DomainHash
}

// Equal reports whether two BodyCommitments carry the same roots.
func (c *BodyCommitments) Equal(other *BodyCommitments) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.TxRoot == other.TxRoot &&
		c.StateRoot == other.StateRoot &&
		c.ReceiptRoot == other.ReceiptRoot &&
		c.ArtifactRoot == other.ArtifactRoot
}

// BlockHeader is immutable once accepted into the DAG (I8). Transaction
// bodies are not part of the header: it lists only their IDs
// (TransactionIDs); the bodies are committed through
// BodyCommitments.TxRoot and are supplied to the executor out of band.
type BlockHeader struct {
	Hash      DomainHash
	// SelectedParent is nil only for genesis.
	SelectedParent *DomainHash
	MergeParents   []*DomainHash
	Height         uint64
	TimestampMs    int64
	Commitments    BodyCommitments
	// TransactionIDs lists the transactions this block carries, in the
	// order TotalOrdering applies them within the block.
	TransactionIDs []DomainHash
}

// Parents returns SelectedParent (if any) followed by MergeParents, the
// full parent set I3 requires to be distinct.
func (h *BlockHeader) Parents() []*DomainHash {
	if h.SelectedParent == nil {
		return CloneHashes(h.MergeParents)
	}
	parents := make([]*DomainHash, 0, len(h.MergeParents)+1)
	parents = append(parents, h.SelectedParent)
	parents = append(parents, h.MergeParents...)
	return parents
}

// IsGenesis reports whether this header has no selected parent.
func (h *BlockHeader) IsGenesis() bool {
	return h.SelectedParent == nil
}

// DagMetadata is GHOSTDAG-derived data persisted alongside a BlockHeader.
type DagMetadata struct {
	SelectedParent *DomainHash
	BlueSet        []*DomainHash
	BlueScore      uint64
	MergesetBlue   []*DomainHash
	MergesetRed    []*DomainHash
}

// IsBlue reports whether hash is a member of this block's blue set.
func (m *DagMetadata) IsBlue(hash *DomainHash) bool {
	for _, blue := range m.BlueSet {
		if blue.Equal(hash) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used when staging data that must not alias
// the cache or the committed store.
func (m *DagMetadata) Clone() *DagMetadata {
	clone := &DagMetadata{
		BlueScore:    m.BlueScore,
		BlueSet:      CloneHashes(m.BlueSet),
		MergesetBlue: CloneHashes(m.MergesetBlue),
		MergesetRed:  CloneHashes(m.MergesetRed),
	}
	if m.SelectedParent != nil {
		clone.SelectedParent = m.SelectedParent.Clone()
	}
	return clone
}

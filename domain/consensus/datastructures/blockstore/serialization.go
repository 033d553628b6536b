package blockstore

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
)

// dbHeader/dbMetadata are the on-disk shapes for BlockHeader/DagMetadata.
// cbor is used instead of the teacher's protobuf: protobuf requires a
// generated .pb.go from a .proto file, and no protoc toolchain or
// checked-in generated code exists in this exercise's reference pack
// (see DESIGN.md). cbor needs no code generation and round-trips plain
// Go structs, which is the property the teacher's staging/commit code
// relies on (serialize at Commit time, deserialize on Get).
type dbHeader struct {
	Hash           []byte
	SelectedParent []byte
	MergeParents   [][]byte
	Height         uint64
	TimestampMs    int64
	TxRoot         []byte
	StateRoot      []byte
	ReceiptRoot    []byte
	ArtifactRoot   []byte
	TransactionIDs [][]byte
}

type dbMetadata struct {
	SelectedParent []byte
	BlueSet        [][]byte
	BlueScore      uint64
	MergesetBlue   [][]byte
	MergesetRed    [][]byte
}

func encodeHeader(h *externalapi.BlockHeader) ([]byte, error) {
	dto := &dbHeader{
		Hash:           h.Hash[:],
		MergeParents:   hashesToBytes(h.MergeParents),
		Height:         h.Height,
		TimestampMs:    h.TimestampMs,
		TxRoot:         h.Commitments.TxRoot[:],
		StateRoot:      h.Commitments.StateRoot[:],
		ReceiptRoot:    h.Commitments.ReceiptRoot[:],
		ArtifactRoot:   h.Commitments.ArtifactRoot[:],
		TransactionIDs: hashValuesToBytes(h.TransactionIDs),
	}
	if h.SelectedParent != nil {
		dto.SelectedParent = h.SelectedParent[:]
	}
	return cbor.Marshal(dto)
}

func decodeHeader(data []byte) (*externalapi.BlockHeader, error) {
	var dto dbHeader
	if err := cbor.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	h := &externalapi.BlockHeader{
		Hash:           bytesToHash(dto.Hash),
		MergeParents:   bytesToHashes(dto.MergeParents),
		Height:         dto.Height,
		TimestampMs:    dto.TimestampMs,
		TransactionIDs: bytesToHashValues(dto.TransactionIDs),
	}
	if len(dto.SelectedParent) > 0 {
		sp := bytesToHash(dto.SelectedParent)
		h.SelectedParent = &sp
	}
	h.Commitments.TxRoot = bytesToHash(dto.TxRoot)
	h.Commitments.StateRoot = bytesToHash(dto.StateRoot)
	h.Commitments.ReceiptRoot = bytesToHash(dto.ReceiptRoot)
	h.Commitments.ArtifactRoot = bytesToHash(dto.ArtifactRoot)
	return h, nil
}

func encodeMetadata(m *externalapi.DagMetadata) ([]byte, error) {
	dto := &dbMetadata{
		BlueSet:      hashesToBytes(m.BlueSet),
		BlueScore:    m.BlueScore,
		MergesetBlue: hashesToBytes(m.MergesetBlue),
		MergesetRed:  hashesToBytes(m.MergesetRed),
	}
	if m.SelectedParent != nil {
		dto.SelectedParent = m.SelectedParent[:]
	}
	return cbor.Marshal(dto)
}

func decodeMetadata(data []byte) (*externalapi.DagMetadata, error) {
	var dto dbMetadata
	if err := cbor.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	m := &externalapi.DagMetadata{
		BlueSet:      bytesToHashes(dto.BlueSet),
		BlueScore:    dto.BlueScore,
		MergesetBlue: bytesToHashes(dto.MergesetBlue),
		MergesetRed:  bytesToHashes(dto.MergesetRed),
	}
	if len(dto.SelectedParent) > 0 {
		sp := bytesToHash(dto.SelectedParent)
		m.SelectedParent = &sp
	}
	return m, nil
}

func hashesToBytes(hashes []*externalapi.DomainHash) [][]byte {
	out := make([][]byte, len(hashes))
	for i, h := range hashes {
		out[i] = h[:]
	}
	return out
}

func hashValuesToBytes(hashes []externalapi.DomainHash) [][]byte {
	out := make([][]byte, len(hashes))
	for i := range hashes {
		out[i] = hashes[i][:]
	}
	return out
}

func bytesToHashes(raw [][]byte) []*externalapi.DomainHash {
	out := make([]*externalapi.DomainHash, len(raw))
	for i, b := range raw {
		h := bytesToHash(b)
		out[i] = &h
	}
	return out
}

func bytesToHashValues(raw [][]byte) []externalapi.DomainHash {
	out := make([]externalapi.DomainHash, len(raw))
	for i, b := range raw {
		out[i] = bytesToHash(b)
	}
	return out
}

func bytesToHash(raw []byte) externalapi.DomainHash {
	var h externalapi.DomainHash
	copy(h[:], raw)
	return h
}

package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/rusladder/LadderChain/internal/blocklog"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

// MaxSigCheckDepth bounds recursive authority resolution (spec.md §4.4 step
// 4: "recursively resolve weighted-threshold authorities to depth ≤
// MAX_SIG_CHECK_DEPTH").
const MaxSigCheckDepth = 2

// Transaction is the signed payload spec.md §6 TaPoS section describes:
// ref_block fields pin it to a recent block, expiration bounds its
// lifetime, and the operation list is applied in order.
type Transaction struct {
	RefBlockNum    uint16
	RefBlockPrefix uint32
	Expiration     time.Time
	Operations     []ops.Operation
	SigningKeys    []types.PublicKey // resolved out-of-band; ECDSA recovery is an external collaborator per spec.md §1
}

// transactionJSON is Transaction's wire shape: ops.Operation is an
// interface, so its elements are encoded through ops.Marshal/ops.Unmarshal
// to keep each variant's concrete type across the round trip.
type transactionJSON struct {
	RefBlockNum    uint16
	RefBlockPrefix uint32
	Expiration     time.Time
	Operations     []json.RawMessage
	SigningKeys    []types.PublicKey
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	out := transactionJSON{
		RefBlockNum:    t.RefBlockNum,
		RefBlockPrefix: t.RefBlockPrefix,
		Expiration:     t.Expiration,
		SigningKeys:    t.SigningKeys,
		Operations:     make([]json.RawMessage, len(t.Operations)),
	}
	for i, op := range t.Operations {
		raw, err := ops.Marshal(op)
		if err != nil {
			return nil, err
		}
		out.Operations[i] = raw
	}
	return json.Marshal(out)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var in transactionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.RefBlockNum = in.RefBlockNum
	t.RefBlockPrefix = in.RefBlockPrefix
	t.Expiration = in.Expiration
	t.SigningKeys = in.SigningKeys
	t.Operations = make([]ops.Operation, len(in.Operations))
	for i, raw := range in.Operations {
		op, err := ops.Unmarshal(raw)
		if err != nil {
			return err
		}
		t.Operations[i] = op
	}
	return nil
}

// Extensions carries the per-block reported values spec.md §4.4 step 3
// names: "reported binary version, hardfork vote".
type Extensions struct {
	RunningVersion      string
	HardforkVersionVote string
}

// BlockHeader is spec.md §6's block header shape.
type BlockHeader struct {
	PreviousID            types.BlockID
	Timestamp             time.Time
	Witness               types.AccountName
	TransactionMerkleRoot [32]byte
	Extensions            Extensions
}

// Block is a signed header plus its transaction list.
type Block struct {
	Header       BlockHeader
	SigningKey   types.PublicKey // the witness key that allegedly signed this header
	Transactions []Transaction
}

// ComputeID derives the block id per spec.md §6: "first 160 bits of
// SHA-256 of the header, with the high 32 bits overwritten by the
// big-endian block number".
func ComputeID(h BlockHeader, blockNum uint32) types.BlockID {
	buf := make([]byte, 0, 64)
	buf = append(buf, h.PreviousID[:]...)
	var tbuf [8]byte
	binary.BigEndian.PutUint64(tbuf[:], uint64(h.Timestamp.Unix()))
	buf = append(buf, tbuf[:]...)
	buf = append(buf, []byte(h.Witness)...)
	buf = append(buf, h.TransactionMerkleRoot[:]...)
	buf = append(buf, []byte(h.Extensions.RunningVersion)...)
	buf = append(buf, []byte(h.Extensions.HardforkVersionVote)...)

	sum := sha256.Sum256(buf)
	var id types.BlockID
	copy(id[:], sum[:20])
	binary.BigEndian.PutUint32(id[:4], blockNum)
	return id
}

// MerkleRoot computes the transaction-list merkle root spec.md §6 names,
// degenerating to the zero hash for an empty block and to a single
// transaction's own hash for a one-transaction block, with the usual
// pairwise-SHA256 combine above that (grounded on the "Merkle check"
// wording of spec.md §4.4 step 1, which leaves the combine function an
// implementation detail).
func MerkleRoot(txs []Transaction) [32]byte {
	if len(txs) == 0 {
		return [32]byte{}
	}
	layer := make([][32]byte, len(txs))
	for i, tx := range txs {
		layer[i] = hashTransaction(tx)
	}
	for len(layer) > 1 {
		next := make([][32]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			combined := append(append([]byte{}, layer[i][:]...), layer[i+1][:]...)
			next = append(next, sha256.Sum256(combined))
		}
		layer = next
	}
	return layer[0]
}

func hashTransaction(tx Transaction) [32]byte {
	buf := make([]byte, 0, 32)
	var tbuf [8]byte
	binary.BigEndian.PutUint16(tbuf[:2], tx.RefBlockNum)
	binary.BigEndian.PutUint32(tbuf[2:6], tx.RefBlockPrefix)
	buf = append(buf, tbuf[:6]...)
	for _, op := range tx.Operations {
		buf = append(buf, []byte(op.OpName())...)
	}
	return sha256.Sum256(buf)
}

// blockIDPrefix returns the second 32 bits of id, the value every
// transaction's ref_block_prefix must match against its referenced block
// (spec.md §6 TaPoS).
func blockIDPrefix(id types.BlockID) uint32 {
	return binary.BigEndian.Uint32(id[4:8])
}

// encodeBlock serializes a Block for the payload of a blocklog.StoredBlock.
// JSON, not a binary wire codec, since no external peer ever decodes this
// format (spec.md §1: networking is an external collaborator).
func encodeBlock(b Block) []byte {
	raw, err := json.Marshal(b)
	if err != nil {
		// Operations are plain structs of basic types; marshaling cannot
		// fail short of a programming error.
		panic(errs.Wrap(errs.KindFatal, err, "encoding block for block log"))
	}
	return raw
}

// decodeBlock is the inverse of encodeBlock, used when the controller needs
// a branch member's body back for fork-switch replay (internal/blocklog's
// own callers never need the body, only StoredBlock's header fields, so the
// codec lives here rather than in blocklog).
func decodeBlock(stored blocklog.StoredBlock) (Block, bool) {
	var b Block
	if err := json.Unmarshal(stored.Raw, &b); err != nil {
		return Block{}, false
	}
	return b, true
}

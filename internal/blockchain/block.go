package blockchain

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/VeltarosLabs/powledger/internal/crypto"
)

// Fields are the inputs of a block fingerprint.
type Fields struct {
	Timestamp       int64
	Payload         Payload
	PrevFingerprint string
	Nonce           uint64
}

// Block is one ledger entry. Fingerprint always equals
// ComputeFingerprint(Algorithm, b.Fields()) once the block has been built by
// NewBlock or mined.
type Block struct {
	Timestamp       int64            `json:"timestamp"`
	Payload         Payload          `json:"payload"`
	PrevFingerprint string           `json:"previousFingerprint"`
	Nonce           uint64           `json:"nonce"`
	Fingerprint     string           `json:"fingerprint"`
	Algorithm       crypto.Algorithm `json:"algorithm"`
}

// NewBlock builds a block with nonce 0 and computes its fingerprint.
func NewBlock(timestamp int64, payload Payload, prevFingerprint string) (*Block, error) {
	b := &Block{
		Timestamp:       timestamp,
		Payload:         payload,
		PrevFingerprint: prevFingerprint,
		Algorithm:       crypto.DefaultAlgorithm,
	}
	if err := b.Recompute(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Block) Fields() Fields {
	return Fields{
		Timestamp:       b.Timestamp,
		Payload:         b.Payload,
		PrevFingerprint: b.PrevFingerprint,
		Nonce:           b.Nonce,
	}
}

// Recompute refreshes Fingerprint from the block's current fields.
func (b *Block) Recompute() error {
	fp, err := ComputeFingerprint(b.Algorithm, b.Fields())
	if err != nil {
		return err
	}
	b.Fingerprint = fp
	return nil
}

// Verify checks the stored fingerprint against a fresh computation.
func (b *Block) Verify() error {
	fp, err := ComputeFingerprint(b.Algorithm, b.Fields())
	if err != nil {
		return err
	}
	if fp != b.Fingerprint {
		return ErrFingerprintMismatch
	}
	return nil
}

// ComputeFingerprint hashes the canonical encoding of f and returns it as
// lowercase hex.
//
// The preimage is the msgpack array [timestamp, payload, prevFingerprint,
// nonce]; the nonce is always written as a fixed-width uint64 so a mining
// search can reuse everything before it.
func ComputeFingerprint(algo crypto.Algorithm, f Fields) (string, error) {
	prefix, err := preimagePrefix(f)
	if err != nil {
		return "", err
	}
	return fingerprint(algo, appendNonce(prefix, f.Nonce))
}

func preimagePrefix(f Fields) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeArrayLen(4); err != nil {
		return nil, err
	}
	if err := enc.EncodeInt(f.Timestamp); err != nil {
		return nil, err
	}
	if err := f.Payload.EncodeMsgpack(enc); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(f.PrevFingerprint); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// msgpack uint 64 marker.
const codeUint64 = 0xcf

func appendNonce(prefix []byte, nonce uint64) []byte {
	out := make([]byte, len(prefix), len(prefix)+9)
	copy(out, prefix)
	out = append(out, codeUint64)
	return binary.BigEndian.AppendUint64(out, nonce)
}

func fingerprint(algo crypto.Algorithm, preimage []byte) (string, error) {
	sum, err := crypto.Sum256(algo, preimage)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return crypto.Hex32(sum), nil
}

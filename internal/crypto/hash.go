package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names a 256-bit hash primitive usable for block fingerprints.
type Algorithm string

const (
	SHA256    Algorithm = "sha256"
	Keccak256 Algorithm = "keccak256"
	Blake2b   Algorithm = "blake2b-256"
)

// DefaultAlgorithm is used when a block or chain does not name one.
const DefaultAlgorithm = SHA256

// HexLen is the length of a hex-rendered 256-bit digest.
const HexLen = 64

var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithms lists the supported primitives in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, Keccak256, Blake2b}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sha256", "sha-256":
		return SHA256, nil
	case "keccak256", "keccak-256":
		return Keccak256, nil
	case "blake2b", "blake2b-256", "blake2b256":
		return Blake2b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

func (a Algorithm) Valid() bool {
	switch a {
	case SHA256, Keccak256, Blake2b:
		return true
	}
	return false
}

func (a Algorithm) String() string { return string(a) }

// Sum256 hashes data with the named primitive. An empty algorithm means
// DefaultAlgorithm.
func Sum256(a Algorithm, data []byte) ([32]byte, error) {
	switch a {
	case "", SHA256:
		return sha256.Sum256(data), nil
	case Keccak256:
		var out [32]byte
		copy(out[:], ethcrypto.Keccak256(data))
		return out, nil
	case Blake2b:
		return blake2b.Sum256(data), nil
	default:
		return [32]byte{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Hex32 renders a digest as lowercase, unprefixed hex.
func Hex32(h [32]byte) string {
	return common.Bytes2Hex(h[:])
}

// IsHex reports whether s is a lowercase hex string of HexLen characters.
func IsHex(s string) bool {
	if len(s) != HexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

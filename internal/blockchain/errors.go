package blockchain

import (
	"errors"
	"fmt"

	"github.com/VeltarosLabs/powledger/internal/consensus"
)

var (
	ErrEmptyChain          = errors.New("chain has no blocks")
	ErrSerialization       = errors.New("payload cannot be canonically encoded")
	ErrInvalidDifficulty   = consensus.ErrInvalidDifficulty
	ErrInsufficientWork    = consensus.ErrInsufficientWork
	ErrMiningCanceled      = errors.New("mining canceled")
	ErrAttemptsExhausted   = errors.New("mining attempts exhausted")
	ErrNonceExhausted      = errors.New("nonce space exhausted")
	ErrFingerprintMismatch = errors.New("block fingerprint does not match computed fingerprint")
	ErrLinkMismatch        = errors.New("previous fingerprint does not match predecessor")
)

// VerifyError locates a failed integrity check within a chain.
type VerifyError struct {
	Height int
	Err    error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("block %d: %v", e.Height, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

package metrics

import (
	"errors"

	"github.com/VeltarosLabs/powledger/internal/blockchain"
)

// FailureReason maps a mining error to a low-cardinality label value.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, blockchain.ErrMiningCanceled):
		return "canceled"
	case errors.Is(err, blockchain.ErrAttemptsExhausted):
		return "attempts_exhausted"
	case errors.Is(err, blockchain.ErrNonceExhausted):
		return "nonce_exhausted"
	case errors.Is(err, blockchain.ErrSerialization):
		return "serialization"
	default:
		return "other"
	}
}

package blockchain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
)

// cancelCheckEvery is how many hashes run between context polls.
const cancelCheckEvery = 4096

// MineResult describes a finished search.
type MineResult struct {
	Difficulty int
	Attempts   uint64
	Elapsed    time.Duration
}

type mineConfig struct {
	maxAttempts uint64
	observers   []Observer
}

type MineOption func(*mineConfig)

// WithAttemptLimit caps the number of fingerprints computed. Zero means no cap.
func WithAttemptLimit(n uint64) MineOption {
	return func(c *mineConfig) { c.maxAttempts = n }
}

// WithObserver registers a sink for the completion or failure notice.
func WithObserver(o Observer) MineOption {
	return func(c *mineConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// Mine increments the nonce until the fingerprint starts with difficulty '0'
// hex digits. The block keeps a consistent fingerprint at every step, also
// when the search stops early on cancellation or an attempts cap.
func (b *Block) Mine(ctx context.Context, difficulty int, opts ...MineOption) (MineResult, error) {
	cfg := mineConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	res := MineResult{Difficulty: difficulty}

	if err := consensus.ValidateDifficulty(difficulty); err != nil {
		return res, err
	}
	prefix, err := preimagePrefix(b.Fields())
	if err != nil {
		return res, err
	}
	preimage := appendNonce(prefix, b.Nonce)
	nonceAt := len(prefix) + 1

	fp, err := fingerprint(b.Algorithm, preimage)
	if err != nil {
		return res, err
	}

	start := time.Now()
	b.Fingerprint = fp
	res.Attempts = 1

	fail := func(err error) (MineResult, error) {
		res.Elapsed = time.Since(start)
		for _, o := range cfg.observers {
			o.MiningFailed(*b, err)
		}
		return res, err
	}

	for !consensus.MeetsDifficulty(b.Fingerprint, difficulty) {
		if cfg.maxAttempts > 0 && res.Attempts >= cfg.maxAttempts {
			return fail(fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, res.Attempts))
		}
		if (res.Attempts-1)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fail(fmt.Errorf("%w: %w", ErrMiningCanceled, err))
			}
		}
		if b.Nonce == math.MaxUint64 {
			return fail(ErrNonceExhausted)
		}

		nonce := b.Nonce + 1
		binary.BigEndian.PutUint64(preimage[nonceAt:], nonce)
		fp, err := fingerprint(b.Algorithm, preimage)
		if err != nil {
			return fail(err)
		}
		b.Nonce = nonce
		b.Fingerprint = fp
		res.Attempts++
	}

	res.Elapsed = time.Since(start)
	for _, o := range cfg.observers {
		o.BlockMined(*b, res)
	}
	return res, nil
}

package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
	"github.com/VeltarosLabs/powledger/internal/crypto"
)

const (
	// DefaultDifficulty is the number of leading zero hex digits a new chain
	// requires.
	DefaultDifficulty = 2

	GenesisLabel           = "Genesis Block"
	GenesisPrevFingerprint = "0"
)

// Chain is an append-only sequence of mined blocks. Index 0 is the genesis
// block. A Chain has a single owner and is not safe for concurrent use.
type Chain struct {
	blocks      []*Block
	difficulty  int
	algorithm   crypto.Algorithm
	maxAttempts uint64
	observers   []Observer
	now         func() time.Time
}

type Option func(*Chain) error

func WithDifficulty(d int) Option {
	return func(c *Chain) error {
		if err := consensus.ValidateDifficulty(d); err != nil {
			return err
		}
		c.difficulty = d
		return nil
	}
}

func WithAlgorithm(a crypto.Algorithm) Option {
	return func(c *Chain) error {
		if !a.Valid() {
			return fmt.Errorf("%w: %q", crypto.ErrUnknownAlgorithm, string(a))
		}
		c.algorithm = a
		return nil
	}
}

// WithClock overrides the wall clock used for the genesis timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}

func WithObservers(obs ...Observer) Option {
	return func(c *Chain) error {
		for _, o := range obs {
			if o != nil {
				c.observers = append(c.observers, o)
			}
		}
		return nil
	}
}

// WithMaxAttempts caps every mining search run by Append. Zero means no cap.
func WithMaxAttempts(n uint64) Option {
	return func(c *Chain) error {
		c.maxAttempts = n
		return nil
	}
}

// New creates a chain holding only a freshly stamped genesis block.
func New(opts ...Option) (*Chain, error) {
	c := &Chain{
		difficulty: DefaultDifficulty,
		algorithm:  crypto.DefaultAlgorithm,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	g, err := NewGenesisBlock(c.now().UnixMilli(), c.algorithm)
	if err != nil {
		return nil, err
	}
	c.blocks = []*Block{g}
	return c, nil
}

// NewGenesisBlock builds the unmined first block of a chain.
func NewGenesisBlock(timestamp int64, algo crypto.Algorithm) (*Block, error) {
	g := &Block{
		Timestamp:       timestamp,
		Payload:         Text(GenesisLabel),
		PrevFingerprint: GenesisPrevFingerprint,
		Algorithm:       algo,
	}
	if err := g.Recompute(); err != nil {
		return nil, err
	}
	return g, nil
}

func (c *Chain) Difficulty() int             { return c.difficulty }
func (c *Chain) Algorithm() crypto.Algorithm { return c.algorithm }
func (c *Chain) Len() int                    { return len(c.blocks) }

// SetDifficulty changes the difficulty used by later appends. Blocks already
// in the chain are not touched.
func (c *Chain) SetDifficulty(d int) error {
	if err := consensus.ValidateDifficulty(d); err != nil {
		return err
	}
	c.difficulty = d
	return nil
}

// Latest returns a copy of the last block.
func (c *Chain) Latest() (Block, error) {
	if len(c.blocks) == 0 {
		return Block{}, ErrEmptyChain
	}
	return *c.blocks[len(c.blocks)-1], nil
}

// Block returns a copy of the block at height i.
func (c *Chain) Block(i int) (Block, bool) {
	if i < 0 || i >= len(c.blocks) {
		return Block{}, false
	}
	return *c.blocks[i], true
}

// Blocks returns copies of every block, genesis first.
func (c *Chain) Blocks() []Block {
	out := make([]Block, 0, len(c.blocks))
	for _, b := range c.blocks {
		out = append(out, *b)
	}
	return out
}

// Append links nb to the current tip, mines it at the chain difficulty and
// stores a copy. On success nb reflects the mined state. On any failure
// neither nb nor the chain is changed.
func (c *Chain) Append(ctx context.Context, nb *Block) error {
	if nb == nil {
		return fmt.Errorf("append: nil block")
	}
	if err := consensus.ValidateDifficulty(c.difficulty); err != nil {
		return err
	}
	tip, err := c.Latest()
	if err != nil {
		return err
	}

	// The link must be fixed before mining so the proof covers the position.
	work := *nb
	work.PrevFingerprint = tip.Fingerprint
	work.Algorithm = c.algorithm

	opts := make([]MineOption, 0, len(c.observers)+1)
	opts = append(opts, WithAttemptLimit(c.maxAttempts))
	for _, o := range c.observers {
		opts = append(opts, WithObserver(o))
	}
	if _, err := work.Mine(ctx, c.difficulty, opts...); err != nil {
		return fmt.Errorf("append block %d: %w", len(c.blocks), err)
	}

	*nb = work
	c.blocks = append(c.blocks, &work)
	return nil
}

// IsValid reports whether Verify finds no broken block.
func (c *Chain) IsValid() bool {
	return c.Verify() == nil
}

// Verify walks the chain from height 1 and reports the first block whose
// stored fingerprint differs from a recomputation or whose previous
// fingerprint does not match its predecessor. Proof-of-work is not checked
// here; see AuditWork.
func (c *Chain) Verify() error {
	for i := 1; i < len(c.blocks); i++ {
		cur, prev := c.blocks[i], c.blocks[i-1]

		if err := cur.Verify(); err != nil {
			return &VerifyError{Height: i, Err: err}
		}
		if cur.PrevFingerprint != prev.Fingerprint {
			return &VerifyError{Height: i, Err: ErrLinkMismatch}
		}
	}
	return nil
}

// AuditWork checks that every non-genesis fingerprint meets the current
// difficulty. It is independent of Verify.
func (c *Chain) AuditWork() error {
	pow, err := consensus.NewPoW(c.difficulty)
	if err != nil {
		return err
	}
	for i := 1; i < len(c.blocks); i++ {
		if err := pow.Check(c.blocks[i].Fingerprint); err != nil {
			return &VerifyError{Height: i, Err: err}
		}
	}
	return nil
}

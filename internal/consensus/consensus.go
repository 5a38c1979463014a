package consensus

import "errors"

// Engine decides whether a sealed fingerprint is acceptable.
type Engine interface {
	Check(fingerprint string) error
}

var (
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInsufficientWork  = errors.New("fingerprint does not meet difficulty")
)

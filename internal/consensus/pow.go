package consensus

import (
	"fmt"
	"math"
)

// MaxDifficulty is the number of hex digits in a 256-bit fingerprint. Anything
// above it can never be satisfied.
const MaxDifficulty = 64

// PoW requires Difficulty leading '0' hex digits in a fingerprint.
type PoW struct {
	Difficulty int
}

func NewPoW(difficulty int) (PoW, error) {
	if err := ValidateDifficulty(difficulty); err != nil {
		return PoW{}, err
	}
	return PoW{Difficulty: difficulty}, nil
}

func (p PoW) Check(fingerprint string) error {
	if !MeetsDifficulty(fingerprint, p.Difficulty) {
		return fmt.Errorf("%w: want %d leading zeros", ErrInsufficientWork, p.Difficulty)
	}
	return nil
}

func ValidateDifficulty(d int) error {
	if d < 0 || d > MaxDifficulty {
		return fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidDifficulty, d, MaxDifficulty)
	}
	return nil
}

// MeetsDifficulty reports whether the first d characters of fingerprint are '0'.
func MeetsDifficulty(fingerprint string, d int) bool {
	if d <= 0 {
		return true
	}
	if len(fingerprint) < d {
		return false
	}
	for i := 0; i < d; i++ {
		if fingerprint[i] != '0' {
			return false
		}
	}
	return true
}

// ExpectedAttempts is the mean number of hashes needed to meet d.
func ExpectedAttempts(d int) float64 {
	return math.Pow(16, float64(d))
}

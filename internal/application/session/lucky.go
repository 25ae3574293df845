package session

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// LuckyNumberRange bounds the drawn number to [0, LuckyNumberRange)
const LuckyNumberRange = 1000

// DrawLuckyNumber draws the number used as requested account id, requested
// pool id and ticket number
func DrawLuckyNumber(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(LuckyNumberRange))
	if err != nil {
		return nil, fmt.Errorf("failed to draw lucky number: %w", err)
	}
	return n, nil
}

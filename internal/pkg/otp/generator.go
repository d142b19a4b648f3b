package otp

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pquerna/otp"
)

// Generator produces one-time codes.
type Generator interface {
	Generate() (string, error)
}

// Numeric generates uniformly random, zero-padded decimal codes.
type Numeric struct {
	digits otp.Digits
	limit  *big.Int
	random io.Reader
}

// NewNumeric returns a generator for codes of the given length.
//
// Anything other than 6 or 8 digits falls back to 6.
func NewNumeric(digits otp.Digits) *Numeric {
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}

	limit := big.NewInt(1)
	for range digits.Length() {
		limit.Mul(limit, big.NewInt(10))
	}

	return &Numeric{digits: digits, limit: limit, random: rand.Reader}
}

// Generate returns a new code drawn from crypto/rand.
func (n *Numeric) Generate() (string, error) {
	v, err := rand.Int(n.random, n.limit)
	if err != nil {
		return "", err
	}

	return n.digits.Format(int32(v.Int64())), nil
}

// Package otp generates the one-time codes used for email verification.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Code length is fixed at six decimal digits. Generated codes never
// start with zero, so they survive being handled as numbers by clients.
const (
	codeMin  = 100000
	codeSpan = 900000
)

// Generate returns a uniformly distributed 6-digit decimal code in the
// range 100000–999999 inclusive.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

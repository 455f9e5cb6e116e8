package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes from crypto/rand, hex encoded.
// The result is twice as long as size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewSessionID returns a fresh unguessable session identifier (256 bits).
func NewSessionID() (string, error) {
	return MakeRandHexString(SessionIDBytes)
}

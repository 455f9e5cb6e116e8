package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the minimum accepted length of the configured secret.
const MinSecretLength = 32

const (
	accessKeyInfo  = "authcore/access-token/v1"
	refreshKeyInfo = "authcore/refresh-token/v1"
	derivedKeySize = 32
)

// deriveKey expands secret into an independent HMAC key bound to info.
func deriveKey(secret []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	key := make([]byte, derivedKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

package security

import (
	"crypto/rand"
	"encoding/hex"
)

const tokenBytes = 32

// GenerateToken returns an opaque 64-char hex string with 256 bits of entropy,
// used for email verification and password reset links. A failing entropy
// source is not a condition this process can recover from.
func GenerateToken() string {
	b := make([]byte, tokenBytes)

	if _, err := rand.Read(b); err != nil {
		panic("security: entropy source unavailable: " + err.Error())
	}

	return hex.EncodeToString(b)
}

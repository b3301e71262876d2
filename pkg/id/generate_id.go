package id

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
// Used as the public account id.
func NewID32() string {
	return randomHex(16)
}

// NewTxHash returns a 0x-prefixed 32-byte hex string shaped like an EVM
// transaction hash.
func NewTxHash() string {
	return "0x" + randomHex(32)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

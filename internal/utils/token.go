package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string. Only the hash is stored, so a leaked table cannot be replayed.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

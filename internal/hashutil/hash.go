// Package hashutil provides the content-addressing primitive shared by
// chunk identity, file identity, and Merkle tree construction.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashHex returns the lowercase hex-encoded SHA-256 digest of data.
// Deterministic across runs and platforms; never errors.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString is HashHex over the UTF-8 bytes of s.
func HashString(s string) string {
	return HashHex([]byte(s))
}

// CombineHex hashes the concatenation of two hex-encoded hashes, as used
// to derive a Merkle internal node's hash from its two children.
func CombineHex(leftHex, rightHex string) string {
	return HashString(leftHex + rightHex)
}

package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashToken returns the hex SHA-256 digest of a plain token or OTP code.
// Tokens carry enough entropy that a plain digest is sufficient; no salt
// or key stretching is needed.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// HashBindingValue hashes an IP address or User-Agent string for storage.
// Raw values are never persisted.
func HashBindingValue(value string) *string {
	if value == "" {
		return nil
	}
	h := HashToken(value)
	return &h
}

// ConstantTimeEquals compares two hex digests without leaking timing.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

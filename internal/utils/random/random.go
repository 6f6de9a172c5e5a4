package random

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// GenerateRandomBytes returns length cryptographically random bytes.
func GenerateRandomBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateSecureToken returns a url-safe token encoding byteLength random
// bytes. 32 bytes gives 256 bits of entropy.
func GenerateSecureToken(byteLength int) (string, error) {
	b, err := GenerateRandomBytes(byteLength)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateRandomDigits returns a uniformly random string of decimal digits
// of the given length, suitable for one-time passcodes.
func GenerateRandomDigits(length int) (string, error) {
	digits := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte(n.Int64() + '0')
	}
	return string(digits), nil
}

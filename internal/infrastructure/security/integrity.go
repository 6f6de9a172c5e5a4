package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// IntegrityInput is the set of signature fields covered by the integrity
// hash. The field order is fixed; changing it invalidates stored hashes.
type IntegrityInput struct {
	EnvelopeID    string
	SignerID      string
	SignatureData string
	SignerName    string
	SignerEmail   string
	SignedAtUnix  int64
}

// ComputeIntegrityHash builds the canonical line-oriented representation of
// a signature and returns its hex SHA-256 digest.
func ComputeIntegrityHash(in IntegrityInput) string {
	var b strings.Builder
	b.WriteString(in.EnvelopeID)
	b.WriteString("\n")
	b.WriteString(in.SignerID)
	b.WriteString("\n")
	b.WriteString(in.SignatureData)
	b.WriteString("\n")
	b.WriteString(in.SignerName)
	b.WriteString("\n")
	b.WriteString(in.SignerEmail)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d", in.SignedAtUnix))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

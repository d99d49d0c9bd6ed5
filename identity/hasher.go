package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest maps a free-text name to a stable 64-character hex digest used for
// privacy-preserving comparison. Names are lowercased and trimmed before
// hashing so that ledger records and matter parties created independently
// still compare equal. No salt is applied: digests must match across
// processes and deployments.
func Digest(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// ContentHash returns the hex SHA-256 digest of content.
// Identical content always maps to the same digest, which is what makes
// incremental scan cache keys stable across requests.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// GenerateToken returns a URL-safe random token built from byteLen random
// bytes. The raw token is shown to the caller exactly once; only its hash
// is stored.
func GenerateToken(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the base64 SHA-256 of a token for storage.
// We never store raw tokens, so a leaked table cannot be replayed.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}

// RandomID returns a short hex identifier built from byteLen random bytes.
func RandomID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

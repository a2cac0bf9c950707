package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SafeTruncate safely truncates a string to maxLen characters without panicking.
// Used when logging tokens, where only a prefix may be shown.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("very-long-token-abc123", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                  // Returns: "short"
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// HashKey returns the hex SHA-256 digest of a token or code value. Persistent
// backends key records by this digest so raw token values never reach disk.
func HashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

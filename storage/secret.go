package storage

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the subject does not exist, so a lookup
// miss costs the same bcrypt work as a mismatch.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashSecret returns the bcrypt hash of a client secret or user password.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// CompareSecret reports whether secret matches hash. An empty hash is
// replaced by a dummy hash so the comparison still runs.
func CompareSecret(hash, secret string) bool {
	if hash == "" {
		hash = dummyHash
		_ = bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// Unavailable wraps err as ErrUnavailable when it describes a transient
// condition (network failure, deadline, cancellation). Other errors are
// returned unchanged.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

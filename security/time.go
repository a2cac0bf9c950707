package security

import "time"

// IsExpired reports whether expiresAt lies strictly before now.
// A zero expiresAt never expires.
func IsExpired(expiresAt, now time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return expiresAt.Before(now)
}

// IsExpiredWithGracePeriod is IsExpired with a clock skew allowance: the
// value only counts as expired once it has been expired for longer than
// gracePeriod.
func IsExpiredWithGracePeriod(expiresAt, now time.Time, gracePeriod time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}
	return expiresAt.Add(gracePeriod).Before(now)
}

// SecondsUntil returns the whole seconds from now until expiresAt, never
// negative. A zero expiresAt returns 0.
func SecondsUntil(expiresAt, now time.Time) int64 {
	if expiresAt.IsZero() || !expiresAt.After(now) {
		return 0
	}
	return int64(expiresAt.Sub(now) / time.Second)
}

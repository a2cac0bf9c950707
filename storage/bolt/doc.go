// Package bolt provides a single-file persistent storage backend on bbolt.
//
// Entities are stored as JSON in one bucket per kind. Authorization codes
// and tokens are keyed by their SHA-256 digest. Single-use invalidation
// runs inside one bbolt write transaction, which bbolt serializes, so
// concurrent redemptions of the same code cannot both succeed.
package bolt

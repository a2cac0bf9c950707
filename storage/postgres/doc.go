// Package postgres provides a PostgreSQL storage backend built on pgxpool.
//
// Migrate creates the oauth2_* tables. Codes and tokens are stored under the
// SHA-256 of their value. Invalidation is a single DELETE whose affected row
// count decides which concurrent caller wins.
package postgres

// Package storage defines the repository contracts of the authorization server.
//
// The protocol core only talks to these interfaces:
//   - ClientStore: registered clients and secret verification
//   - ScopeStore: registered scopes
//   - CodeStore: authorization codes with atomic single-use invalidation
//   - TokenStore: access and refresh tokens with atomic refresh invalidation
//   - UserStore: resource owners and credential verification
//
// Registry covers administration (seeding clients, scopes and users).
//
// Implementations are provided in subpackages:
//   - storage/memory: in-process maps, for development and tests
//   - storage/bolt: single-node persistent storage on bbolt
//   - storage/valkey: Valkey/Redis-compatible distributed storage
//   - storage/postgres: PostgreSQL via pgx
//   - storage/mock: gomock mocks for unit tests
package storage

// Package valkey provides a Valkey storage backend for the OAuth2 server.
//
// Valkey is wire-compatible with Redis. The backend suits deployments that
// run several server replicas against shared state.
//
// # Key Schema
//
// All keys use a configurable prefix (default "oauth2:"). Codes and tokens
// are keyed by the SHA-256 hex digest of their value:
//
//	{prefix}client:{clientID}       -> JSON(Client)
//	{prefix}scope:{name}            -> JSON(Scope)
//	{prefix}user:{username}         -> JSON(User)
//	{prefix}code:{sha256(code)}     -> JSON(AuthorizationCode)  (TTL = expiry)
//	{prefix}access:{sha256(token)}  -> JSON(AccessToken)        (TTL = expiry)
//	{prefix}refresh:{sha256(token)} -> JSON(RefreshToken)       (TTL = expiry + 24h, none if non-expiring)
//
// # Single Use
//
// InvalidateAuthorizationCode and InvalidateRefreshToken issue DEL and
// succeed only when the server reports one key removed. DEL is atomic, so of
// several replicas redeeming the same code only one succeeds.
//
// # Configuration
//
//	store, err := valkey.New(valkey.Config{
//	    Address:   "valkey.example.com:6379",
//	    Password:  os.Getenv("VALKEY_PASSWORD"),
//	    TLS:       &tls.Config{MinVersion: tls.VersionTLS12},
//	})
//
// Records can be encrypted at rest with AES-256-GCM:
//
//	key, _ := security.GenerateKey()
//	sealer, _ := security.NewRecordSealer(key)
//	store.SetRecordSealer(sealer)
package valkey

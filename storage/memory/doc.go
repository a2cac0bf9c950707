// Package memory provides an in-memory implementation of all storage
// interfaces. It is suitable for development, tests and single-instance
// deployments; everything is lost on restart.
//
// Code and refresh token invalidation run under the store's write lock, so
// exactly one of several concurrent callers succeeds. Expired codes and
// tokens are removed by a background goroutine; call Stop to end it.
//
//	store := memory.New()
//	defer store.Stop()
package memory

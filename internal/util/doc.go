// Package util provides small helpers shared across packages.
//
// Key utilities:
//   - SafeTruncate: truncates token values for logging
//   - HashKey: derives storage keys from token and code values
package util

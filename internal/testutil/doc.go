// Package testutil provides test fixtures, a controllable clock and a
// behavioural suite that every storage backend runs against itself.
package testutil

package server

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/giantswarm/oauth2-server/storage"
)

// ScopeResolver validates space-delimited scope strings against the
// registered scope set.
type ScopeResolver struct {
	scopes storage.ScopeStore
	logger *slog.Logger
}

// NewScopeResolver creates a resolver backed by the given scope store.
func NewScopeResolver(scopes storage.ScopeStore, logger *slog.Logger) *ScopeResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScopeResolver{scopes: scopes, logger: logger}
}

// SplitScope splits a scope string on runs of whitespace.
func SplitScope(scope string) []string {
	return strings.Fields(scope)
}

// JoinScope joins scope tokens with single spaces.
func JoinScope(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Resolve checks that every token of scope is registered and returns the
// normalized scope string, with repeated tokens dropped in first-seen order.
// It stops at the first unknown token.
func (r *ScopeResolver) Resolve(ctx context.Context, scope string) (string, error) {
	var tokens []string
	for _, name := range SplitScope(scope) {
		if !slices.Contains(tokens, name) {
			tokens = append(tokens, name)
		}
	}
	if len(tokens) == 0 {
		return "", ErrInvalidScope("scope is empty")
	}

	for _, name := range tokens {
		if _, err := r.scopes.GetScope(ctx, name); err != nil {
			r.logger.Debug("Scope rejected", "scope", name, "error", err)
			return "", storageError(err, func() *Error {
				return ErrInvalidScope(fmt.Sprintf("unknown scope %q", name))
			})
		}
	}
	return JoinScope(tokens), nil
}

// Narrow checks that requested is a subset of original.
func (r *ScopeResolver) Narrow(requested, original string) error {
	granted := make(map[string]struct{})
	for _, name := range SplitScope(original) {
		granted[name] = struct{}{}
	}
	for _, name := range SplitScope(requested) {
		if _, ok := granted[name]; !ok {
			return ErrInvalidScope(fmt.Sprintf("scope %q exceeds the original grant", name))
		}
	}
	return nil
}

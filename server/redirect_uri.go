package server

import (
	"strings"

	"github.com/giantswarm/oauth2-server/storage"
)

// ResolveRedirectURI reconciles the requested redirect URI with the client's
// registered one.
//
// With neither present the request is invalid. With both present the
// requested URI must extend the registered URI as a case-insensitive prefix
// ending on a path boundary. The requested URI wins when given.
func ResolveRedirectURI(requested string, client *storage.Client) (string, error) {
	stored := client.RedirectURI

	switch {
	case requested == "" && stored == "":
		return "", ErrInvalidRequest("redirect_uri is required")
	case requested == "":
		return stored, nil
	case stored == "":
		return requested, nil
	}

	if !hasRedirectPrefix(requested, stored) {
		return "", ErrInvalidRequest("redirect_uri does not match the registered redirect URI")
	}
	return requested, nil
}

// hasRedirectPrefix reports whether requested starts with stored, ignoring
// case, and the match ends on a scheme+host+path boundary: either the whole
// string matched, stored ends in '/', or the next byte starts a path, query
// or fragment. This rejects https://a.example.evil.com for https://a.example.
func hasRedirectPrefix(requested, stored string) bool {
	if len(requested) < len(stored) || !strings.EqualFold(requested[:len(stored)], stored) {
		return false
	}
	if len(requested) == len(stored) || strings.HasSuffix(stored, "/") {
		return true
	}
	switch requested[len(stored)] {
	case '/', '?', '#':
		return true
	}
	return false
}

package server

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Protocol parameter names.
const (
	ParamClientID         = "client_id"
	ParamClientSecret     = "client_secret"
	ParamResponseType     = "response_type"
	ParamRedirectURI      = "redirect_uri"
	ParamScope            = "scope"
	ParamState            = "state"
	ParamCode             = "code"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
	ParamErrorURI         = "error_uri"
	ParamGrantType        = "grant_type"
	ParamAccessToken      = "access_token"
	ParamTokenType        = "token_type"
	ParamExpiresIn        = "expires_in"
	ParamUsername         = "username"
	ParamPassword         = "password"
	ParamRefreshToken     = "refresh_token"
)

// RFC 6749 Appendix A character classes, as regexp bracket contents.
const (
	classVSCHAR            = `\x20-\x7E`
	classNQCHAR            = `\x21\x23-\x5B\x5D-\x7E`
	classNQSCHAR           = `\x20-\x21\x23-\x5B\x5D-\x7E`
	classUnicodeCharNoCRLF = `\x09\x20-\x7E\x{80}-\x{D7FF}\x{E000}-\x{FFFD}\x{10000}-\x{10FFFF}`
)

// urlSafe holds the bytes kept by URL sanitization.
const urlSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	"$-_.+!*'(),{}|\\^~[]`<>#%\";/?:@&="

// rule validates and normalizes a single parameter value. ok is false when
// the value must be dropped.
type rule func(value string) (normalized string, ok bool)

// Grammar is the immutable table of per-parameter rules.
type Grammar struct {
	rules map[string]rule
}

var defaultGrammar = sync.OnceValue(newGrammar)

// DefaultGrammar returns the process-wide grammar table. It is built on first
// use and never mutated afterwards, so it is safe to share between requests.
func DefaultGrammar() *Grammar {
	return defaultGrammar()
}

func newGrammar() *Grammar {
	vschar := matchRule(`^[` + classVSCHAR + `]+$`)
	nqschar := matchRule(`^[` + classNQSCHAR + `]+$`)
	typeName := matchRule(`^[a-z0-9_\-.]+$`)
	unicode := matchRule(`^[` + classUnicodeCharNoCRLF + `]+$`)

	return &Grammar{rules: map[string]rule{
		ParamClientID:         vschar,
		ParamClientSecret:     vschar,
		ParamState:            vschar,
		ParamCode:             vschar,
		ParamAccessToken:      vschar,
		ParamRefreshToken:     vschar,
		ParamScope:            matchRule(`^[` + classNQCHAR + `]+(?: +[` + classNQCHAR + `]+)*$`),
		ParamError:            nqschar,
		ParamErrorDescription: nqschar,
		ParamResponseType:     typeName,
		ParamGrantType:        typeName,
		ParamTokenType:        typeName,
		ParamExpiresIn:        integerRule,
		ParamUsername:         unicode,
		ParamPassword:         unicode,
		ParamRedirectURI:      sanitizeURL,
		ParamErrorURI:         sanitizeURL,
	}}
}

func matchRule(pattern string) rule {
	re := regexp.MustCompile(pattern)
	return func(value string) (string, bool) {
		if !utf8.ValidString(value) {
			return "", false
		}
		return value, re.MatchString(value)
	}
}

func integerRule(value string) (string, bool) {
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return "", false
	}
	return value, true
}

// sanitizeURL drops bytes outside urlSafe. The sanitized value, not the raw
// one, is what ResolveRedirectURI compares and redirects to.
func sanitizeURL(value string) (string, bool) {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if strings.IndexByte(urlSafe, value[i]) >= 0 {
			b.WriteByte(value[i])
		}
	}
	out := b.String()
	return out, out != ""
}

// Known reports whether name has a grammar rule.
func (g *Grammar) Known(name string) bool {
	_, ok := g.rules[name]
	return ok
}

// Valid reports whether value passes the rule for name.
func (g *Grammar) Valid(name, value string) bool {
	r, ok := g.rules[name]
	if !ok || value == "" {
		return false
	}
	_, ok = r(value)
	return ok
}

// Filter returns the known parameters of params that are present, non-empty
// and match their grammar. Everything else is dropped silently. When keep is
// given only those names are considered.
func (g *Grammar) Filter(params map[string]string, keep ...string) map[string]string {
	names := keep
	if len(names) == 0 {
		names = make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
	}

	filtered := make(map[string]string, len(names))
	for _, name := range names {
		value, present := params[name]
		if !present || value == "" {
			continue
		}
		r, known := g.rules[name]
		if !known {
			continue
		}
		if normalized, ok := r(value); ok {
			filtered[name] = normalized
		}
	}
	return filtered
}

// Filter applies the default grammar to params.
func Filter(params map[string]string, keep ...string) map[string]string {
	return DefaultGrammar().Filter(params, keep...)
}

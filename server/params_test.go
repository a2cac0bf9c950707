package server

import (
	"sync"
	"testing"
)

func TestGrammar_Filter(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value string
		want  string
		keep  bool
	}{
		{name: "client_id visible ascii", param: ParamClientID, value: "client 1!~", want: "client 1!~", keep: true},
		{name: "client_id with CR", param: ParamClientID, value: "client\r", keep: false},
		{name: "client_id with LF", param: ParamClientID, value: "cli\nent", keep: false},
		{name: "client_id non-ascii", param: ParamClientID, value: "clïent", keep: false},
		{name: "state with tab", param: ParamState, value: "a\tb", keep: false},
		{name: "state opaque value", param: ParamState, value: "xyz=1&scope=admin", want: "xyz=1&scope=admin", keep: true},
		{name: "scope single", param: ParamScope, value: "read", want: "read", keep: true},
		{name: "scope list", param: ParamScope, value: "read write", want: "read write", keep: true},
		{name: "scope repeated spaces", param: ParamScope, value: "read   write", want: "read   write", keep: true},
		{name: "scope with newline", param: ParamScope, value: "read\nwrite", keep: false},
		{name: "scope with tab", param: ParamScope, value: "read\twrite", keep: false},
		{name: "scope with quote", param: ParamScope, value: `read"`, keep: false},
		{name: "scope with backslash", param: ParamScope, value: `read\write`, keep: false},
		{name: "scope leading space", param: ParamScope, value: " read", keep: false},
		{name: "error_description with space", param: ParamErrorDescription, value: "bad thing", want: "bad thing", keep: true},
		{name: "error_description with quote", param: ParamErrorDescription, value: `say "hi"`, keep: false},
		{name: "response_type lowercase", param: ParamResponseType, value: "code", want: "code", keep: true},
		{name: "response_type uppercase", param: ParamResponseType, value: "Code", keep: false},
		{name: "grant_type with underscore", param: ParamGrantType, value: "client_credentials", want: "client_credentials", keep: true},
		{name: "grant_type urn-like with colon", param: ParamGrantType, value: "urn:ietf:jwt", keep: false},
		{name: "token_type dotted", param: ParamTokenType, value: "n.a-b_c", want: "n.a-b_c", keep: true},
		{name: "expires_in integer", param: ParamExpiresIn, value: "3600", want: "3600", keep: true},
		{name: "expires_in text", param: ParamExpiresIn, value: "soon", keep: false},
		{name: "username unicode", param: ParamUsername, value: "jürgen 山田", want: "jürgen 山田", keep: true},
		{name: "username with tab", param: ParamUsername, value: "a\tb", want: "a\tb", keep: true},
		{name: "username with CRLF", param: ParamUsername, value: "alice\r\n", keep: false},
		{name: "password with LF", param: ParamPassword, value: "pass\nword", keep: false},
		{name: "password with NUL", param: ParamPassword, value: "pass\x00", keep: false},
		{name: "password invalid utf8", param: ParamPassword, value: "pass\xff", keep: false},
		{name: "redirect_uri sanitized", param: ParamRedirectURI, value: "https://a.example/cb\r\n", want: "https://a.example/cb", keep: true},
		{name: "redirect_uri space dropped", param: ParamRedirectURI, value: "https://client.example.com/cb x", want: "https://client.example.com/cbx", keep: true},
		{name: "redirect_uri spaces removed", param: ParamRedirectURI, value: "https://a.example/c b", want: "https://a.example/cb", keep: true},
		{name: "redirect_uri nothing left", param: ParamRedirectURI, value: "\r\n", keep: false},
		{name: "empty value", param: ParamClientID, value: "", keep: false},
		{name: "unknown parameter", param: "nonce", value: "abc", keep: false},
	}

	g := DefaultGrammar()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.Filter(map[string]string{tt.param: tt.value})[tt.param]
			if ok != tt.keep {
				t.Fatalf("kept = %v, want %v (value %q)", ok, tt.keep, tt.value)
			}
			if ok && got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGrammar_FilterKeep(t *testing.T) {
	params := map[string]string{
		ParamClientID: "client",
		ParamState:    "s",
		ParamScope:    "read",
	}

	got := Filter(params, ParamClientID, ParamCode)
	if len(got) != 1 || got[ParamClientID] != "client" {
		t.Errorf("Filter(keep) = %v, want only client_id", got)
	}
}

func TestGrammar_FilterDoesNotMutateInput(t *testing.T) {
	params := map[string]string{ParamScope: "read\nwrite"}
	_ = Filter(params)
	if params[ParamScope] != "read\nwrite" {
		t.Error("Filter modified its input")
	}
}

func TestGrammar_Valid(t *testing.T) {
	g := DefaultGrammar()
	if !g.Valid(ParamAccessToken, "abc-DEF_123") {
		t.Error("valid token rejected")
	}
	if g.Valid(ParamAccessToken, "") {
		t.Error("empty token accepted")
	}
	if g.Valid("unknown", "x") {
		t.Error("unknown parameter accepted")
	}
	if !g.Known(ParamRefreshToken) || g.Known("nonce") {
		t.Error("Known() mismatch")
	}
}

func TestDefaultGrammar_ConcurrentInit(t *testing.T) {
	var wg sync.WaitGroup
	grammars := make([]*Grammar, 32)
	for i := range grammars {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grammars[i] = DefaultGrammar()
		}()
	}
	wg.Wait()

	for i, g := range grammars {
		if g != grammars[0] {
			t.Fatalf("goroutine %d saw a different grammar instance", i)
		}
	}
}

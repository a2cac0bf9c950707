package server

import (
	"context"
	"testing"

	"github.com/giantswarm/oauth2-server/internal/testutil"
	"github.com/giantswarm/oauth2-server/storage/memory"
)

func TestScopeResolver_Resolve(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	testutil.Seed(t, store)
	r := NewScopeResolver(store, discardLogger)

	tests := []struct {
		name    string
		scope   string
		want    string
		wantErr bool
	}{
		{name: "single", scope: "read", want: "read"},
		{name: "several", scope: "read write", want: "read write"},
		{name: "whitespace runs collapsed", scope: "read   write\tadmin", want: "read write admin"},
		{name: "repeated tokens dropped", scope: "read read", want: "read"},
		{name: "first-seen order kept", scope: "write read write admin read", want: "write read admin"},
		{name: "unknown token", scope: "read delete", wantErr: true},
		{name: "empty", scope: "", wantErr: true},
		{name: "only whitespace", scope: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.scope)
			if tt.wantErr {
				wantCode(t, err, ErrorCodeInvalidScope)
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScopeResolver_Narrow(t *testing.T) {
	r := NewScopeResolver(nil, discardLogger)

	tests := []struct {
		name      string
		requested string
		original  string
		wantErr   bool
	}{
		{name: "same", requested: "read write", original: "read write"},
		{name: "subset", requested: "write", original: "read write"},
		{name: "reordered", requested: "write read", original: "read write"},
		{name: "wider", requested: "read admin", original: "read write", wantErr: true},
		{name: "disjoint", requested: "delete", original: "read write", wantErr: true},
		{name: "from empty grant", requested: "read", original: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Narrow(tt.requested, tt.original)
			if tt.wantErr {
				wantCode(t, err, ErrorCodeInvalidScope)
				return
			}
			if err != nil {
				t.Errorf("Narrow() error = %v", err)
			}
		})
	}
}

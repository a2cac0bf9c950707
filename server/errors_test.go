package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/giantswarm/oauth2-server/storage"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrInvalidGrant("code expired"))

	if !errors.Is(err, ErrInvalidGrant("")) {
		t.Error("errors.Is must match on code regardless of description")
	}
	if errors.Is(err, ErrInvalidRequest("")) {
		t.Error("errors.Is matched a different code")
	}
}

func TestError_Status(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ErrInvalidRequest(""), http.StatusBadRequest},
		{ErrInvalidClient(""), http.StatusUnauthorized},
		{ErrUnauthorizedClient(""), http.StatusBadRequest},
		{ErrInvalidGrant(""), http.StatusBadRequest},
		{ErrInvalidScope(""), http.StatusBadRequest},
		{ErrUnsupportedResponseType(""), http.StatusBadRequest},
		{ErrUnsupportedGrantType(""), http.StatusBadRequest},
		{ErrAccessDenied(""), http.StatusForbidden},
		{ErrServerError(""), http.StatusInternalServerError},
		{ErrTemporarilyUnavailable(""), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if tt.err.Status != tt.want {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.want)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	if got := ErrInvalidScope("").Error(); got != "invalid_scope" {
		t.Errorf("Error() = %q", got)
	}
	if got := ErrInvalidScope("unknown scope").Error(); got != "invalid_scope: unknown scope" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAsError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "protocol error", err: ErrInvalidGrant("x"), want: ErrorCodeInvalidGrant},
		{name: "unavailable", err: fmt.Errorf("%w: dial tcp", storage.ErrUnavailable), want: ErrorCodeTemporarilyUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorCodeTemporarilyUnavailable},
		{name: "canceled", err: context.Canceled, want: ErrorCodeTemporarilyUnavailable},
		{name: "not found without mapping", err: storage.ErrClientNotFound, want: ErrorCodeServerError},
		{name: "unknown", err: errors.New("boom"), want: ErrorCodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AsError(tt.err).Code; got != tt.want {
				t.Errorf("AsError().Code = %q, want %q", got, tt.want)
			}
			if got := ErrorCode(tt.err); tt.name == "protocol error" && got != tt.want {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedirectError_Unwrap(t *testing.T) {
	err := &RedirectError{Err: ErrInvalidScope("bad"), RedirectURI: "https://a.example/cb"}

	if !errors.Is(err, ErrInvalidScope("")) {
		t.Error("RedirectError must unwrap to its protocol error")
	}
	if ErrorCode(err) != ErrorCodeInvalidScope {
		t.Errorf("ErrorCode() = %q", ErrorCode(err))
	}
}

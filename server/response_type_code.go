package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/giantswarm/oauth2-server/internal/util"
	"github.com/giantswarm/oauth2-server/storage"
)

// codeResponseType issues authorization codes (RFC 6749 section 4.1.2).
type codeResponseType struct {
	codes    storage.CodeStore
	ttl      time.Duration
	now      func() time.Time
	generate func() string
	logger   *slog.Logger
}

func newCodeResponseType(s *Server) ResponseTypeHandler {
	return &codeResponseType{
		codes:    s.codes,
		ttl:      secondsToDuration(s.config.AuthorizationCodeTTL),
		now:      s.now,
		generate: s.generate,
		logger:   s.logger,
	}
}

func (h *codeResponseType) ResponseType() string { return ResponseTypeCode }

func (h *codeResponseType) UsesFragment() bool { return false }

func (h *codeResponseType) Handle(ctx context.Context, authz *AuthorizationContext) (*AuthorizeResponse, error) {
	now := h.now()
	code := &storage.AuthorizationCode{
		Code:        h.generate(),
		ClientID:    authz.Client.ClientID,
		UserID:      authz.UserID,
		RedirectURI: authz.RedirectURI,
		Scope:       authz.Scope,
		ExpiresAt:   now.Add(h.ttl),
		CreatedAt:   now,
	}

	if err := h.codes.SaveAuthorizationCode(ctx, code); err != nil {
		h.logger.Error("Failed to save authorization code", "client_id", code.ClientID, "error", err)
		return nil, storageError(err, nil)
	}

	h.logger.Debug("Issued authorization code",
		"client_id", code.ClientID,
		"code_prefix", util.SafeTruncate(code.Code, tokenIDLogLength))

	return &AuthorizeResponse{
		RedirectURI: authz.RedirectURI,
		Code:        code.Code,
		State:       authz.State,
	}, nil
}

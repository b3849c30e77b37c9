package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vouchd/vouchd/internal/api/presenter"
	"github.com/vouchd/vouchd/internal/service"
)

// handleToken processes OAuth2 client-credentials token requests.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	if err := r.ParseForm(); err != nil {
		logger.Warn().Err(err).Msg("failed to parse token request form")
		presenter.Error(w, r, "invalid form body", http.StatusBadRequest)
		return
	}

	token, err := s.tokenService.IssueToken(ctx, service.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		Scope:        r.PostFormValue("scope"),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("token issuance failed")
		presenter.Err(w, r, err, "token issuance failed")
		return
	}

	presenter.JSON(w, r, service.TokenResponse{
		AccessToken: token.Value,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(time.Until(token.ExpiresAt) / time.Second),
	}, http.StatusOK)
}

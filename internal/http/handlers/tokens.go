package handlers

import (
	"net/http"
	"strings"

	"github.com/foodstand/guestkit/internal/auth"
)

// TokenHandler mints access tokens for local testing of signed-in guests
type TokenHandler struct {
	tokens *auth.TokenService
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokens *auth.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleIssue handles POST /dev/tokens
func (h *TokenHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := h.tokens.SignAccessToken(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondWithData(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer"})
}

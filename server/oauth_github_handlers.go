package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/server/authstate"
	"github.com/webcraft/account-gateway/session"
)

// GitHubLoginHandler starts the GitHub authorization code flow.
func (s *Server) GitHubLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := generateState()
		if err != nil {
			s.logger.Error().Err(err).Msg("state generation failed")
			writeJSONError(w, "Failed to start the GitHub sign-in flow", http.StatusInternalServerError)
			return
		}

		flowState := &authstate.FlowState{
			Provider:  string(identity.MethodGitHub),
			ReturnURL: r.URL.Query().Get("return_url"),
			CreatedAt: time.Now(),
		}
		if err := s.authState.Upsert(state, flowState); err != nil {
			s.logger.Error().Err(err).Msg("state store failed")
			writeJSONError(w, "Failed to start the GitHub sign-in flow", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, s.github.AuthCodeURL(state), http.StatusFound)
	}
}

// GitHubCallbackHandler completes the GitHub flow: the code is exchanged for
// an access token, the token is traded at the identity provider for a
// federated session, and reconciliation runs.
func (s *Server) GitHubCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errParam := query.Get("error"); errParam != "" {
			description := query.Get("error_description")
			s.logger.Warn().Str("error", errParam).Str("description", description).Msg("github authorization denied")
			writeJSONError(w, fmt.Sprintf("GitHub sign-in failed: %s", errParam), http.StatusBadRequest)
			return
		}

		state := query.Get("state")
		code := query.Get("code")
		if state == "" || code == "" {
			writeJSONError(w, "Missing state or code parameter", http.StatusBadRequest)
			return
		}
		if _, err := s.authState.Take(state); err != nil {
			writeJSONError(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		token, err := s.github.Exchange(ctx, code)
		if err != nil {
			s.logger.Error().Err(err).Msg("github code exchange failed")
			writeJSONError(w, "Failed to exchange the authorization code", http.StatusBadGateway)
			return
		}

		cred, user, err := s.deps.Provider.SignInWithIdp(ctx, string(identity.MethodGitHub), token.AccessToken)
		if err != nil {
			statusCode, message := providerStatus(err)
			s.logger.Error().Err(err).Msg("federated sign-in failed")
			writeJSONError(w, message, statusCode)
			return
		}

		if !s.deps.Controller.Publish(ctx, session.AuthEvent{User: user, Credential: cred, OAuthToken: token.AccessToken}) {
			writeJSONError(w, "Another sign-in is already in progress", http.StatusConflict)
			return
		}

		s.deps.Metrics.RecordLogin("github")
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         user,
			"profile":      s.deps.Controller.Snapshot().Profile,
			"idToken":      cred.IDToken,
			"refreshToken": cred.RefreshToken,
		})
	}
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

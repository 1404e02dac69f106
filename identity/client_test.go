package identity_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/internal/config"
	apperrors "github.com/webcraft/account-gateway/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *identity.Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	t.Setenv("IDENTITY_API_KEY", "test-key")
	t.Setenv("IDENTITY_BASE_URL", ts.URL)
	t.Setenv("IDENTITY_TOKEN_URL", ts.URL)

	return identity.NewClient(config.New())
}

func providerErrorResponse(w http.ResponseWriter, code string) {
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": 400, "message": code},
	})
}

func TestClient_CreateUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:signUp", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "john.doe@example.com", req["email"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"localId": "user-1",
			"email":   "john.doe@example.com",
		})
	}))

	user, err := client.CreateUser(context.Background(), identity.CreateUserParams{
		Email:       "john.doe@example.com",
		Password:    "password123",
		DisplayName: "johnd",
	})
	require.NoError(t, err)
	require.Equal(t, "user-1", user.UID)
	require.Equal(t, identity.MethodPassword, user.Method)
	require.False(t, user.EmailVerified)
}

func TestClient_ErrorCodeMapping(t *testing.T) {
	tests := []struct {
		providerCode string
		want         error
	}{
		{"EMAIL_EXISTS", apperrors.ErrEmailExists},
		{"INVALID_EMAIL", apperrors.ErrInvalidEmail},
		{"MISSING_EMAIL", apperrors.ErrInvalidEmail},
		{"WEAK_PASSWORD : Password should be at least 6 characters", apperrors.ErrWeakPassword},
		{"EMAIL_NOT_FOUND", apperrors.ErrUserNotFound},
		{"INVALID_PASSWORD", apperrors.ErrInvalidCredentials},
		{"INVALID_LOGIN_CREDENTIALS", apperrors.ErrInvalidCredentials},
		{"USER_DISABLED", apperrors.ErrUserDisabled},
		{"TOKEN_EXPIRED", apperrors.ErrTokenExpired},
		{"INVALID_REFRESH_TOKEN", apperrors.ErrInvalidToken},
		{"SOMETHING_UNEXPECTED", apperrors.ErrInternal},
	}

	for _, tc := range tests {
		t.Run(tc.providerCode, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				providerErrorResponse(w, tc.providerCode)
			}))

			_, err := client.SignInWithPassword(context.Background(), "john.doe@example.com", "password123")
			require.Error(t, err)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClient_UnparsableErrorBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream blew up")
	}))

	_, err := client.GetUser(context.Background(), "user-1")
	require.ErrorIs(t, err, apperrors.ErrInternal)
}

func TestClient_LookupMissingUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"users": []any{}})
	}))

	_, err := client.GetUser(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestClient_SignInWithPassword(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"localId":      "user-1",
			"idToken":      "id-token",
			"refreshToken": "refresh-token",
			"expiresIn":    "3600",
		})
	}))

	cred, err := client.SignInWithPassword(context.Background(), "john.doe@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "user-1", cred.UID)
	require.Equal(t, "id-token", cred.IDToken)
	require.Equal(t, float64(3600), cred.ExpiresIn.Seconds())
}

func TestClient_RefreshIDToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":       "user-1",
			"id_token":      "new-id-token",
			"refresh_token": "new-refresh",
			"expires_in":    "3600",
		})
	}))

	cred, err := client.RefreshIDToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "new-id-token", cred.IDToken)
	require.Equal(t, "new-refresh", cred.RefreshToken)
}

func TestClient_RevokeTokensMovesValidSince(t *testing.T) {
	var gotValidSince string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:update", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotValidSince, _ = req["validSince"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))

	require.NoError(t, client.RevokeTokens(context.Background(), "user-1"))
	require.NotEmpty(t, gotValidSince)
}

func TestClient_GenerateOobLinks(t *testing.T) {
	var gotType string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:sendOobCode", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotType, _ = req["requestType"].(string)
		require.Equal(t, true, req["returnOobLink"])
		_ = json.NewEncoder(w).Encode(map[string]string{"oobLink": "https://provider.example/action"})
	}))

	link, err := client.GenerateEmailVerificationLink(context.Background(), "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "https://provider.example/action", link)
	require.Equal(t, "VERIFY_EMAIL", gotType)

	_, err = client.GeneratePasswordResetLink(context.Background(), "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "PASSWORD_RESET", gotType)
}

func TestClient_ListUsers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:batchGet", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{
				{"localId": "user-1", "email": "john.doe@example.com", "emailVerified": true},
				{
					"localId": "user-2",
					"email":   "octocat@example.com",
					"providerUserInfo": []map[string]string{
						{"providerId": "github.com"},
					},
				},
			},
		})
	}))

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, identity.MethodPassword, users[0].Method)
	require.Equal(t, identity.MethodGitHub, users[1].Method)
}

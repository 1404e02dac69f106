package server_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/ledger"
	"github.com/webcraft/account-gateway/server"
)

func TestSignupHandler(t *testing.T) {
	t.Run("creates an unverified account and sends the email", func(t *testing.T) {
		f := setupTestFixture(t)

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthSignup, map[string]string{
			"email":    "new.user@example.com",
			"password": "password123",
			"username": "newuser",
		})

		require.Equal(t, http.StatusCreated, statusCode)
		require.Equal(t, true, body["emailSent"])
		require.Equal(t, 1, f.mail.VerificationSends)

		user, err := f.provider.GetUserByEmail(context.Background(), "new.user@example.com")
		require.NoError(t, err)
		require.False(t, user.EmailVerified)

		// Signing up does not establish a session.
		require.Nil(t, f.controller.Snapshot().User)
	})

	t.Run("mail failure falls back to returning the link", func(t *testing.T) {
		f := setupTestFixture(t)
		f.mail.Fail = context.DeadlineExceeded

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthSignup, map[string]string{
			"email":    "new.user@example.com",
			"password": "password123",
			"username": "newuser",
		})

		require.Equal(t, http.StatusCreated, statusCode)
		require.Equal(t, false, body["emailSent"])
		require.NotEmpty(t, body["verificationLink"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedVerifiedUser()

		statusCode, _ := f.doJSON(t, http.MethodPost, server.RouteAuthSignup, map[string]string{
			"email":    testUserEmail,
			"password": "password123",
			"username": "duplicate",
		})

		require.Equal(t, http.StatusConflict, statusCode)
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("verified user gets a session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedVerifiedUser()

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
			"email":    testUserEmail,
			"password": testPassword,
		})

		require.Equal(t, http.StatusOK, statusCode)
		require.NotEmpty(t, body["idToken"])
		require.NotEmpty(t, body["refreshToken"])
		require.NotNil(t, body["profile"])

		state := f.controller.Snapshot()
		require.NotNil(t, state.User)
		require.Equal(t, testUserID, state.User.UID)

		led, err := f.store.Read()
		require.NoError(t, err)
		require.NotNil(t, led.Record(ledger.ProviderIdentity))
	})

	t.Run("unverified user is rejected with a distinct code", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Seed(&identity.UserRecord{
			UID:    testUserID,
			Email:  testUserEmail,
			Method: identity.MethodPassword,
		})

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
			"email":    testUserEmail,
			"password": testPassword,
		})

		require.Equal(t, http.StatusForbidden, statusCode)
		require.Equal(t, "verification_required", body["code"])
		require.Nil(t, f.controller.Snapshot().User)
		require.Equal(t, 1, f.provider.RevokeCalls)
	})

	t.Run("unknown email reads as invalid credentials", func(t *testing.T) {
		f := setupTestFixture(t)

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
			"email":    "nobody@example.com",
			"password": testPassword,
		})

		require.Equal(t, http.StatusUnauthorized, statusCode)
		require.Equal(t, "Invalid email or password", body["error"])
	})

	t.Run("disabled account", func(t *testing.T) {
		f := setupTestFixture(t)
		user := f.seedVerifiedUser()
		user.Disabled = true
		f.provider.Seed(user)

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
			"email":    testUserEmail,
			"password": testPassword,
		})

		require.Equal(t, http.StatusForbidden, statusCode)
		require.Equal(t, "This account has been disabled", body["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		f := setupTestFixture(t)

		statusCode, _ := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
			"email": testUserEmail,
		})
		require.Equal(t, http.StatusBadRequest, statusCode)
	})
}

func TestLogoutHandler(t *testing.T) {
	f := setupTestFixture(t)
	f.seedVerifiedUser()

	statusCode, _ := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
		"email":    testUserEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, statusCode)
	revokesBefore := f.provider.RevokeCalls

	statusCode, body := f.doJSON(t, http.MethodGet, server.RouteAuthLogout, nil, asUser)
	require.Equal(t, http.StatusOK, statusCode)
	require.Equal(t, "Signed out successfully", body["message"])

	require.Equal(t, revokesBefore+1, f.provider.RevokeCalls)
	require.Nil(t, f.controller.Snapshot().User)

	led, err := f.store.Read()
	require.NoError(t, err)
	require.Nil(t, led)
}

func TestForgotPasswordHandler(t *testing.T) {
	t.Run("sends the reset email", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedVerifiedUser()

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthForgotPassword, map[string]string{
			"email": testUserEmail,
		})

		require.Equal(t, http.StatusOK, statusCode)
		require.NotEmpty(t, body["message"])
		require.Equal(t, 1, f.mail.ResetSends)
	})

	t.Run("unknown email gets the same response", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedVerifiedUser()

		knownStatus, knownBody := f.doJSON(t, http.MethodPost, server.RouteAuthForgotPassword, map[string]string{
			"email": testUserEmail,
		})
		unknownStatus, unknownBody := f.doJSON(t, http.MethodPost, server.RouteAuthForgotPassword, map[string]string{
			"email": "nobody@example.com",
		})

		require.Equal(t, knownStatus, unknownStatus)
		require.Equal(t, knownBody["message"], unknownBody["message"])
	})
}

func TestSessionHandler(t *testing.T) {
	t.Run("active session reports both token statuses", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedVerifiedUser()

		statusCode, _ := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
			"email":    testUserEmail,
			"password": testPassword,
		})
		require.Equal(t, http.StatusOK, statusCode)

		statusCode, body := f.doJSON(t, http.MethodGet, server.RouteAPISession, nil, asUser)
		require.Equal(t, http.StatusOK, statusCode)

		require.NotNil(t, body["user"])
		require.NotNil(t, body["profile"])
		require.Equal(t, false, body["tokenExpired"])

		tokens := body["tokens"].(map[string]any)
		identityStatus := tokens["identity"].(map[string]any)
		require.Equal(t, true, identityStatus["isValid"])
		require.Equal(t, false, identityStatus["needsRefresh"])
		require.NotEmpty(t, identityStatus["tokenExpiry"]) // exp claim of the minted JWT

		githubStatus := tokens["github"].(map[string]any)
		require.Equal(t, false, githubStatus["isValid"])
		require.Equal(t, "No token", githubStatus["expirationDate"])
	})

	t.Run("no session", func(t *testing.T) {
		f := setupTestFixture(t)

		statusCode, body := f.doJSON(t, http.MethodGet, server.RouteAPISession, nil, asUser)
		require.Equal(t, http.StatusOK, statusCode)
		require.Nil(t, body["user"])

		tokens := body["tokens"].(map[string]any)
		require.Equal(t, false, tokens["identity"].(map[string]any)["isValid"])
	})
}

func TestSessionRefreshHandler(t *testing.T) {
	t.Run("refreshes an active session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedVerifiedUser()

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAuthLogin, map[string]string{
			"email":    testUserEmail,
			"password": testPassword,
		})
		require.Equal(t, http.StatusOK, statusCode)
		firstToken := body["idToken"].(string)

		statusCode, body = f.doJSON(t, http.MethodPost, server.RouteAPISessionRefresh, nil, asUser)
		require.Equal(t, http.StatusOK, statusCode)
		require.Equal(t, true, body["success"])

		led, err := f.store.Read()
		require.NoError(t, err)
		require.NotEqual(t, firstToken, led.Record(ledger.ProviderIdentity).Token)
	})

	t.Run("no session to refresh", func(t *testing.T) {
		f := setupTestFixture(t)

		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAPISessionRefresh, nil, asUser)
		require.Equal(t, http.StatusOK, statusCode)
		require.Equal(t, false, body["success"])
		require.Contains(t, body["errors"].([]any), "no active session to refresh")
	})
}

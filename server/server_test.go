package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/identity/providerfake"
	"github.com/webcraft/account-gateway/internal/config"
	"github.com/webcraft/account-gateway/ledger/storefake"
	"github.com/webcraft/account-gateway/mailer"
	"github.com/webcraft/account-gateway/profiles/repofake"
	"github.com/webcraft/account-gateway/server"
	"github.com/webcraft/account-gateway/session"
)

const (
	testAdminKey  = "test-admin-key"
	testUserID    = "user-1"
	testUserEmail = "john.doe@example.com"
	testPassword  = "password123"
	testBearer    = "valid-session-token"
)

// testFixture holds all test dependencies
type testFixture struct {
	provider   *providerfake.FakeProvider
	profiles   *repofake.FakeProfileRepo
	store      *storefake.FakeStore
	mail       *fakeMailer
	controller *session.Controller
	server     *server.Server
}

// fakeMailer records sends and can be told to fail.
type fakeMailer struct {
	VerificationSends int
	ResetSends        int
	Fail              error
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, _, _, _ string) error {
	if m.Fail != nil {
		return m.Fail
	}
	m.VerificationSends++
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, _, _, _ string) error {
	if m.Fail != nil {
		return m.Fail
	}
	m.ResetSends++
	return nil
}

var _ mailer.Sender = (*fakeMailer)(nil)

// setupTestFixture creates a server wired to fakes. Bearer tokens are
// verified against a fixed test value instead of a live OIDC issuer.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("ADMIN_API_KEY_HASH", string(hash))
	t.Setenv("ENABLE_RATE_LIMITING", "false")
	t.Setenv("ENV", "TEST")

	provider := providerfake.NewFakeProvider()
	profileRepo := repofake.NewFakeProfileRepo()
	store := storefake.NewFakeStore()
	mail := &fakeMailer{}

	controller, err := session.NewController(provider, profileRepo, store)
	require.NoError(t, err)
	t.Cleanup(controller.Close)

	srv, err := server.New(config.New(), server.Deps{
		Provider:   provider,
		Profiles:   profileRepo,
		Ledger:     store,
		Mailer:     mail,
		Controller: controller,
	}, server.WithTokenVerifier(func(_ context.Context, rawToken string) (string, error) {
		if rawToken != testBearer {
			return "", errors.New("unknown token")
		}
		return testUserID, nil
	}))
	require.NoError(t, err)

	return &testFixture{
		provider:   provider,
		profiles:   profileRepo,
		store:      store,
		mail:       mail,
		controller: controller,
		server:     srv,
	}
}

func (f *testFixture) seedVerifiedUser() *identity.UserRecord {
	user := &identity.UserRecord{
		UID:           testUserID,
		Email:         testUserEmail,
		Method:        identity.MethodPassword,
		EmailVerified: true,
	}
	f.provider.Seed(user)
	return user
}

type requestOption func(*http.Request)

func asAdmin(r *http.Request) {
	r.Header.Set("X-Admin-Key", testAdminKey)
}

func asUser(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+testBearer)
}

// doJSON runs a request through the full middleware chain and decodes the
// JSON response body into a generic map.
func (f *testFixture) doJSON(t *testing.T, method, path string, body any, options ...requestOption) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, option := range options {
		option(req)
	}

	recorder := httptest.NewRecorder()
	f.server.ServeHTTP(recorder, req)

	decoded := map[string]any{}
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder.Code, decoded
}

func TestAdminRoutes_RequireAdminKey(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("missing key", func(t *testing.T) {
		statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAPICreateUser, map[string]string{})
		require.Equal(t, http.StatusUnauthorized, statusCode)
		require.Equal(t, "Missing admin key", body["error"])
	})

	t.Run("wrong key", func(t *testing.T) {
		statusCode, _ := f.doJSON(t, http.MethodPost, server.RouteAPICreateUser, map[string]string{}, func(r *http.Request) {
			r.Header.Set("X-Admin-Key", "wrong")
		})
		require.Equal(t, http.StatusUnauthorized, statusCode)
	})
}

func TestAdminRoutes_UnavailableWithoutConfiguredHash(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv("ADMIN_API_KEY_HASH", "")

	statusCode, body := f.doJSON(t, http.MethodPost, server.RouteAPICreateUser, map[string]string{}, asAdmin)
	require.Equal(t, http.StatusServiceUnavailable, statusCode)
	require.Equal(t, "Admin API is not configured", body["error"])
}

func TestSessionRoutes_RequireBearerToken(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("missing header", func(t *testing.T) {
		statusCode, _ := f.doJSON(t, http.MethodGet, server.RouteAPISession, nil)
		require.Equal(t, http.StatusUnauthorized, statusCode)
	})

	t.Run("malformed header", func(t *testing.T) {
		statusCode, _ := f.doJSON(t, http.MethodGet, server.RouteAPISession, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Token abc")
		})
		require.Equal(t, http.StatusUnauthorized, statusCode)
	})

	t.Run("rejected token", func(t *testing.T) {
		statusCode, _ := f.doJSON(t, http.MethodGet, server.RouteAPISession, nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer bogus")
		})
		require.Equal(t, http.StatusUnauthorized, statusCode)
	})
}

func TestCorsHeadersOnAllowedOrigin(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteAuthGitHub, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	recorder := httptest.NewRecorder()
	f.server.ServeHTTP(recorder, req)

	require.Equal(t, "http://localhost:3000", recorder.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCorsHeadersOnDisallowedOrigin(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteAuthGitHub, nil)
	req.Header.Set("Origin", "http://evil.example")
	recorder := httptest.NewRecorder()
	f.server.ServeHTTP(recorder, req)

	require.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

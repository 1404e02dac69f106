package mailer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webcraft/account-gateway/internal/config"
	"github.com/webcraft/account-gateway/mailer"
)

func newTestMailer(t *testing.T, handler http.Handler) *mailer.Mailer {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	t.Setenv("BREVO_API_KEY", "test-api-key")
	t.Setenv("BREVO_ENDPOINT", ts.URL)
	t.Setenv("EMAIL_FROM", "WebCraft <no-reply@webcraft.example>")

	return mailer.New(config.New())
}

func TestMailer_SendVerificationEmail(t *testing.T) {
	var got struct {
		Sender struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"sender"`
		To []struct {
			Email string `json:"email"`
		} `json:"to"`
		Subject     string `json:"subject"`
		HTMLContent string `json:"htmlContent"`
	}

	m := newTestMailer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-api-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	err := m.SendVerificationEmail(context.Background(), "john.doe@example.com", "johnd", "https://provider.example/verify")
	require.NoError(t, err)

	require.Equal(t, "no-reply@webcraft.example", got.Sender.Email)
	require.Len(t, got.To, 1)
	require.Equal(t, "john.doe@example.com", got.To[0].Email)
	require.Equal(t, "Verify Your Email Address", got.Subject)
	require.Contains(t, got.HTMLContent, "johnd")
	require.Contains(t, got.HTMLContent, "https://provider.example/verify")
}

func TestMailer_SendPasswordResetEmail(t *testing.T) {
	var subject string
	m := newTestMailer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		subject, _ = payload["subject"].(string)
		w.WriteHeader(http.StatusCreated)
	}))

	err := m.SendPasswordResetEmail(context.Background(), "john.doe@example.com", "johnd", "https://provider.example/reset")
	require.NoError(t, err)
	require.Equal(t, "Reset Your Password", subject)
}

func TestMailer_ProviderErrorSurfacesMessage(t *testing.T) {
	m := newTestMailer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Key not found"})
	}))

	err := m.SendVerificationEmail(context.Background(), "john.doe@example.com", "johnd", "https://provider.example/verify")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Key not found")
}

func TestMailer_NotConfigured(t *testing.T) {
	t.Setenv("BREVO_API_KEY", "")
	t.Setenv("EMAIL_FROM", "")

	m := mailer.New(config.New())
	require.False(t, m.IsConfigured())

	err := m.SendVerificationEmail(context.Background(), "john.doe@example.com", "johnd", "link")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not configured")
}

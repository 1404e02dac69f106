// Package mailer sends transactional email through the Brevo SMTP API.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/webcraft/account-gateway/internal/config"
)

// Sender is the outgoing-mail interface handlers depend on. Delivery
// failures are reported as errors and treated as non-fatal by callers.
type Sender interface {
	SendVerificationEmail(ctx context.Context, email, username, link string) error
	SendPasswordResetEmail(ctx context.Context, email, username, link string) error
}

// Mailer sends email via Brevo's transactional API.
type Mailer struct {
	apiKey     string
	endpoint   string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ Sender = (*Mailer)(nil)

type Option func(*Mailer)

// WithHTTPClient overrides the underlying HTTP client (primarily for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Mailer) {
		m.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Mailer) {
		m.log = log
	}
}

func New(cfg config.MailConfig, options ...Option) *Mailer {
	m := &Mailer{
		apiKey:     cfg.GetBrevoAPIKey(),
		endpoint:   cfg.GetBrevoEndpoint(),
		fromEmail:  cfg.GetEmailFrom(),
		fromName:   cfg.GetEmailFromName(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// IsConfigured reports whether an API key is present. Sends without one fail
// with an error rather than being silently dropped.
func (m *Mailer) IsConfigured() bool {
	return m.apiKey != ""
}

func (m *Mailer) SendVerificationEmail(ctx context.Context, email, username, link string) error {
	if err := m.send(ctx, email, "Verify Your Email Address", verificationEmailBody(username, link)); err != nil {
		return errors.Wrap(err, "[SendVerificationEmail]")
	}
	m.log.Info().Str("to", email).Msg("verification email sent")
	return nil
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, email, username, link string) error {
	if err := m.send(ctx, email, "Reset Your Password", passwordResetEmailBody(username, link)); err != nil {
		return errors.Wrap(err, "[SendPasswordResetEmail]")
	}
	m.log.Info().Str("to", email).Msg("password reset email sent")
	return nil
}

type sendRequest struct {
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

func (m *Mailer) send(ctx context.Context, to, subject, html string) error {
	if !m.IsConfigured() {
		return errors.New("email service not configured")
	}

	payload := sendRequest{Subject: subject, HTMLContent: html}
	payload.Sender.Name = m.fromName
	payload.Sender.Email = senderAddress(m.fromEmail)
	payload.To = []struct {
		Email string `json:"email"`
	}{{Email: to}}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return errors.Wrap(err, "build email request")
	}
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "email request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("email provider: %s", apiErr.Message)
		}
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}

// senderAddress extracts the address from a "Name <addr>" style value.
func senderAddress(from string) string {
	if open := strings.IndexByte(from, '<'); open >= 0 {
		if close := strings.IndexByte(from[open:], '>'); close > 0 {
			return from[open+1 : open+close]
		}
	}
	return from
}

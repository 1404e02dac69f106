package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/webcraft/account-gateway/internal/config"
	apperrors "github.com/webcraft/account-gateway/internal/errors"
)

// Client talks to the hosted identity provider's REST API. All account state
// and credential verification lives provider-side; the client only shapes
// requests and translates provider error codes into the gateway's sentinels.
type Client struct {
	apiKey     string
	baseURL    string
	tokenURL   string
	httpClient *http.Client
}

var _ Provider = (*Client)(nil)

type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for testing).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(cfg config.EnvConfig, options ...ClientOption) *Client {
	c := &Client{
		apiKey:     cfg.GetIdentityAPIKey(),
		baseURL:    strings.TrimSuffix(cfg.GetIdentityBaseURL(), "/"),
		tokenURL:   strings.TrimSuffix(cfg.GetIdentityTokenURL(), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*UserRecord, error) {
	req := map[string]any{
		"email":             params.Email,
		"password":          params.Password,
		"displayName":       params.DisplayName,
		"emailVerified":     params.EmailVerified,
		"returnSecureToken": false,
	}
	var resp struct {
		LocalID string `json:"localId"`
		Email   string `json:"email"`
	}
	if err := c.post(ctx, "accounts:signUp", req, &resp); err != nil {
		return nil, errors.Wrap(err, "[CreateUser]")
	}
	return &UserRecord{
		UID:           resp.LocalID,
		Email:         resp.Email,
		DisplayName:   params.DisplayName,
		EmailVerified: params.EmailVerified,
		Method:        MethodPassword,
	}, nil
}

func (c *Client) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	return c.lookup(ctx, map[string]any{"localId": []string{uid}})
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return c.lookup(ctx, map[string]any{"email": []string{email}})
}

func (c *Client) lookup(ctx context.Context, req map[string]any) (*UserRecord, error) {
	var resp struct {
		Users []accountInfo `json:"users"`
	}
	if err := c.post(ctx, "accounts:lookup", req, &resp); err != nil {
		return nil, errors.Wrap(err, "[lookup]")
	}
	if len(resp.Users) == 0 {
		return nil, apperrors.ErrUserNotFound
	}
	return resp.Users[0].record(), nil
}

func (c *Client) UpdateUser(ctx context.Context, uid string, params UpdateUserParams) (*UserRecord, error) {
	req := map[string]any{"localId": uid}
	if params.Disabled != nil {
		req["disableUser"] = *params.Disabled
	}
	if params.EmailVerified != nil {
		req["emailVerified"] = *params.EmailVerified
	}
	if params.DisplayName != nil {
		req["displayName"] = *params.DisplayName
	}
	if err := c.post(ctx, "accounts:update", req, nil); err != nil {
		return nil, errors.Wrap(err, "[UpdateUser]")
	}
	return c.GetUser(ctx, uid)
}

func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	req := map[string]any{"localId": uid}
	if err := c.post(ctx, "accounts:delete", req, nil); err != nil {
		return errors.Wrap(err, "[DeleteUser]")
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context) ([]*UserRecord, error) {
	u := fmt.Sprintf("%s/v1/accounts:batchGet?key=%s&maxResults=1000", c.baseURL, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[ListUsers] build request")
	}
	var resp struct {
		Users []accountInfo `json:"users"`
	}
	if err := c.do(httpReq, &resp); err != nil {
		return nil, errors.Wrap(err, "[ListUsers]")
	}
	records := make([]*UserRecord, 0, len(resp.Users))
	for _, u := range resp.Users {
		records = append(records, u.record())
	}
	return records, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Credential, error) {
	req := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp credentialResponse
	if err := c.post(ctx, "accounts:signInWithPassword", req, &resp); err != nil {
		return nil, errors.Wrap(err, "[SignInWithPassword]")
	}
	return resp.credential(), nil
}

func (c *Client) SignInWithIdp(ctx context.Context, providerID, accessToken string) (*Credential, *UserRecord, error) {
	postBody := url.Values{}
	postBody.Set("access_token", accessToken)
	postBody.Set("providerId", providerID)
	req := map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	var resp struct {
		credentialResponse
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		PhotoURL      string `json:"photoUrl"`
		EmailVerified bool   `json:"emailVerified"`
	}
	if err := c.post(ctx, "accounts:signInWithIdp", req, &resp); err != nil {
		return nil, nil, errors.Wrap(err, "[SignInWithIdp]")
	}
	record := &UserRecord{
		UID:           resp.LocalID,
		Email:         resp.Email,
		DisplayName:   resp.DisplayName,
		PhotoURL:      resp.PhotoURL,
		EmailVerified: resp.EmailVerified,
		Method:        SignInMethod(providerID),
	}
	return resp.credential(), record, nil
}

func (c *Client) RefreshIDToken(ctx context.Context, refreshToken string) (*Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	u := fmt.Sprintf("%s/v1/token?key=%s", c.tokenURL, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshIDToken] build request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		UserID       string `json:"user_id"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := c.do(httpReq, &resp); err != nil {
		return nil, errors.Wrap(err, "[RefreshIDToken]")
	}
	return &Credential{
		UID:          resp.UserID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    secondsDuration(resp.ExpiresIn),
	}, nil
}

// RevokeTokens invalidates every session token issued to the account before
// now by moving the account's validSince marker.
func (c *Client) RevokeTokens(ctx context.Context, uid string) error {
	req := map[string]any{
		"localId":    uid,
		"validSince": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if err := c.post(ctx, "accounts:update", req, nil); err != nil {
		return errors.Wrap(err, "[RevokeTokens]")
	}
	return nil
}

func (c *Client) GenerateEmailVerificationLink(ctx context.Context, email string) (string, error) {
	return c.generateOobLink(ctx, "VERIFY_EMAIL", email)
}

func (c *Client) GeneratePasswordResetLink(ctx context.Context, email string) (string, error) {
	return c.generateOobLink(ctx, "PASSWORD_RESET", email)
}

func (c *Client) generateOobLink(ctx context.Context, requestType, email string) (string, error) {
	req := map[string]any{
		"requestType":   requestType,
		"email":         email,
		"returnOobLink": true,
	}
	var resp struct {
		OobLink string `json:"oobLink"`
	}
	if err := c.post(ctx, "accounts:sendOobCode", req, &resp); err != nil {
		return "", errors.Wrapf(err, "[generateOobLink] %s", requestType)
	}
	return resp.OobLink, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}
	u := fmt.Sprintf("%s/v1/%s?key=%s", c.baseURL, endpoint, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(payload)))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "provider request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read provider response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return providerError(data, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode provider response")
	}
	return nil
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// providerError maps the provider's stable error codes onto the gateway's
// sentinel errors. Codes sometimes arrive with a trailing description
// ("WEAK_PASSWORD : Password should be ..."), so only the leading token is
// matched.
func providerError(data []byte, status int) error {
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Error.Message == "" {
		return errors.Wrapf(apperrors.ErrInternal, "provider returned status %d", status)
	}

	code := apiErr.Error.Message
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		code = code[:idx]
	}

	switch code {
	case "EMAIL_EXISTS":
		return apperrors.ErrEmailExists
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return apperrors.ErrInvalidEmail
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return apperrors.ErrWeakPassword
	case "USER_NOT_FOUND", "EMAIL_NOT_FOUND":
		return apperrors.ErrUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return apperrors.ErrInvalidCredentials
	case "USER_DISABLED":
		return apperrors.ErrUserDisabled
	case "TOKEN_EXPIRED":
		return apperrors.ErrTokenExpired
	case "INVALID_REFRESH_TOKEN", "INVALID_ID_TOKEN":
		return apperrors.ErrInvalidToken
	default:
		return errors.Wrap(apperrors.ErrInternal, apiErr.Error.Message)
	}
}

type accountInfo struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	PhotoURL         string `json:"photoUrl"`
	EmailVerified    bool   `json:"emailVerified"`
	Disabled         bool   `json:"disabled"`
	CreatedAt        string `json:"createdAt"`
	LastLoginAt      string `json:"lastLoginAt"`
	ProviderUserInfo []struct {
		ProviderID string `json:"providerId"`
	} `json:"providerUserInfo"`
}

func (a accountInfo) record() *UserRecord {
	rec := &UserRecord{
		UID:           a.LocalID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		PhotoURL:      a.PhotoURL,
		EmailVerified: a.EmailVerified,
		Disabled:      a.Disabled,
		Method:        MethodPassword,
		CreatedAt:     millisTime(a.CreatedAt),
		LastLoginAt:   millisTime(a.LastLoginAt),
	}
	if len(a.ProviderUserInfo) > 0 {
		rec.Method = SignInMethod(a.ProviderUserInfo[0].ProviderID)
	}
	return rec
}

type credentialResponse struct {
	LocalID      string `json:"localId"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (r credentialResponse) credential() *Credential {
	return &Credential{
		UID:          r.LocalID,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    secondsDuration(r.ExpiresIn),
	}
}

func secondsDuration(s string) time.Duration {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func millisTime(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/webcraft/account-gateway/internal/config"
	apperrors "github.com/webcraft/account-gateway/internal/errors"
)

// Client stores profile documents in the hosted document database over its
// REST surface. Documents live under /v1/projects/{project}/documents/users/{uid}.
type Client struct {
	baseURL    string
	projectID  string
	apiKey     string
	httpClient *http.Client
	nowTime    func() time.Time
}

var _ Repo = (*Client)(nil)

type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for testing).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

func NewClient(cfg config.EnvConfig, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.GetDocumentStoreBaseURL(), "/"),
		projectID:  cfg.GetIdentityProjectID(),
		apiKey:     cfg.GetIdentityAPIKey(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) documentURL(uid string) string {
	return fmt.Sprintf("%s/v1/projects/%s/documents/users/%s?key=%s", c.baseURL, c.projectID, uid, c.apiKey)
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/v1/projects/%s/documents/users?key=%s", c.baseURL, c.projectID, c.apiKey)
}

func (c *Client) Get(ctx context.Context, uid string) (*Profile, error) {
	var profile Profile
	if err := c.request(ctx, http.MethodGet, c.documentURL(uid), nil, &profile); err != nil {
		return nil, errors.Wrap(err, "[Get]")
	}
	return &profile, nil
}

func (c *Client) Set(ctx context.Context, profile *Profile) error {
	profile.UpdatedAt = c.nowTime()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = profile.UpdatedAt
	}
	if err := c.request(ctx, http.MethodPut, c.documentURL(profile.UID), profile, nil); err != nil {
		return errors.Wrap(err, "[Set]")
	}
	return nil
}

// Update patches an existing document. A missing document is reported as
// ErrProfileNotFound, never created.
func (c *Client) Update(ctx context.Context, uid string, update ProfileUpdate) error {
	body := struct {
		ProfileUpdate
		UpdatedAt time.Time `json:"updatedAt"`
	}{ProfileUpdate: update, UpdatedAt: c.nowTime()}

	if err := c.request(ctx, http.MethodPatch, c.documentURL(uid), body, nil); err != nil {
		return errors.Wrap(err, "[Update]")
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, uid string) error {
	if err := c.request(ctx, http.MethodDelete, c.documentURL(uid), nil, nil); err != nil {
		return errors.Wrap(err, "[Delete]")
	}
	return nil
}

func (c *Client) List(ctx context.Context) ([]*Profile, error) {
	var resp struct {
		Documents []*Profile `json:"documents"`
	}
	if err := c.request(ctx, http.MethodGet, c.collectionURL(), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[List]")
	}
	return resp.Documents, nil
}

func (c *Client) request(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal document")
		}
		reader = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "document store request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.ErrProfileNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Wrapf(apperrors.ErrInternal, "document store returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode document")
	}
	return nil
}

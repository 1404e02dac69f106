package identity

import "time"

// SignInMethod identifies how an account authenticates with the hosted
// identity provider.
type SignInMethod string

const (
	MethodPassword SignInMethod = "password"
	MethodGitHub   SignInMethod = "github.com"
)

// UserRecord is the provider's view of an account. The provider owns this
// data; the gateway never stores it, only mirrors selected fields into the
// profile document store.
type UserRecord struct {
	UID           string       `json:"uid"`
	Email         string       `json:"email"`
	DisplayName   string       `json:"display_name,omitempty"`
	PhotoURL      string       `json:"photo_url,omitempty"`
	EmailVerified bool         `json:"email_verified"`
	Disabled      bool         `json:"disabled"`
	Method        SignInMethod `json:"method,omitempty"`
	CreatedAt     time.Time    `json:"created_at,omitempty"`
	LastLoginAt   time.Time    `json:"last_login_at,omitempty"`
}

// Credential is a session issued by the provider after a successful sign-in
// or token refresh.
type Credential struct {
	UID          string        `json:"uid"`
	IDToken      string        `json:"id_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// CreateUserParams describes a new account.
type CreateUserParams struct {
	Email         string
	Password      string
	DisplayName   string
	EmailVerified bool
}

// UpdateUserParams carries the mutable account fields. Nil means "leave
// unchanged".
type UpdateUserParams struct {
	Disabled      *bool
	EmailVerified *bool
	DisplayName   *string
}

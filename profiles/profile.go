package profiles

import "time"

// RoleType represents a profile's application role.
type RoleType string

const (
	RoleUser  RoleType = "user"
	RoleAdmin RoleType = "admin"
)

// Profile is the per-user document held in the hosted document database,
// keyed by the identity provider's uid. It mirrors a subset of the provider's
// account fields; the provider stays the source of truth and divergence is
// corrected during session reconciliation.
type Profile struct {
	UID           string    `json:"uid"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Provider      string    `json:"provider"`
	Role          RoleType  `json:"role"`
	Disabled      bool      `json:"disabled"`
	EmailVerified bool      `json:"emailVerified"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsAdmin returns true if the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

package profiles

import "context"

// Repo is the profile document store. Get and Delete report
// errors.ErrProfileNotFound for absent documents; Update never creates one.
type Repo interface {
	Get(ctx context.Context, uid string) (*Profile, error)
	Set(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, uid string, update ProfileUpdate) error
	Delete(ctx context.Context, uid string) error
	List(ctx context.Context) ([]*Profile, error)
}

// ProfileUpdate carries the mutable document fields. Nil means "leave
// unchanged".
type ProfileUpdate struct {
	Username      *string `json:"username,omitempty"`
	Disabled      *bool   `json:"disabled,omitempty"`
	EmailVerified *bool   `json:"emailVerified,omitempty"`
	PhotoURL      *string `json:"photoURL,omitempty"`
}

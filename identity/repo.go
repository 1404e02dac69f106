package identity

import "context"

// Provider is the hosted identity provider: account storage, credential
// verification and out-of-band link generation all live on its side of the
// wire. Every method is a single request/response exchange.
type Provider interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*UserRecord, error)
	GetUser(ctx context.Context, uid string) (*UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	UpdateUser(ctx context.Context, uid string, params UpdateUserParams) (*UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	ListUsers(ctx context.Context) ([]*UserRecord, error)

	SignInWithPassword(ctx context.Context, email, password string) (*Credential, error)
	SignInWithIdp(ctx context.Context, providerID, accessToken string) (*Credential, *UserRecord, error)
	RefreshIDToken(ctx context.Context, refreshToken string) (*Credential, error)
	RevokeTokens(ctx context.Context, uid string) error

	GenerateEmailVerificationLink(ctx context.Context, email string) (string, error)
	GeneratePasswordResetLink(ctx context.Context, email string) (string, error)
}
